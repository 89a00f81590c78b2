package llc

/*
#include "llvm-c/Core.h"
*/
import "C"

import "unsafe"

// Severity represents the severity of a backend diagnostic.
type Severity C.LLVMDiagnosticSeverity

// Enumeration of LLVM diagnostic severities.
const (
	SeverityError   Severity = C.LLVMDSError
	SeverityWarning Severity = C.LLVMDSWarning
	SeverityRemark  Severity = C.LLVMDSRemark
	SeverityNote    Severity = C.LLVMDSNote
)

// DiagnosticHandler receives diagnostics raised by the backend.
type DiagnosticHandler func(severity Severity, msg string)

var diagHandler DiagnosticHandler

// SetDiagnosticHandler installs the handler backend diagnostics are routed
// to.  It must be set before any context is created.
func SetDiagnosticHandler(handler DiagnosticHandler) {
	diagHandler = handler
}

//export bpflinkDiagnosticHandler
func bpflinkDiagnosticHandler(info C.LLVMDiagnosticInfoRef, _ unsafe.Pointer) {
	if diagHandler == nil {
		return
	}

	severity := Severity(C.LLVMGetDiagInfoSeverity(info))

	cmsg := C.LLVMGetDiagInfoDescription(info)
	defer C.LLVMDisposeMessage(cmsg)

	diagHandler(severity, C.GoString(cmsg))
}
