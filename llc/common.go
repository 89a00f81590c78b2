// Package llc wraps the slice of the LLVM-C API the linker drives: context
// and module lifetimes, the BPF target, the pass pipeline runner and code
// emission.  The backend context is process-global and stateful, so there is
// exactly one Context per run, created at pipeline start and disposed at
// pipeline end, and nothing in this package is safe for concurrent use.
package llc

/*
#include <stdlib.h>

#include "llvm-c/Core.h"
#include "llvm-c/Support.h"
#include "llvm-c/Target.h"

extern void bpflinkDiagnosticHandler(LLVMDiagnosticInfoRef info, void *ctx);

static void bpflink_install_diagnostic_handler(LLVMContextRef ctx) {
	LLVMContextSetDiagnosticHandler(ctx, bpflinkDiagnosticHandler, NULL);
}
*/
import "C"

import "unsafe"

// OwnedObject represents an LLVM object that can be disposed.
type OwnedObject interface {
	// Dispose frees all the resources associated with the LLVM object.
	dispose()
}

// Context represents an LLVM context.
type Context struct {
	c C.LLVMContextRef

	// The list of LLVM objects owned by this context.
	ownedObjects []OwnedObject
}

// NewContext creates a new LLVM context.  Backend diagnostics raised while
// the context is live are routed through the handler installed with
// SetDiagnosticHandler.
func NewContext() *Context {
	ctx := &Context{c: C.LLVMContextCreate()}
	C.bpflink_install_diagnostic_handler(ctx.c)
	return ctx
}

// takeOwnership marks the given disposable LLVM object as being owned by
// this context.
func (c *Context) takeOwnership(obj OwnedObject) {
	c.ownedObjects = append(c.ownedObjects, obj)
}

// Dispose disposes of the context and all objects it owns.
func (c *Context) Dispose() {
	for _, obj := range c.ownedObjects {
		obj.dispose()
	}

	C.LLVMContextDispose(c.c)
}

// Init initializes the BPF target and injects the given command-line
// arguments into the backend.  It must be called once, before any module is
// parsed or any target machine is created: several passes can only be
// configured through the backend's command line.
func Init(args []string, overview string) {
	C.LLVMInitializeBPFTargetInfo()
	C.LLVMInitializeBPFTarget()
	C.LLVMInitializeBPFTargetMC()
	C.LLVMInitializeBPFAsmPrinter()
	C.LLVMInitializeBPFAsmParser()
	C.LLVMInitializeBPFDisassembler()

	cargs := make([]*C.char, len(args))
	for i, arg := range args {
		cargs[i] = C.CString(arg)
	}
	defer func() {
		for _, carg := range cargs {
			C.free(unsafe.Pointer(carg))
		}
	}()

	coverview := C.CString(overview)
	defer C.free(unsafe.Pointer(coverview))

	C.LLVMParseCommandLineOptions(C.int(len(cargs)), &cargs[0], coverview)
}
