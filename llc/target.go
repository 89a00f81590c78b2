package llc

/*
#include <stdlib.h>

#include "llvm-c/Core.h"
#include "llvm-c/Target.h"
#include "llvm-c/TargetMachine.h"
*/
import "C"
import (
	"errors"
	"unsafe"

	"bpflink/common"
)

// CodeGenOptLevel represents an LLVM code generation optimization level.
type CodeGenOptLevel C.LLVMCodeGenOptLevel

// Enumeration of LLVM codegen optimization levels.
const (
	CodeGenLevelNone       CodeGenOptLevel = C.LLVMCodeGenLevelNone
	CodeGenLevelLess       CodeGenOptLevel = C.LLVMCodeGenLevelLess
	CodeGenLevelDefault    CodeGenOptLevel = C.LLVMCodeGenLevelDefault
	CodeGenLevelAggressive CodeGenOptLevel = C.LLVMCodeGenLevelAggressive
)

// CodeGenLevelFor maps a pass optimization level onto a codegen level.
func CodeGenLevelFor(level common.OptLevel) CodeGenOptLevel {
	switch level {
	case common.OptNone:
		return CodeGenLevelNone
	case common.OptLess:
		return CodeGenLevelLess
	case common.OptAggressive:
		return CodeGenLevelAggressive
	default:
		return CodeGenLevelDefault
	}
}

// CodeGenFileType represents a possible code generation output type.
type CodeGenFileType C.LLVMCodeGenFileType

// Enumeration of LLVM codegen file types.
const (
	AssemblyFile CodeGenFileType = C.LLVMAssemblyFile
	ObjectFile   CodeGenFileType = C.LLVMObjectFile
)

// -----------------------------------------------------------------------------

// Target represents an LLVM output target.
type Target struct {
	c C.LLVMTargetRef
}

// GetTargetFromTriple finds the target corresponding to triple.
func GetTargetFromTriple(triple string) (Target, error) {
	ctriple := C.CString(triple)
	defer C.free(unsafe.Pointer(ctriple))

	var targetPtr C.LLVMTargetRef
	var errMsg *C.char
	if C.LLVMGetTargetFromTriple(ctriple, &targetPtr, &errMsg) != 0 {
		defer C.LLVMDisposeMessage(errMsg)
		return Target{}, errors.New(C.GoString(errMsg))
	}

	return Target{c: targetPtr}, nil
}

// Name returns the name of the target.
func (t Target) Name() string {
	return C.GoString(C.LLVMGetTargetName(t.c))
}

// -----------------------------------------------------------------------------

// TargetMachine represents an LLVM target machine: used to generate output.
type TargetMachine struct {
	c C.LLVMTargetMachineRef
}

// NewMachine creates a new target machine for target.
func (ctx *Context) NewMachine(
	target Target,
	triple, cpu, features string,
	level CodeGenOptLevel,
) (tm TargetMachine) {
	ctriple := C.CString(triple)
	defer C.free(unsafe.Pointer(ctriple))

	ccpu := C.CString(cpu)
	defer C.free(unsafe.Pointer(ccpu))

	cfeatures := C.CString(features)
	defer C.free(unsafe.Pointer(cfeatures))

	tm.c = C.LLVMCreateTargetMachine(
		target.c,
		ctriple,
		ccpu,
		cfeatures,
		(C.LLVMCodeGenOptLevel)(level),
		C.LLVMRelocDefault,
		C.LLVMCodeModelDefault,
	)
	ctx.takeOwnership(tm)
	return
}

// dispose disposes of target machine.
func (tm TargetMachine) dispose() {
	C.LLVMDisposeTargetMachine(tm.c)
}

// Triple returns the target triple of the target machine.
func (tm TargetMachine) Triple() string {
	ctriple := C.LLVMGetTargetMachineTriple(tm.c)
	defer C.LLVMDisposeMessage(ctriple)
	return C.GoString(ctriple)
}

// DataLayoutString returns the data layout of the target machine as a string.
func (tm TargetMachine) DataLayoutString() string {
	td := C.LLVMCreateTargetDataLayout(tm.c)
	defer C.LLVMDisposeTargetData(td)

	crep := C.LLVMCopyStringRepOfTargetData(td)
	defer C.LLVMDisposeMessage(crep)
	return C.GoString(crep)
}

// CompileModule compiles mod to fileType and outputs it to path.
func (tm TargetMachine) CompileModule(mod Module, path string, fileType CodeGenFileType) error {
	var cerr *C.char

	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	if C.LLVMTargetMachineEmitToFile(tm.c, mod.c, cpath, (C.LLVMCodeGenFileType)(fileType), &cerr) == 0 {
		return nil
	}

	err := errors.New(C.GoString(cerr))
	defer C.LLVMDisposeMessage(cerr)

	return err
}
