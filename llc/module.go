package llc

/*
#include <stdlib.h>
#include "llvm-c/Core.h"
#include "llvm-c/Analysis.h"
#include "llvm-c/IRReader.h"
#include "llvm-c/BitReader.h"
#include "llvm-c/BitWriter.h"
*/
import "C"

import (
	"errors"
	"unsafe"
)

// Module represents an LLVM module.
type Module struct {
	c    C.LLVMModuleRef
	mctx C.LLVMContextRef
}

// NewModuleFromIR creates a new module from the given string of LLVM IR in
// the given context.
func (ctx *Context) NewModuleFromIR(name, irString string) (Module, error) {
	cir := C.CString(irString)

	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	// The memory buffer is consumed by the IR parser, which is why it is
	// not disposed here.
	memBuff := C.LLVMCreateMemoryBufferWithMemoryRangeCopy(
		cir,
		(C.size_t)(len(irString)),
		cname,
	)
	C.free(unsafe.Pointer(cir))

	var modPtr C.LLVMModuleRef
	var msg *C.char
	if C.LLVMParseIRInContext(ctx.c, memBuff, &modPtr, &msg) != 0 {
		defer C.LLVMDisposeMessage(msg)
		return Module{}, errors.New(C.GoString(msg))
	}

	m := Module{c: modPtr, mctx: ctx.c}
	ctx.takeOwnership(m)
	return m, nil
}

// NewModuleFromBitcode creates a new module by decoding a bitcode buffer in
// the given context.
func (ctx *Context) NewModuleFromBitcode(name string, bitcode []byte) (Module, error) {
	cbuf := C.CBytes(bitcode)
	defer C.free(cbuf)

	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	memBuff := C.LLVMCreateMemoryBufferWithMemoryRange(
		(*C.char)(cbuf),
		(C.size_t)(len(bitcode)),
		cname,
		0,
	)
	defer C.LLVMDisposeMemoryBuffer(memBuff)

	var modPtr C.LLVMModuleRef
	if C.LLVMParseBitcodeInContext2(ctx.c, memBuff, &modPtr) != 0 {
		return Module{}, errors.New("malformed bitcode")
	}

	m := Module{c: modPtr, mctx: ctx.c}
	ctx.takeOwnership(m)
	return m, nil
}

// dispose disposes of the current module.
func (m Module) dispose() {
	C.LLVMDisposeModule(m.c)
}

// Name returns the name of the module.
func (m Module) Name() string {
	var strlen C.size_t
	str := C.LLVMGetModuleIdentifier(m.c, &strlen)
	return C.GoStringN(str, (C.int)(strlen))
}

// TargetTriple returns the target triple recorded in the module.
func (m Module) TargetTriple() string {
	return C.GoString(C.LLVMGetTarget(m.c))
}

// IRText returns the module rendered as LLVM IR text.
func (m Module) IRText() string {
	cir := C.LLVMPrintModuleToString(m.c)
	defer C.LLVMDisposeMessage(cir)
	return C.GoString(cir)
}

// WriteIRToFile writes the LLVM IR of the module to a file.
func (m Module) WriteIRToFile(filepath string) error {
	var errMsg *C.char

	cfpath := C.CString(filepath)
	defer C.free(unsafe.Pointer(cfpath))

	if C.LLVMPrintModuleToFile(m.c, cfpath, &errMsg) != 0 {
		defer C.LLVMDisposeMessage(errMsg)
		return errors.New(C.GoString(errMsg))
	}

	return nil
}

// WriteBitcodeToFile writes the bitcode of the module to a file.
func (m Module) WriteBitcodeToFile(filepath string) error {
	cfpath := C.CString(filepath)
	defer C.free(unsafe.Pointer(cfpath))

	if C.LLVMWriteBitcodeToFile(m.c, cfpath) != 0 {
		return errors.New("failed to write bitcode")
	}

	return nil
}

// Verify runs the LLVM module verifier.
func (m Module) Verify() error {
	var errMsg *C.char

	if C.LLVMVerifyModule(m.c, C.LLVMReturnStatusAction, &errMsg) != 0 {
		defer C.LLVMDisposeMessage(errMsg)
		return errors.New(C.GoString(errMsg))
	}

	return nil
}
