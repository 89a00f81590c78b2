package llc

/*
#include <stdlib.h>

#include "llvm-c/Core.h"
#include "llvm-c/Error.h"
#include "llvm-c/Transforms/PassBuilder.h"
*/
import "C"
import (
	"errors"
	"unsafe"
)

// RunPasses runs the pass pipeline described by passes over mod using the
// target machine tm. The pipeline string uses the new pass manager syntax,
// eg. `default<O2>,dce`.
func RunPasses(mod Module, tm TargetMachine, passes string) error {
	cpasses := C.CString(passes)
	defer C.free(unsafe.Pointer(cpasses))

	opts := C.LLVMCreatePassBuilderOptions()
	defer C.LLVMDisposePassBuilderOptions(opts)

	cerr := C.LLVMRunPasses(mod.c, cpasses, tm.c, opts)
	if cerr == nil {
		return nil
	}

	cmsg := C.LLVMGetErrorMessage(cerr)
	defer C.LLVMDisposeErrorMessage(cmsg)

	return errors.New(C.GoString(cmsg))
}
