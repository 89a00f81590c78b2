package llc

import (
	"fmt"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
)

// DecodeBitcode decodes a bitcode buffer into an IR module. The buffer is
// parsed by LLVM and rendered back as IR text so the rest of the linker can
// manipulate it without holding native handles.
func (ctx *Context) DecodeBitcode(name string, bitcode []byte) (*ir.Module, error) {
	cmod, err := ctx.NewModuleFromBitcode(name, bitcode)
	if err != nil {
		return nil, err
	}

	m, err := asm.ParseString(name, cmod.IRText())
	if err != nil {
		return nil, fmt.Errorf("decoding bitcode of %s: %w", name, err)
	}

	return m, nil
}
