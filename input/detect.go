// Package input resolves linker input artifacts into parsed modules.  It
// expands archives into their members, extracts the bitcode embedded in
// object files, and parses everything into the in-memory IR representation
// the rest of the pipeline operates on.
package input

import (
	"bytes"
	"path/filepath"
)

// Kind is the detected type of an input artifact.
type Kind int

// Enumeration of input kinds.
const (
	KindUnknown Kind = iota
	KindBitcode      // LLVM bitcode
	KindElf          // ELF object file
	KindMachO        // Mach-O object file
	KindArchive      // static archive (.a)
	KindIRText       // textual LLVM IR (.ll)
)

func (k Kind) String() string {
	switch k {
	case KindBitcode:
		return "bitcode"
	case KindElf:
		return "elf"
	case KindMachO:
		return "Mach-O"
	case KindArchive:
		return "archive"
	case KindIRText:
		return "llvm-ir"
	default:
		return "unknown"
	}
}

var (
	bitcodeMagic = []byte{0x42, 0x43, 0xC0, 0xDE}
	wrapperMagic = []byte{0xDE, 0xC0, 0x17, 0x0B}
	elfMagic     = []byte{0x7F, 'E', 'L', 'F'}
	machOMagic   = []byte{0xCF, 0xFA, 0xED, 0xFE}
	archiveMagic = []byte("!<arch>\x0A")
)

// DetectKind determines the kind of an input from its leading bytes.  The
// path is consulted only to recognize textual IR, which has no magic.
func DetectKind(path string, data []byte) Kind {
	if len(data) >= 8 {
		switch {
		case bytes.HasPrefix(data, bitcodeMagic), bytes.HasPrefix(data, wrapperMagic):
			return KindBitcode
		case bytes.HasPrefix(data, elfMagic):
			return KindElf
		case bytes.HasPrefix(data, machOMagic):
			return KindMachO
		case bytes.HasPrefix(data, archiveMagic):
			return KindArchive
		}
	}

	if filepath.Ext(path) == ".ll" {
		return KindIRText
	}

	return KindUnknown
}
