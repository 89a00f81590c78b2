package input

import (
	"bytes"
	"debug/elf"
	"io"
	"os"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"

	"bpflink/common"
	"bpflink/report"
)

// Unit is a parsed input module together with the source identifier used in
// diagnostics.
type Unit struct {
	Module *ir.Module
	Path   string
}

// Decoder decodes a bitcode buffer into a module.  Bitcode decoding lives in
// the backend; the resolver only depends on this boundary.
type Decoder interface {
	DecodeBitcode(name string, bitcode []byte) (*ir.Module, error)
}

// Resolver expands and parses linker inputs.
type Resolver struct {
	decoder Decoder
}

// NewResolver creates a new resolver that decodes bitcode through decoder.
func NewResolver(decoder Decoder) *Resolver {
	return &Resolver{decoder: decoder}
}

// Resolve turns an ordered list of input paths into an ordered list of
// parsed units.  Archive members are expanded in archive-internal order and
// spliced into the position of the archive argument.  The success flag is
// false if any input was fatally rejected; resolution stops at the first
// fatal input.
func (r *Resolver) Resolve(paths []string) ([]*Unit, bool) {
	var units []*Unit

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			report.ReportIOError(path, err)
			return nil, false
		}

		switch kind := DetectKind(path, data); kind {
		case KindArchive:
			report.ReportInfo("linking archive %s", path)

			members, ok := r.resolveArchive(path, data)
			if !ok {
				return nil, false
			}
			units = append(units, members...)
		case KindBitcode, KindElf, KindIRText:
			report.ReportInfo("linking file %s type %s", path, kind)

			unit, ok := r.resolveObject(path, data, kind)
			if !ok {
				return nil, false
			}
			units = append(units, unit)
		default:
			report.ReportParseError(path, "invalid input file")
			return nil, false
		}
	}

	return units, true
}

// resolveObject parses a single non-archive input.  Objects without a
// bitcode section are fatal at the top level.
func (r *Resolver) resolveObject(path string, data []byte, kind Kind) (*Unit, bool) {
	if kind == KindElf {
		bitcode, err := extractBitcode(data)
		if err != nil {
			report.ReportParseError(path, "error reading embedded bitcode: %s", err)
			return nil, false
		}
		if bitcode == nil {
			report.ReportParseError(path, "no bitcode section found in %s", path)
			return nil, false
		}
		data = bitcode
		kind = KindBitcode
	}

	mod, err := r.parse(path, data, kind)
	if err != nil {
		report.ReportParseError(path, "%s", err)
		return nil, false
	}

	return &Unit{Module: mod, Path: path}, true
}

// resolveArchive expands an archive and parses each linkable member.
// Members that are not bitcode or objects are skipped, as are object members
// with no embedded bitcode: archives routinely carry metadata files next to
// the real objects.
func (r *Resolver) resolveArchive(path string, data []byte) ([]*Unit, bool) {
	var units []*Unit

	rd := ar.NewReader(bytes.NewReader(data))
	for {
		hdr, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.ReportParseError(path, "malformed archive: %s", err)
			return nil, false
		}

		name := strings.TrimSuffix(strings.TrimSpace(hdr.Name), "/")
		member, err := io.ReadAll(rd)
		if err != nil {
			report.ReportIOError(path, err)
			return nil, false
		}

		memberPath := path + "(" + name + ")"
		report.ReportInfo("linking archive item %s", name)

		kind := DetectKind(name, member)
		switch kind {
		case KindBitcode, KindIRText:
		case KindElf:
			bitcode, err := extractBitcode(member)
			if err != nil {
				report.ReportParseError(memberPath, "error reading embedded bitcode: %s", err)
				return nil, false
			}
			if bitcode == nil {
				report.ReportWarning("ignoring archive item %s: no embedded bitcode", name)
				continue
			}
			member = bitcode
			kind = KindBitcode
		default:
			report.ReportInfo("ignoring archive item %s: invalid type", name)
			continue
		}

		mod, err := r.parse(memberPath, member, kind)
		if err != nil {
			report.ReportParseError(memberPath, "failure linking module %s from %s: %s", name, path, err)
			return nil, false
		}

		units = append(units, &Unit{Module: mod, Path: memberPath})
	}

	return units, true
}

// parse decodes a bitcode or textual IR buffer into a module.
func (r *Resolver) parse(name string, data []byte, kind Kind) (*ir.Module, error) {
	if kind == KindIRText {
		return asm.ParseBytes(name, data)
	}

	return r.decoder.DecodeBitcode(name, data)
}

// extractBitcode locates and returns the embedded bitcode section of an ELF
// object.  It returns nil with no error when the section is absent.
func extractBitcode(data []byte) ([]byte, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sec := f.Section(common.BitcodeSectionName)
	if sec == nil {
		return nil, nil
	}

	return sec.Data()
}
