package common

import (
	"fmt"
	"strings"
)

// Cpu is the BPF processor model code is generated for.
type Cpu int

// Enumeration of BPF processor models.
const (
	CpuGeneric Cpu = iota
	CpuProbe
	CpuV1
	CpuV2
	CpuV3
)

var cpuNames = map[Cpu]string{
	CpuGeneric: "generic",
	CpuProbe:   "probe",
	CpuV1:      "v1",
	CpuV2:      "v2",
	CpuV3:      "v3",
}

func (c Cpu) String() string {
	return cpuNames[c]
}

// ParseCpu converts a CPU name into a Cpu.
func ParseCpu(s string) (Cpu, error) {
	for cpu, name := range cpuNames {
		if name == s {
			return cpu, nil
		}
	}

	return CpuGeneric, fmt.Errorf("invalid CPU `%s`", s)
}

// -----------------------------------------------------------------------------

// OptLevel is the optimization level the pass pipeline runs at.
type OptLevel int

// Enumeration of optimization levels.
const (
	OptNone       OptLevel = iota // -O0
	OptLess                       // -O1
	OptDefault                    // -O2
	OptAggressive                 // -O3
	OptSize                       // -Os
	OptSizeMin                    // -Oz
)

// ParseOptLevel converts the spelling used by `-O` into an OptLevel.
func ParseOptLevel(s string) (OptLevel, error) {
	switch s {
	case "0":
		return OptNone, nil
	case "1":
		return OptLess, nil
	case "2":
		return OptDefault, nil
	case "3":
		return OptAggressive, nil
	case "s":
		return OptSize, nil
	case "z":
		return OptSizeMin, nil
	default:
		return OptDefault, fmt.Errorf("optimization level needs to be between 0-3, s or z (instead was `%s`)", s)
	}
}

// PassPipeline returns the pass pipeline description for the level.  At -O0
// nothing is optimized, but the structural verifier still runs: the backend
// must never receive an unchecked module.  The `default<_>` entry has to come
// first in the description or it is ignored; `dce` is appended because not
// every default pipeline is guaranteed to include it.
func (ol OptLevel) PassPipeline() string {
	switch ol {
	case OptNone:
		return "verify"
	case OptLess:
		return "default<O1>,dce"
	case OptAggressive:
		return "default<O3>,dce"
	case OptSize:
		return "default<Os>,dce"
	case OptSizeMin:
		return "default<Oz>,dce"
	default:
		return "default<O2>,dce"
	}
}

// -----------------------------------------------------------------------------

// EmitKind is the representation the final artifact is produced in.
type EmitKind int

// Enumeration of emission kinds.
const (
	EmitObject       EmitKind = iota // relocatable object (default)
	EmitBitcode                      // LLVM bitcode
	EmitAssembly                     // assembly text
	EmitLlvmAssembly                 // LLVM IR text
)

func (ek EmitKind) String() string {
	switch ek {
	case EmitBitcode:
		return "llvm-bc"
	case EmitAssembly:
		return "asm"
	case EmitLlvmAssembly:
		return "llvm-ir"
	default:
		return "obj"
	}
}

// ParseEmitKind converts the spelling used by `--emit` into an EmitKind.
func ParseEmitKind(s string) (EmitKind, error) {
	switch s {
	case "llvm-bc":
		return EmitBitcode, nil
	case "asm":
		return EmitAssembly, nil
	case "llvm-ir":
		return EmitLlvmAssembly, nil
	case "obj":
		return EmitObject, nil
	default:
		return EmitObject, fmt.Errorf("unknown emission type: `%s` - expected one of: `llvm-bc`, `asm`, `llvm-ir`, `obj`", s)
	}
}

// -----------------------------------------------------------------------------

// FeatureList is an ordered set of CPU feature toggles.  Features keep the
// position of their first appearance, but a later toggle for the same name
// overrides an earlier one.
type FeatureList struct {
	names   []string
	enabled map[string]bool
}

// ParseFeatures parses a comma separated list of `+feature`/`-feature`
// tokens.  The empty string yields an empty list.
func ParseFeatures(s string) (*FeatureList, error) {
	fl := &FeatureList{enabled: make(map[string]bool)}
	if s == "" {
		return fl, nil
	}

	for _, tok := range strings.Split(s, ",") {
		if len(tok) < 2 || (tok[0] != '+' && tok[0] != '-') {
			return nil, fmt.Errorf("invalid CPU feature `%s`: features must be prefixed with `+` or `-`", tok)
		}

		name := tok[1:]
		if _, ok := fl.enabled[name]; !ok {
			fl.names = append(fl.names, name)
		}
		fl.enabled[name] = tok[0] == '+'
	}

	return fl, nil
}

// Enabled reports the final polarity of a feature and whether the feature
// was mentioned at all.
func (fl *FeatureList) Enabled(name string) (bool, bool) {
	on, ok := fl.enabled[name]
	return on, ok
}

// String renders the list in the form the target machine consumes.
func (fl *FeatureList) String() string {
	toks := make([]string, len(fl.names))
	for i, name := range fl.names {
		sign := "-"
		if fl.enabled[name] {
			sign = "+"
		}
		toks[i] = sign + name
	}

	return strings.Join(toks, ",")
}
