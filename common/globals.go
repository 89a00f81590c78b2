package common

// LinkerVersion is the current bpflink version as a string.
const LinkerVersion string = "0.1.0"

// LinkerID is the full identification string reported by `--version`.
const LinkerID string = "bpflink v" + LinkerVersion

// ProfileFileName is the default name for link profile files.
const ProfileFileName string = "bpflink.toml"

// BitcodeSectionName is the object file section that carries embedded
// bitcode.
const BitcodeSectionName string = ".llvmbc"

// DefaultTriple is the target triple used when no explicit target is given
// and the input modules don't record a BPF triple themselves.
const DefaultTriple string = "bpf"

// MemoryBuiltins are the memory intrinsic implementations that stay
// externally visible unless the user disables them.  The backend cannot
// always expand calls to these into loads and stores, in which case the
// runtime must be able to resolve them.
var MemoryBuiltins = []string{"memcpy", "memmove", "memset", "memcmp", "bcmp"}
