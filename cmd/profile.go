package cmd

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"

	"bpflink/common"
)

// tomlProfile represents a link profile as it is encoded in TOML.
type tomlProfile struct {
	Target      string `toml:"target"`
	Cpu         string `toml:"cpu"`
	CpuFeatures string `toml:"cpu-features"`
	Emit        string `toml:"emit"`
	Optimize    string `toml:"optimize"`

	Export      []string `toml:"export"`
	ExportFiles []string `toml:"export-files"`

	UnrollLoops                bool `toml:"unroll-loops"`
	IgnoreInlineNever          bool `toml:"ignore-inline-never"`
	DisableExpandMemcpyInOrder bool `toml:"disable-expand-memcpy-in-order"`
	DisableMemoryBuiltins      bool `toml:"disable-memory-builtins"`

	LlvmArgs []string `toml:"llvm-args"`
}

// loadProfile loads a TOML link profile into the configuration.  path may
// be the profile file itself or a directory containing one under the
// standard name.  Arguments given after the profile on the command line
// override whatever the profile set.
func loadProfile(cfg *linkConfig, path string) {
	if finfo, err := os.Stat(path); err == nil && finfo.IsDir() {
		path = filepath.Join(path, common.ProfileFileName)
	}

	buff, err := ioutil.ReadFile(path)
	if err != nil {
		argumentError("unable to read link profile at `%s`: %s", path, err)
	}

	profile := &tomlProfile{}
	if err := toml.Unmarshal(buff, profile); err != nil {
		argumentError("error parsing link profile at `%s`: %s", path, err)
	}

	applyProfile(cfg, profile)
}

// applyProfile copies the profile's settings onto the configuration,
// reusing the same validation the command line goes through.
func applyProfile(cfg *linkConfig, profile *tomlProfile) {
	if profile.Target != "" {
		cfg.opts.Target = profile.Target
	}

	if profile.Cpu != "" {
		useArg(cfg, "-cpu", profile.Cpu)
	}

	if profile.CpuFeatures != "" {
		useArg(cfg, "-cpu-features", profile.CpuFeatures)
	}

	if profile.Emit != "" {
		useArg(cfg, "-emit", profile.Emit)
	}

	if profile.Optimize != "" {
		useArg(cfg, "O", profile.Optimize)
	}

	cfg.opts.ExportNames = append(cfg.opts.ExportNames, profile.Export...)
	cfg.opts.ExportFiles = append(cfg.opts.ExportFiles, profile.ExportFiles...)

	if profile.UnrollLoops {
		cfg.opts.Transform.UnrollLoops = true
	}

	if profile.IgnoreInlineNever {
		cfg.opts.Transform.IgnoreInlineNever = true
	}

	if profile.DisableExpandMemcpyInOrder {
		cfg.opts.Transform.DisableExpandMemcpyInOrder = true
	}

	if profile.DisableMemoryBuiltins {
		cfg.opts.Transform.DisableMemoryBuiltins = true
	}

	if len(profile.LlvmArgs) > 0 {
		useArg(cfg, "-llvm-args", strings.Join(profile.LlvmArgs, ","))
	}
}
