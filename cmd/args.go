package cmd

import (
	"fmt"
	"os"
	"strings"

	"bpflink/common"
	"bpflink/link"
	"bpflink/report"
)

const usage = `Usage: bpflink [flags|options] <input files>

Inputs may be bitcode files, LLVM IR text files, objects with an embedded
bitcode section, or archives of either.

Flags:
------
-h, --help                Displays usage information (ie. this text).
-v, --version             Displays the current linker version.
--unroll-loops            Unrolls all loops, for targets without backward
                          branch support.
--ignore-inline-never     Strips noinline attributes, for targets without
                          function call support.
--disable-expand-memcpy-in-order
                          Keeps the backend's default lowering of bulk
                          memory intrinsics.
--disable-memory-builtins Does not export memcpy, memmove, memset, memcmp
                          and bcmp.

Options:
--------
-o,  --output        Sets the path the linked artifact is written to.
                     Required.
--emit               Sets the kind of artifact to produce.  Valid values
                     are:
                       - "obj" for a relocatable object (default)
                       - "asm" for assembly text
                       - "llvm-bc" for LLVM bitcode
                       - "llvm-ir" for LLVM IR text
-O                   Sets the optimization level: 0-3, s or z.  Defaults
                     to 2.
--target             Sets the target triple.  Defaults to the triple of
                     the inputs when they agree on a BPF one, and to
                     "bpf" otherwise.
--cpu                Sets the processor model: generic, probe, v1, v2 or
                     v3.  Defaults to generic.
--cpu-features       Sets processor feature toggles, as a comma separated
                     list of +feature/-feature entries.
--export             Adds a symbol name to the export set.  May be given
                     multiple times.
--export-symbols     Adds every newline-delimited symbol name in the given
                     file to the export set.  May be given multiple times.
--dump-module        Writes the linked, unoptimized module as IR text to
                     the given path.
--llvm-args          Passes extra comma separated arguments through to the
                     backend.
-p,  --profile       Loads defaults from the given TOML link profile.
                     Later command-line arguments override the profile.
-ll, --loglevel      Sets the linker's log-level.  Valid values are:
                       - "verbose" for outputting all messages
                       - "warn" for outputting errors and warnings (default)
                       - "error" for outputting errors only
                       - "silent" for no output
`

// Prints the usage message and exits the linker with the given exit code.
func printUsage(exitCode int) {
	fmt.Print(usage, "\n")
	os.Exit(exitCode)
}

// argParser is a command-line argument parser.
type argParser struct {
	// The arguments being parsed.
	args []string

	// The argument parser's position within those arguments.
	ndx int
}

// Set containing all the argument names that correspond to options.
var options = map[string]struct{}{
	"o":               {},
	"O":               {},
	"p":               {},
	"ll":              {},
	"-output":         {},
	"-emit":           {},
	"-target":         {},
	"-cpu":            {},
	"-cpu-features":   {},
	"-export":         {},
	"-export-symbols": {},
	"-dump-module":    {},
	"-llvm-args":      {},
	"-profile":        {},
	"-loglevel":       {},

	// Accepted for loader compatibility when the linker is invoked in
	// place of a system linker; the value is ignored.
	"flavor": {},
}

// Set of options whose values may themselves start with a dash.
var dashValueOptions = map[string]struct{}{
	"-llvm-args": {},
}

// argumentError displays an argument error and exits the program.
func argumentError(message string, args ...interface{}) {
	fmt.Print("argument error: ", fmt.Sprintf(message, args...), "\n\n")
	printUsage(1)
}

// nextArg parses the next command-line argument if one exists.  The first
// value is the name of the argument.  If this argument is positional, this
// value is empty.  The second value is the value of the argument.  If this
// value is empty, the argument is a flag.  If an argument exists, at least
// one of the returned values will be non-empty.  The final value indicates
// whether or not there was an argument to parse.
func (ap *argParser) nextArg() (string, string, bool) {
	if ap.ndx < len(ap.args) {
		arg := ap.args[ap.ndx]
		ap.ndx++

		if strings.HasPrefix(arg, "-") && arg != "-" { // flag or option
			name := arg[1:]

			if _, ok := options[name]; ok { // option
				_, dashOk := dashValueOptions[name]

				// Make sure the option value exists.
				if ap.ndx < len(ap.args) && (dashOk || !strings.HasPrefix(ap.args[ap.ndx], "-")) {
					value := ap.args[ap.ndx]
					ap.ndx++
					return name, value, true
				} else {
					argumentError("option %s requires an argument", strings.TrimLeft(name, "-"))
				}
			} else { // flag
				return name, "", true
			}

		} else { // positional
			return "", arg, true
		}
	}

	// No arguments to parse.
	return "", "", false
}

// useArg attempts to use a single command-line argument to initialize the
// link configuration.  If the argument is invalid, the program will exit.
func useArg(cfg *linkConfig, name, value string) {
	switch name {
	case "h", "-help":
		printUsage(0)
	case "v", "-version":
		fmt.Println(common.LinkerID)
		os.Exit(0)
	case "o", "-output":
		cfg.opts.Output = value
	case "-emit":
		{
			emit, err := common.ParseEmitKind(value)
			if err != nil {
				argumentError("%s", err)
			}

			cfg.opts.Emit = emit
		}
	case "O":
		{
			level, err := common.ParseOptLevel(value)
			if err != nil {
				argumentError("%s", err)
			}

			cfg.opts.OptLevel = level
		}
	case "-target":
		cfg.opts.Target = value
	case "-cpu":
		{
			cpu, err := common.ParseCpu(value)
			if err != nil {
				argumentError("%s", err)
			}

			cfg.opts.Cpu = cpu
		}
	case "-cpu-features":
		{
			features, err := common.ParseFeatures(value)
			if err != nil {
				argumentError("%s", err)
			}

			cfg.opts.CpuFeatures = features
		}
	case "-export":
		cfg.opts.ExportNames = append(cfg.opts.ExportNames, value)
	case "-export-symbols":
		cfg.opts.ExportFiles = append(cfg.opts.ExportFiles, value)
	case "-dump-module":
		cfg.opts.DumpModule = value
	case "-llvm-args":
		cfg.opts.Transform.ExtraBackendArgs = append(
			cfg.opts.Transform.ExtraBackendArgs,
			strings.Split(value, ",")...,
		)
	case "-unroll-loops":
		cfg.opts.Transform.UnrollLoops = true
	case "-ignore-inline-never":
		cfg.opts.Transform.IgnoreInlineNever = true
	case "-disable-expand-memcpy-in-order":
		cfg.opts.Transform.DisableExpandMemcpyInOrder = true
	case "-disable-memory-builtins":
		cfg.opts.Transform.DisableMemoryBuiltins = true
	case "p", "-profile":
		loadProfile(cfg, value)
	case "ll", "-loglevel":
		{
			switch value {
			case "silent":
				cfg.logLevel = report.LogLevelSilent
			case "error":
				cfg.logLevel = report.LogLevelError
			case "warn":
				cfg.logLevel = report.LogLevelWarn
			case "verbose":
				cfg.logLevel = report.LogLevelVerbose
			default:
				argumentError("invalid log level")
			}
		}
	case "flavor", "-debug":
		// Ignored loader compatibility arguments.
	case "":
		cfg.opts.Inputs = append(cfg.opts.Inputs, value)
	default:
		argumentError("unknown flag: %s", name)
	}
}

// newConfigFromArgs builds the link configuration from the command line if
// the arguments are valid and linking should continue: ie. if the user
// requests the linker version, then linking should not continue.
func newConfigFromArgs() *linkConfig {
	cfg := &linkConfig{
		opts:     link.Options{OptLevel: common.OptDefault},
		logLevel: report.LogLevelWarn,
	}

	ap := argParser{args: os.Args[1:], ndx: 0}

	// Parse all command line arguments.
	for {
		if name, value, ok := ap.nextArg(); ok {
			useArg(cfg, name, value)
		} else {
			break
		}
	}

	if len(cfg.opts.Inputs) == 0 {
		argumentError("at least one input file must be specified")
	}

	if cfg.opts.Output == "" {
		argumentError("an output path must be specified")
	}

	if cfg.opts.CpuFeatures == nil {
		cfg.opts.CpuFeatures, _ = common.ParseFeatures("")
	}

	return cfg
}

// linkConfig is the configuration accumulated while parsing arguments.
type linkConfig struct {
	opts     link.Options
	logLevel int
}
