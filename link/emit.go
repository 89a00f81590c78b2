package link

import (
	"bpflink/common"
	"bpflink/llc"
	"bpflink/report"
	"bpflink/util"
)

// emit hands the transformed module to the backend: it is optimized and
// written to the output path in the requested representation.  The artifact
// is staged next to the output and renamed into place only on success, so
// a failed run never leaves a partial output behind.
func (l *Linker) emit() bool {
	if l.opts.DumpModule != "" {
		if err := util.AtomicWriteFile(l.opts.DumpModule, []byte(l.module.String())); err != nil {
			report.ReportIOError(l.opts.DumpModule, err)
			return false
		}

		report.ReportInfo("dumped module IR to %s", l.opts.DumpModule)
	}

	cmod, ok := l.lowerModule()
	if !ok {
		return false
	}

	if !l.createMachine() || !l.optimize(cmod) {
		return false
	}

	staging := util.StagingPath(l.opts.Output)

	if err := l.writeArtifact(cmod, staging); err != nil {
		util.DiscardStaging(l.opts.Output)
		report.ReportIOError(l.opts.Output, err)
		return false
	}

	if !report.ShouldProceed() {
		util.DiscardStaging(l.opts.Output)
		return false
	}

	if err := util.PromoteStaging(l.opts.Output); err != nil {
		util.DiscardStaging(l.opts.Output)
		report.ReportIOError(l.opts.Output, err)
		return false
	}

	return true
}

// lowerModule re-parses the program module inside the backend context.  The
// settled triple is stamped on before lowering so the backend sees exactly
// what code generation targets.
func (l *Linker) lowerModule() (llc.Module, bool) {
	l.module.TargetTriple = l.triple

	cmod, err := l.ctx.NewModuleFromIR(l.opts.Output, l.module.String())
	if err != nil {
		report.ReportCodegenError("lowering linked module: %s", err)
		return llc.Module{}, false
	}

	return cmod, report.ShouldProceed()
}

// createMachine builds the target machine for the settled triple.
func (l *Linker) createMachine() bool {
	target, err := llc.GetTargetFromTriple(l.triple)
	if err != nil {
		report.ReportCodegenError("no backend target for triple `%s`: %s", l.triple, err)
		return false
	}

	l.machine = l.ctx.NewMachine(
		target,
		l.triple,
		l.opts.Cpu.String(),
		l.opts.CpuFeatures.String(),
		llc.CodeGenLevelFor(l.opts.OptLevel),
	)

	return true
}

// optimize runs the pass pipeline for the configured level.
func (l *Linker) optimize(cmod llc.Module) bool {
	pipeline := l.opts.OptLevel.PassPipeline()
	report.ReportInfo("running pass pipeline `%s`", pipeline)

	if err := llc.RunPasses(cmod, l.machine, pipeline); err != nil {
		report.ReportCodegenError("optimization failed: %s", err)
		return false
	}

	return report.ShouldProceed()
}

// writeArtifact writes the optimized module to path in the requested
// representation.
func (l *Linker) writeArtifact(cmod llc.Module, path string) error {
	switch l.opts.Emit {
	case common.EmitBitcode:
		return cmod.WriteBitcodeToFile(path)
	case common.EmitLlvmAssembly:
		return cmod.WriteIRToFile(path)
	case common.EmitAssembly:
		return l.machine.CompileModule(cmod, path, llc.AssemblyFile)
	default:
		return l.machine.CompileModule(cmod, path, llc.ObjectFile)
	}
}
