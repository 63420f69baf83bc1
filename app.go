package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chazu/chopit/pkg/config"
	"github.com/chazu/chopit/pkg/engine"
	"github.com/chazu/chopit/pkg/export"
	"github.com/chazu/chopit/pkg/kernel"
	"github.com/chazu/chopit/pkg/kernel/sdfx"
)

// App runs job scripts end to end: evaluate, tessellate and export.
type App struct {
	cfg    config.Config
	engine *engine.Engine
	kernel kernel.Kernel
	log    *slog.Logger
}

// Artifacts selects optional side outputs of a run. Empty paths are skipped.
type Artifacts struct {
	Report string // fragment report, .xlsx
	Paths  string // stroke paths and wall outlines, .dxf
}

// Result is everything a run produced.
type Result struct {
	Parts    []export.Part
	Files    []string
	Errors   []engine.EvalError
	Warnings []engine.EvalWarning
}

// NewApp creates an App with the sdfx kernel configured from cfg.
func NewApp(cfg config.Config, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	k := sdfx.NewWithConfig(cfg.Kernel)
	return &App{
		cfg:    cfg,
		engine: engine.NewEngine(k, cfg.EngineOptions(log)),
		kernel: k,
		log:    log.With("component", "app"),
	}
}

// Run evaluates source and exports the output collection. Script errors
// are returned in the result with nothing written; err is reserved for
// aborted evaluations and export failures.
func (a *App) Run(ctx context.Context, source string, art Artifacts) (*Result, error) {
	result := &Result{}

	job, evalErrs, err := a.engine.Evaluate(ctx, source)
	if err != nil {
		return result, err
	}
	if len(evalErrs) > 0 {
		result.Errors = evalErrs
		return result, nil
	}
	result.Warnings = job.Warnings

	objs := job.Output()
	parts, err := export.Tessellate(a.kernel, objs)
	if err != nil {
		return result, fmt.Errorf("tessellation failed: %w", err)
	}
	result.Parts = parts
	if len(parts) == 0 {
		a.log.Warn("no output objects")
		return result, nil
	}

	format, err := export.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return result, err
	}
	files, err := export.Write(a.cfg.Output.Dir, format, parts)
	if err != nil {
		return result, err
	}
	result.Files = append(result.Files, files...)

	if art.Report != "" {
		if err := export.WriteReport(art.Report, export.Rows(a.kernel, objs, a.cfg.PrinterSize)); err != nil {
			return result, err
		}
		result.Files = append(result.Files, art.Report)
	}
	if art.Paths != "" && len(job.Walls) > 0 {
		if err := export.WritePaths(art.Paths, job.Walls); err != nil {
			return result, err
		}
		result.Files = append(result.Files, art.Paths)
	}

	a.log.Info("job done", "parts", len(parts), "warnings", len(result.Warnings), "files", len(result.Files))
	return result, nil
}

// RunFile reads a script from disk and runs it.
func (a *App) RunFile(ctx context.Context, path string, art Artifacts) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a.log.Debug("running script", "path", filepath.Base(path), "bytes", len(src))
	return a.Run(ctx, string(src), art)
}
