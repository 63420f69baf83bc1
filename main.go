// Command chopit runs mesh decomposition job scripts and exports the
// resulting printable fragments.
//
//	chopit [-config chopit.toml] [-out dir] [-format 3mf|stl]
//	       [-report fragments.xlsx] [-paths walls.dxf] script.lisp
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/chazu/chopit/pkg/config"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("chopit", flag.ContinueOnError)
	cfgPath := fs.String("config", "chopit.toml", "settings file; missing means defaults")
	outDir := fs.String("out", "", "output directory (overrides config)")
	format := fs.String("format", "", "output format, 3mf or stl (overrides config)")
	report := fs.String("report", "", "write a fragment report to this .xlsx file")
	paths := fs.String("paths", "", "write curve-cut paths to this .dxf file")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: chopit [flags] script.lisp\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *format != "" {
		cfg.Output.Format = *format
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	level, _ := cfg.Level()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := NewApp(cfg, log).RunFile(ctx, fs.Arg(0), Artifacts{Report: *report, Paths: *paths})
	if err != nil {
		log.Error("job failed", "script", fs.Arg(0), "err", err)
		return 1
	}
	for _, w := range res.Warnings {
		log.Warn(w.Message, "object", w.Object)
	}
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			log.Error(e.Message, "line", e.Line, "col", e.Col)
		}
		return 1
	}
	for _, f := range res.Files {
		fmt.Println(f)
	}
	return 0
}
