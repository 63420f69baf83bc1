// Package engine provides the Lisp evaluation engine for chopit job
// scripts. It wraps zygomys in a sandboxed environment and runs the
// script's modeling and decomposition builtins against a fresh scene.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/chopit/pkg/cubit"
	"github.com/chazu/chopit/pkg/curvecut"
	"github.com/chazu/chopit/pkg/hollow"
	"github.com/chazu/chopit/pkg/kernel"
	"github.com/chazu/chopit/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// OutputCollection is the scene collection decomposition builtins move
// their fragments into.
const OutputCollection = "output"

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced during evaluation,
// such as a cutting box that failed while the rest of a decomposition
// went through.
type EvalWarning struct {
	Line    int
	Col     int
	Message string
	Object  scene.ObjectID
}

// Job is the outcome of a successful evaluation.
type Job struct {
	Scene    *scene.Scene
	Walls    []*curvecut.Wall // walls built by curve cuts, in script order
	Warnings []EvalWarning
}

// Output returns the objects of the output collection.
func (j *Job) Output() []*scene.Object {
	objs, err := j.Scene.Collection(OutputCollection)
	if err != nil {
		return nil
	}
	return objs
}

// Options configures the decomposers a script can reach.
type Options struct {
	Timeout  time.Duration
	Cubit    cubit.Options
	CurveCut curvecut.Params
	Hollow   hollow.Params
	Logger   *slog.Logger

	// Values used when a script omits the argument.
	ChunkSize      float64 // cubit :size
	ModelHeight    float64 // scale-to-height height
	ShellThickness float64 // hollow :thickness
}

// DefaultOptions returns the default decomposer tuning.
func DefaultOptions() Options {
	return Options{
		Timeout:  DefaultTimeout,
		Cubit:    cubit.DefaultOptions(),
		CurveCut: curvecut.DefaultParams(),
		Hollow:   hollow.DefaultParams(),

		ChunkSize:      20,
		ModelHeight:    200,
		ShellThickness: 3,
	}
}

// Engine wraps the zygomys interpreter for job evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment and a fresh scene.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	k    kernel.Kernel
	opts Options
	log  *slog.Logger
}

// NewEngine creates a new Engine evaluating against k.
func NewEngine(k kernel.Kernel, opts Options) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	opts.Logger = log
	opts.Cubit.Logger = log
	opts.Hollow.Logger = log
	return &Engine{k: k, opts: opts, log: log.With("component", "engine")}
}

// Evaluate runs a job script and returns the resulting scene.
//
// Return semantics:
//   - On success: returns job + nil errors + nil error
//   - On parse/eval failure: returns nil job + eval errors + nil error
//   - On fatal failure (timeout, panic, cancel): returns nil + nil + error
func (e *Engine) Evaluate(ctx context.Context, source string) (*Job, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		job, evalErrs, err := e.evaluate(ctx, source)
		ch <- evalResult{job: job, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ctx, ch, e.opts.Timeout, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(ctx context.Context, source string) (*Job, []EvalError, error) {
	r := newRunner(ctx, e)

	// Empty source is a valid program that produces an empty scene.
	if strings.TrimSpace(source) == "" {
		return r.job, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, r)

	err := env.LoadString(preprocessSource(source))
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	_, err = env.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("evaluation aborted: %w", ctx.Err())
		}
		return nil, parseZygomysError(err), nil
	}

	e.log.Debug("job evaluated",
		"objects", r.job.Scene.Len(),
		"output", len(r.job.Output()),
		"warnings", len(r.job.Warnings))
	return r.job, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
