package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chazu/chopit/pkg/kernel/sdfx"
)

func newTestEngine() *Engine {
	k := sdfx.NewWithConfig(sdfx.Config{Resolution: 48, MeshCells: 64})
	return NewEngine(k, DefaultOptions())
}

func evaluate(t *testing.T, source string) *Job {
	t.Helper()
	job, evalErrs, err := newTestEngine().Evaluate(context.Background(), source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if job == nil {
		t.Fatal("expected non-nil job")
	}
	return job
}

func TestEvaluateEmptyString(t *testing.T) {
	job := evaluate(t, "")
	if job.Scene.Len() != 0 {
		t.Errorf("expected empty scene, got %d objects", job.Scene.Len())
	}
	if len(job.Output()) != 0 {
		t.Errorf("expected empty output, got %d objects", len(job.Output()))
	}
}

func TestEvaluateWhitespaceOnly(t *testing.T) {
	job := evaluate(t, "   \n\t  \n  ")
	if job.Scene.Len() != 0 {
		t.Errorf("expected empty scene, got %d objects", job.Scene.Len())
	}
}

func TestEvaluateValidExpression(t *testing.T) {
	job := evaluate(t, "(+ 1 2)")
	if job.Scene.Len() != 0 {
		t.Errorf("plain arithmetic should not register objects, got %d", job.Scene.Len())
	}
}

func TestEvaluateMultipleExpressions(t *testing.T) {
	evaluate(t, `
(def x 10)
(def y 20)
(+ x y)
`)
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := newTestEngine()

	// Unmatched paren is a parse error.
	job, evalErrs, err := eng.Evaluate(context.Background(), "(+ 1 2")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if job != nil {
		t.Fatal("expected nil job on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := newTestEngine()

	job, evalErrs, err := eng.Evaluate(context.Background(), "(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if job != nil {
		t.Fatal("expected nil job on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvaluateSyntaxErrorHasLineInfo(t *testing.T) {
	eng := newTestEngine()

	// Put the error on line 2.
	_, evalErrs, err := eng.Evaluate(context.Background(), "(+ 1 2)\n(+ 3")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}

	// Line info depends on the zygomys error format.
	e := evalErrs[0]
	if e.Message == "" {
		t.Error("eval error message should not be empty")
	}
	if e.Line > 0 {
		t.Logf("extracted line info: line=%d, message=%q", e.Line, e.Message)
	} else {
		t.Logf("no line info extracted (line=0), message=%q", e.Message)
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	e2 := EvalError{Message: "no location"}
	if s2 := e2.Error(); strings.Contains(s2, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s2)
	}
}

func TestEvaluateFreshScenePerCall(t *testing.T) {
	eng := newTestEngine()

	for i := 0; i < 3; i++ {
		job, evalErrs, err := eng.Evaluate(context.Background(), `(defsolid "cube" (box 10))`)
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, evalErrs)
		}
		if job.Scene.Len() != 1 {
			t.Errorf("iteration %d: expected 1 object, got %d", i, job.Scene.Len())
		}
	}
}

func TestEvaluateCanceledContext(t *testing.T) {
	eng := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job, _, err := eng.Evaluate(ctx, `
(defsolid "bar" (box 300 50 50))
(cubit "bar" :size 100)
`)
	if err == nil {
		t.Fatal("expected an error for a canceled evaluation")
	}
	if job != nil {
		t.Error("expected nil job for a canceled evaluation")
	}
}

func TestWaitTimeout(t *testing.T) {
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult) // never sends

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, _, err := waitWithTimeout(ctx, ch, 20*time.Millisecond, 1, &mu, &gen)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected timeout error, got nil")
		}
		if !strings.Contains(err.Error(), "timed out") {
			t.Errorf("expected timeout error message, got: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("test itself timed out waiting for evaluation timeout")
	}
}

func TestWaitCanceled(t *testing.T) {
	var mu sync.Mutex
	var gen uint64 = 1
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := waitWithTimeout(ctx, make(chan evalResult), time.Minute, 1, &mu, &gen)
	if err == nil || !strings.Contains(err.Error(), "canceled") {
		t.Errorf("expected canceled error, got: %v", err)
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2) // current generation is 2

	ch := make(chan evalResult, 1)
	ch <- evalResult{}

	// Pass generation 1 (stale).
	_, _, err := waitWithTimeout(context.Background(), ch, time.Minute, 1, &mu, &gen)
	if err == nil {
		t.Fatal("expected error for stale generation")
	}
	if !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 5,
			wantMsg:  "unexpected token",
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  "some generic error",
		},
		{
			name:     "line format lowercase",
			msg:      "error on line 12: missing paren",
			wantLine: 12,
			wantMsg:  "missing paren",
		},
		{
			name:     "short line format",
			msg:      "line 3: cubit \"bar\": chunk size 0 must be positive",
			wantLine: 3,
			wantMsg:  "chunk size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
