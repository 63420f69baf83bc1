package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout is the limit for a single evaluation when none is configured.
const DefaultTimeout = 10 * time.Minute

// evalResult is the internal type used to pass evaluation results through channels.
type evalResult struct {
	job    *Job
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, but returns an error when ctx
// ends first. It uses a generation counter to discard stale results from
// previous evaluations.
//
// On timeout the goroutine may still be running; the generation check
// ensures its result is discarded when it eventually completes.
func waitWithTimeout(
	ctx context.Context,
	ch <-chan evalResult,
	timeout time.Duration,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*Job, []EvalError, error) {
	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, fmt.Errorf("evaluation superseded by newer request")
		}

		return res.job, res.errors, res.err

	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("evaluation timed out after %s", timeout)
		}
		return nil, nil, fmt.Errorf("evaluation canceled: %w", ctx.Err())
	}
}
