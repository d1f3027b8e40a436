package generate

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/fbrzx/dw-simulator/internal/registry"
)

// Runner wraps the engine with run-lifecycle bookkeeping: it claims the
// experiment's run slot before generating and records the terminal state
// afterwards. The engine itself stays free of persistence concerns.
type Runner struct {
	engine *Engine
	reg    *registry.Registry
}

func NewRunner(engine *Engine, reg *registry.Registry) *Runner {
	return &Runner{engine: engine, reg: reg}
}

// Run executes one guarded generation run. A *registry.ErrRunActive from the
// guard is returned as-is so callers can poll instead of failing hard.
// Cancellation between batches marks the run ABORTED; any generation error
// marks it FAILED with full diagnostic detail.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, *registry.Run, error) {
	seed := ResolveSeed(req.Seed)
	req.Seed = &seed

	run, err := r.reg.Start(ctx, req.Schema.Name, seed)
	if err != nil {
		return nil, nil, err
	}

	res, err := r.engine.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if abortErr := r.reg.Abort(context.WithoutCancel(ctx), run.ID); abortErr != nil {
				return nil, run, fmt.Errorf("generation aborted and run record update failed: %v (original: %w)", abortErr, err)
			}
			return nil, run, err
		}

		detail := fmt.Sprintf("%T: %v\n%s", err, err, debug.Stack())
		if failErr := r.reg.Fail(context.WithoutCancel(ctx), run.ID, detail); failErr != nil {
			return nil, run, fmt.Errorf("generation failed and run record update failed: %v (original: %w)", failErr, err)
		}
		return nil, run, err
	}

	if err := r.reg.Complete(ctx, run.ID, res.RowCounts()); err != nil {
		return res, run, fmt.Errorf("generation succeeded but run record update failed: %w", err)
	}
	return res, run, nil
}
