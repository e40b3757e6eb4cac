package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Job is one adapter invocation requested from the runner.
type Job struct {
	Name      string
	Task      Task
	OutputDir string
}

// Outcome is what came back from one job. Exactly one of Summary and Err is
// meaningful; TimedOut is set when the per-scanner timeout fired first.
type Outcome struct {
	Name        string
	Summary     Summary
	Err         error
	TimedOut    bool
	StartedAt   time.Time
	CompletedAt time.Time
}

// Options holds runner-wide execution parameters.
type Options struct {
	Parallel    bool
	Concurrency int
	Timeout     time.Duration
}

// DefaultOptions runs the scanners in parallel with no per-scanner timeout.
func DefaultOptions() Options {
	return Options{
		Parallel:    true,
		Concurrency: 2,
	}
}

// Runner orchestrates adapter execution.
type Runner struct {
	registry *Registry
	logger   *slog.Logger
}

// NewRunner creates a runner backed by the given registry.
func NewRunner(registry *Registry, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{registry: registry, logger: logger}
}

// InvokeAll executes every job and returns one outcome per job, in job order.
// A failing job never stops the others; all branches are joined before
// InvokeAll returns. In parallel mode the number of in-flight adapters is
// bounded by opts.Concurrency.
func (r *Runner) InvokeAll(ctx context.Context, jobs []Job, opts Options) []Outcome {
	outcomes := make([]Outcome, len(jobs))

	if !opts.Parallel {
		for i, job := range jobs {
			outcomes[i] = r.invoke(ctx, job, opts.Timeout)
		}
		return outcomes
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				now := time.Now()
				outcomes[i] = Outcome{Name: job.Name, Err: ctx.Err(), StartedAt: now, CompletedAt: now}
				return
			}

			outcomes[i] = r.invoke(ctx, job, opts.Timeout)
		}(i, job)
	}

	wg.Wait()
	return outcomes
}

type invokeResult struct {
	summary Summary
	err     error
}

func (r *Runner) invoke(ctx context.Context, job Job, timeout time.Duration) (out Outcome) {
	out = Outcome{Name: job.Name, StartedAt: time.Now()}
	defer func() { out.CompletedAt = time.Now() }()

	adapter, err := r.registry.Get(job.Name)
	if err != nil {
		out.Err = err
		return out
	}

	invokeCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		invokeCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	log := r.logger.With("scanner", job.Name, "task_id", job.Task.TaskID)
	log.Debug("invoking scanner", "output_dir", job.OutputDir)

	// Buffered so an adapter that ignores cancellation can still finish
	// without blocking after we stopped waiting for it.
	done := make(chan invokeResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- invokeResult{err: fmt.Errorf("scanner panicked: %v", p)}
			}
		}()
		summary, err := adapter.Invoke(invokeCtx, job.Task, job.OutputDir)
		done <- invokeResult{summary: summary, err: err}
	}()

	if res, ok := awaitResult(invokeCtx, done); ok {
		out.Summary, out.Err = res.summary, res.err
		if out.Err == nil && out.Summary == nil {
			out.Err = errors.New("scanner returned no summary")
		}
		if out.Err == nil {
			if cloned, err := out.Summary.Clone(); err != nil {
				out.Summary, out.Err = nil, fmt.Errorf("summary is not a JSON document: %w", err)
			} else {
				out.Summary = cloned
			}
		}
	} else {
		out.Err = invokeCtx.Err()
	}

	if timeout > 0 && ctx.Err() == nil && errors.Is(out.Err, context.DeadlineExceeded) {
		out.TimedOut = true
		out.Err = fmt.Errorf("scanner timed out after %s: %w", timeout, out.Err)
	}

	if out.Err != nil {
		out.Summary = nil
		log.Warn("scanner failed", "error", out.Err, "timed_out", out.TimedOut)
	} else {
		log.Debug("scanner finished", "elapsed", time.Since(out.StartedAt))
	}
	return out
}

// awaitResult waits for the adapter or for ctx. A result that is already
// waiting when ctx ends still wins.
func awaitResult(ctx context.Context, done <-chan invokeResult) (invokeResult, bool) {
	select {
	case res := <-done:
		return res, true
	case <-ctx.Done():
		select {
		case res := <-done:
			return res, true
		default:
			return invokeResult{}, false
		}
	}
}
