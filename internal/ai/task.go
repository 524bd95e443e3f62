package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/Coin333/courage-reps/pkg/models"
	"go.uber.org/zap"
)

// DefaultTimeout bounds one analysis when the caller gives no timeout
const DefaultTimeout = 20 * time.Second

// Result is the outcome of an analysis task. Feedback is always usable;
// Fallback is set when it came from Fallback rather than the analyzer.
type Result struct {
	Feedback models.Feedback
	Fallback bool
	Err      error
}

// Task is a running analysis. It finishes on its own within the timeout;
// callers that lose interest can Cancel it.
type Task struct {
	done   chan struct{}
	cancel context.CancelFunc
	result Result
}

// Run starts analyzing req in the background
func Run(ctx context.Context, analyzer Analyzer, req Request, timeout time.Duration, logger *zap.Logger) *Task {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	t := &Task{done: make(chan struct{}), cancel: cancel}

	go func() {
		defer close(t.done)
		defer cancel()
		t.result = analyze(ctx, analyzer, req)
		if t.result.Err != nil {
			logger.Warn("Feedback analysis failed, using fallback", zap.Error(t.result.Err))
		}
	}()
	return t
}

func analyze(ctx context.Context, analyzer Analyzer, req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Feedback: Fallback(), Fallback: true, Err: fmt.Errorf("analyzer panicked: %v", r)}
		}
	}()

	fb, err := analyzer.Analyze(ctx, req)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return Result{Feedback: Fallback(), Fallback: true, Err: err}
	}
	return Result{Feedback: fb}
}

// Done is closed once the result is available
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Result returns the result if the task has finished
func (t *Task) Result() (Result, bool) {
	select {
	case <-t.done:
		return t.result, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the task finishes or ctx ends. When ctx ends first the
// task is cancelled and the fallback is returned.
func (t *Task) Wait(ctx context.Context) Result {
	select {
	case <-t.done:
		return t.result
	case <-ctx.Done():
		t.cancel()
		return Result{Feedback: Fallback(), Fallback: true, Err: ctx.Err()}
	}
}

// Cancel abandons the task
func (t *Task) Cancel() {
	t.cancel()
}

// Analyze runs analyzer synchronously with the timeout and fallback rules of Run
func Analyze(ctx context.Context, analyzer Analyzer, req Request, timeout time.Duration, logger *zap.Logger) Result {
	return Run(ctx, analyzer, req, timeout, logger).Wait(ctx)
}
