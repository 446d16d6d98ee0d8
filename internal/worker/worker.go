// Package worker runs single-flight background jobs.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

// Result is delivered once per job.
type Result struct {
	Success bool
	Err     error
}

// Job is the unit of work run by a Slot.
type Job func(ctx context.Context) error

// Slot admits at most one running job. It is a one-token semaphore: a caller
// that cannot take the token fails fast instead of queueing.
type Slot struct {
	name  string
	token chan struct{}
	wg    sync.WaitGroup
}

// NewSlot creates an idle slot. name appears in error messages.
func NewSlot(name string) *Slot {
	return &Slot{name: name, token: make(chan struct{}, 1)}
}

// Name returns the slot name.
func (s *Slot) Name() string { return s.name }

// Busy reports whether a job currently holds the slot.
func (s *Slot) Busy() bool { return len(s.token) == 1 }

// TryGo starts job on a new goroutine if the slot is free and returns a
// channel that receives exactly one Result. If another job is running it
// returns ErrBusy without starting anything. A panic inside job is recovered
// and reported as a failed Result.
func (s *Slot) TryGo(ctx context.Context, job Job) (<-chan Result, error) {
	select {
	case s.token <- struct{}{}:
	default:
		return nil, fmt.Errorf("%s: %w", s.name, pderrors.ErrBusy)
	}

	out := make(chan Result, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.token }()

		err := run(ctx, job)
		out <- Result{Success: err == nil, Err: err}
		close(out)
	}()
	return out, nil
}

// Wait blocks until the running job, if any, has finished.
func (s *Slot) Wait() {
	s.wg.Wait()
}

func run(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v\n%s", r, debug.Stack())
		}
	}()
	return job(ctx)
}

// Group tracks fire-and-forget goroutines so shutdown can wait for them.
type Group struct {
	wg sync.WaitGroup
}

// Go runs fn on a new goroutine, recovering panics into onPanic when set.
func (g *Group) Go(fn func(), onPanic func(error)) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil && onPanic != nil {
				onPanic(fmt.Errorf("worker panic: %v", r))
			}
		}()
		fn()
	}()
}

// Wait blocks until every goroutine started with Go has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}
