// Package pool runs independent units of work with a fixed upper bound on how
// many are in flight at once.
//
// Every unit's outcome is recorded at the unit's input index as a [Result]; a
// failing unit never cancels or blocks its siblings, and [Run] itself never
// fails. Timeouts are each unit's own responsibility.
package pool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the in-flight limit used when a caller passes n < 1.
const DefaultConcurrency = 12

// Task is one unit of work.
type Task[T any] func(ctx context.Context) (T, error)

// Result holds either the value a Task produced or the error it failed with.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the unit succeeded.
func (r Result[T]) OK() bool { return r.Err == nil }

// Run executes tasks with at most n in flight and returns one Result per task,
// in input order. A panicking task is recorded as a failure.
func Run[T any](ctx context.Context, n int, tasks []Task[T]) []Result[T] {
	results := make([]Result[T], len(tasks))
	if len(tasks) == 0 {
		return results
	}
	if n < 1 {
		n = DefaultConcurrency
	}

	var g errgroup.Group
	g.SetLimit(min(n, len(tasks)))
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = call(ctx, task)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Map applies fn to every item through Run.
func Map[In, Out any](ctx context.Context, n int, items []In, fn func(context.Context, In) (Out, error)) []Result[Out] {
	tasks := make([]Task[Out], len(items))
	for i, item := range items {
		tasks[i] = func(ctx context.Context) (Out, error) { return fn(ctx, item) }
	}
	return Run(ctx, n, tasks)
}

func call[T any](ctx context.Context, task Task[T]) (r Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			r = Result[T]{Err: fmt.Errorf("pool: task panicked: %v", p)}
		}
	}()
	v, err := task(ctx)
	return Result[T]{Value: v, Err: err}
}
