// Package concurrency provides the bounded executor driving parallel batch
// runs. Results keep the submission order so a batch summary stays stable
// whatever the worker count.
package concurrency

import (
	"context"
	"sync"
)

// Task is one unit of batch work.
type Task func(ctx context.Context) error

// Executor runs tasks on at most Workers goroutines.
type Executor struct {
	workers int
}

// NewExecutor creates an executor with the given worker bound; values below
// one fall back to sequential execution.
func NewExecutor(workers int) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{workers: workers}
}

// Workers returns the worker bound.
func (e *Executor) Workers() int {
	return e.workers
}

// Run executes all tasks and returns one error slot per task, in submission
// order. A canceled context stops dispatching new tasks; already running
// tasks see the cancellation through their own ctx. Unstarted tasks get
// ctx.Err() as their result.
func (e *Executor) Run(ctx context.Context, tasks []Task) []error {
	if len(tasks) == 0 {
		return nil
	}

	if e.workers == 1 {
		return e.runSequential(ctx, tasks)
	}

	workers := e.workers
	if len(tasks) < workers {
		workers = len(tasks)
	}

	indexes := make(chan int)
	results := make([]error, len(tasks))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				results[idx] = tasks[idx](ctx)
			}
		}()
	}

dispatch:
	for i := range tasks {
		select {
		case indexes <- i:
		case <-ctx.Done():
			for j := i; j < len(tasks); j++ {
				results[j] = ctx.Err()
			}
			break dispatch
		}
	}
	close(indexes)

	wg.Wait()
	return results
}

func (e *Executor) runSequential(ctx context.Context, tasks []Task) []error {
	results := make([]error, len(tasks))
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			results[i] = err
			continue
		}
		results[i] = task(ctx)
	}
	return results
}
