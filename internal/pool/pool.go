// Package pool runs independent tasks over a bounded number of goroutines.
package pool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// Func processes a single item.
type Func[T, R any] func(ctx context.Context, item T) (R, error)

// Result is the outcome of one item.
type Result[T, R any] struct {
	Item  T
	Value R
	Err   error
}

// PanicError reports a task that panicked instead of returning.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Stream processes items with at most workers goroutines and sends one Result per item,
// in completion order. The channel is closed after every item has been reported.
//
// A failing or panicking task affects only its own Result. Once ctx is done no further
// items are handed to workers; those items are reported with ctx.Err(). Items already
// handed to a worker run to completion.
func Stream[T, R any](ctx context.Context, items []T, workers int, fn Func[T, R]) <-chan Result[T, R] {
	if workers <= 0 {
		workers = 1
	}
	workers = min(workers, max(len(items), 1))

	tasks := make(chan T)
	results := make(chan Result[T, R], workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range tasks {
				results <- run(ctx, item, fn)
			}
		}()
	}

	go func() {
		defer func() {
			wg.Wait()
			close(results)
		}()
		defer close(tasks)
		for i, item := range items {
			select {
			case <-ctx.Done():
				for _, skipped := range items[i:] {
					results <- Result[T, R]{Item: skipped, Err: ctx.Err()}
				}
				return
			case tasks <- item:
			}
		}
	}()

	return results
}

// Map is Stream collected into a slice.
func Map[T, R any](ctx context.Context, items []T, workers int, fn Func[T, R]) []Result[T, R] {
	out := make([]Result[T, R], 0, len(items))
	for res := range Stream(ctx, items, workers, fn) {
		out = append(out, res)
	}
	return out
}

func run[T, R any](ctx context.Context, item T, fn Func[T, R]) (res Result[T, R]) {
	res.Item = item
	defer func() {
		if r := recover(); r != nil {
			res.Err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	res.Value, res.Err = fn(ctx, item)
	return res
}
