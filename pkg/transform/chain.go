// Package transform ships ready-made per-item transforms for engine
// executions: a configurable string cleaner, a pooled JavaScript runner and
// combinators for composing stages. Every transform here matches the
// engine.Transform contract, so each plugs straight into engine.Execute.
package transform

import (
	"context"

	"github.com/wehubfusion/Daedalus/pkg/engine"
)

// Chain composes two transforms left to right: the output of first feeds
// second. An error from either stage short-circuits the chain.
func Chain[A, B, C any](first engine.Transform[A, B], second engine.Transform[B, C]) engine.Transform[A, C] {
	return func(ctx context.Context, item A) (C, error) {
		mid, err := first(ctx, item)
		if err != nil {
			var zero C
			return zero, err
		}
		return second(ctx, mid)
	}
}

// Pipeline composes any number of same-type transforms left to right.
func Pipeline[T any](stages ...engine.Transform[T, T]) engine.Transform[T, T] {
	return func(ctx context.Context, item T) (T, error) {
		var err error
		for _, stage := range stages {
			item, err = stage(ctx, item)
			if err != nil {
				var zero T
				return zero, err
			}
		}
		return item, nil
	}
}
