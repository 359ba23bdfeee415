// Package engine provides the parallel execution core that drives a
// per-item transform over a streamed input with configurable concurrency,
// bounded-queue backpressure policies and retry orchestration.
//
// # Key Components
//
// Execute: the single entry point. It admits items from an input channel
// into a bounded admission queue, drains the queue with a pool of workers,
// runs every item through the retry orchestrator and produces a lazy,
// single-pass output stream.
//
// Options: the per-node-execution configuration, resolved once before any
// goroutine starts. There is no ambient per-item configuration lookup.
//
// Metrics: lock-free counters shared by the producer, the workers and the
// output reader for the lifetime of one execution.
//
// Observer: an optional event sink for drop, retry and periodic
// queue-metrics events. Dispatch is decoupled from the hot path by a
// bounded internal buffer; under backpressure observer events are
// dropped, never items.
//
// # Queue Policies
//
// Block suspends the producer while the queue is full, which makes
// admission the natural backpressure point. DropNewest discards incoming
// items while the queue is full. DropOldest evicts buffered items to
// admit new ones, giving a sliding-window of the most recent input.
//
// # Ordering
//
// Under Block with PreserveOrdering (the default) results are reassembled
// into input arrival order regardless of completion order, and
// OutputBufferCapacity bounds how far completed results may run ahead of
// downstream consumption. Drop policies always produce unordered output
// since admission itself may evict or reorder input.
//
// # Example Usage
//
//	opts := engine.DefaultOptions().
//		WithNodeID("enrich").
//		WithMaxParallelism(8).
//		WithRetries(3, strategy).
//		WithErrorHandler(handler)
//
//	stream, err := engine.Execute(ctx, engine.FromSlice(items), transform, opts)
//	if err != nil {
//		return err
//	}
//	for v := range stream.Items() {
//		// consume results
//	}
//	if err := stream.Err(); err != nil {
//		// the execution faulted
//	}
package engine
