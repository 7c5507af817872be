package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Batch size and concurrency defaults.
const (
	// DefaultBatchSize is the number of items handed to one callback.
	DefaultBatchSize = 1

	// DefaultConcurrency is used when a caller asks for less than one worker.
	DefaultConcurrency = 1
)

// ErrNilCallback is returned when no callback is given.
var ErrNilCallback = errors.New("batch callback cannot be nil")

// Callback processes one batch. index is the 0-based batch number.
type Callback[T any] func(ctx context.Context, items []T, index int) error

// ProgressCallback is invoked after every batch, successful or not.
type ProgressCallback func(snapshot ProgressSnapshot)

// Processor runs callbacks over fixed-size batches of a slice.
type Processor[T any] struct {
	batchSize  int
	onProgress ProgressCallback
}

// NewProcessorWithDefaults creates a processor with DefaultBatchSize.
func NewProcessorWithDefaults[T any]() *Processor[T] {
	return &Processor[T]{batchSize: DefaultBatchSize}
}

// WithProgressCallback sets the progress callback and returns p.
func (p *Processor[T]) WithProgressCallback(callback ProgressCallback) *Processor[T] {
	p.onProgress = callback
	return p
}

// ProcessConcurrent runs callback over every batch using at most
// maxConcurrency goroutines. Every batch runs even when others fail; the
// failures are joined into the returned error. Batches that have not started
// when ctx is cancelled are skipped and the context error is included.
func (p *Processor[T]) ProcessConcurrent(
	ctx context.Context,
	items []T,
	callback Callback[T],
	maxConcurrency int,
) error {
	if callback == nil {
		return ErrNilCallback
	}
	if maxConcurrency < 1 {
		maxConcurrency = DefaultConcurrency
	}

	bounds := p.Batches(len(items))
	if len(bounds) == 0 {
		return nil
	}
	progress := NewProgress(len(items), len(bounds), p.batchSize)

	sem := make(chan struct{}, maxConcurrency)
	errs := make([]error, len(bounds))
	var wg sync.WaitGroup

launch:
	for i, b := range bounds {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			break
		}
		select {
		case <-ctx.Done():
			errs[i] = ctx.Err()
			break launch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(index int, batch []T) {
			defer wg.Done()
			defer func() { <-sem }()

			err := callback(ctx, batch, index)
			if err != nil {
				errs[index] = fmt.Errorf("batch %d failed: %w", index, err)
			}
			p.report(progress, len(batch), err != nil)
		}(i, items[b[0]:b[1]])
	}

	wg.Wait()
	return errors.Join(errs...)
}

// Batches returns the [start, end) bounds of each batch for totalItems items.
func (p *Processor[T]) Batches(totalItems int) [][2]int {
	if totalItems <= 0 {
		return nil
	}
	count := (totalItems + p.batchSize - 1) / p.batchSize
	bounds := make([][2]int, count)
	for i := range count {
		start := i * p.batchSize
		end := min(start+p.batchSize, totalItems)
		bounds[i] = [2]int{start, end}
	}
	return bounds
}

func (p *Processor[T]) report(progress *Progress, items int, failed bool) {
	progress.Add(items, failed)
	if p.onProgress != nil {
		p.onProgress(progress.Snapshot())
	}
}
