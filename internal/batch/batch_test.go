package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessor_ProcessConcurrent(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	t.Run("AllBatchesRunDespiteFailures", func(t *testing.T) {
		p := NewProcessorWithDefaults[string]()
		var mu sync.Mutex
		seen := map[string]bool{}
		sentinel := errors.New("boom")

		err := p.ProcessConcurrent(context.Background(), items, func(_ context.Context, batch []string, _ int) error {
			mu.Lock()
			seen[batch[0]] = true
			mu.Unlock()
			if batch[0] == "b" || batch[0] == "d" {
				return sentinel
			}
			return nil
		}, 2)

		require.Error(t, err)
		assert.ErrorIs(t, err, sentinel)
		assert.Len(t, seen, len(items))
	})

	t.Run("RespectsConcurrencyLimit", func(t *testing.T) {
		p := NewProcessorWithDefaults[string]()
		var inFlight, peak int32

		err := p.ProcessConcurrent(context.Background(), items, func(context.Context, []string, int) error {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			atomic.AddInt32(&inFlight, -1)
			return nil
		}, 2)

		require.NoError(t, err)
		assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	})

	t.Run("EmptyItems", func(t *testing.T) {
		p := NewProcessorWithDefaults[string]()
		err := p.ProcessConcurrent(context.Background(), nil, func(context.Context, []string, int) error {
			t.Fatal("callback must not run for empty input")
			return nil
		}, 2)
		assert.NoError(t, err)
	})

	t.Run("NilCallback", func(t *testing.T) {
		p := NewProcessorWithDefaults[string]()
		assert.ErrorIs(t, p.ProcessConcurrent(context.Background(), items, nil, 2), ErrNilCallback)
	})

	t.Run("CancelledContextSkipsBatches", func(t *testing.T) {
		p := NewProcessorWithDefaults[string]()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := p.ProcessConcurrent(ctx, items, func(context.Context, []string, int) error {
			return nil
		}, 1)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("ProgressReportsFailures", func(t *testing.T) {
		var last ProgressSnapshot
		var mu sync.Mutex
		p := NewProcessorWithDefaults[string]().WithProgressCallback(func(s ProgressSnapshot) {
			mu.Lock()
			defer mu.Unlock()
			if s.ProcessedBatches > last.ProcessedBatches {
				last = s
			}
		})

		_ = p.ProcessConcurrent(context.Background(), items, func(_ context.Context, batch []string, _ int) error {
			if batch[0] == "c" {
				return errors.New("fail")
			}
			return nil
		}, 3)

		assert.Equal(t, len(items), last.ProcessedBatches)
		assert.Equal(t, 1, last.FailedBatches)
		assert.InDelta(t, 100.0, last.PercentComplete, 0.001)
		assert.True(t, last.Complete)
	})
}

func TestProcessor_Batches(t *testing.T) {
	p := &Processor[int]{batchSize: 10}
	bounds := p.Batches(25)
	require.Len(t, bounds, 3)
	assert.Equal(t, [2]int{0, 10}, bounds[0])
	assert.Equal(t, [2]int{10, 20}, bounds[1])
	assert.Equal(t, [2]int{20, 25}, bounds[2])
	assert.Nil(t, p.Batches(0))
	assert.Len(t, NewProcessorWithDefaults[int]().Batches(3), 3)
}

func TestProgress(t *testing.T) {
	p := NewProgress(100, 10, 10)
	assert.False(t, p.Snapshot().Complete)

	p.Add(10, false)
	snap := p.Snapshot()
	assert.InDelta(t, 10.0, snap.PercentComplete, 0.001)
	assert.Equal(t, 1, snap.ProcessedBatches)

	for range 9 {
		p.Add(10, false)
	}
	assert.True(t, p.Snapshot().Complete)
}
