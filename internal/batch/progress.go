package batch

import (
	"sync"
	"time"
)

// percentMultiplier converts a ratio to a percentage.
const percentMultiplier = 100

// Progress tracks how far a run has got. It is safe for concurrent use.
type Progress struct {
	totalItems       int
	totalBatches     int
	batchSize        int
	processedItems   int
	processedBatches int
	failedBatches    int
	startTime        time.Time
	lastUpdate       time.Time

	mu sync.RWMutex
}

// ProgressSnapshot is an immutable copy of a Progress.
type ProgressSnapshot struct {
	TotalItems       int
	ProcessedItems   int
	TotalBatches     int
	ProcessedBatches int
	FailedBatches    int
	BatchSize        int
	StartTime        time.Time
	LastUpdateTime   time.Time
	PercentComplete  float64
	ElapsedTime      time.Duration
	// Complete is true once every batch has finished.
	Complete bool
}

// NewProgress creates a tracker for a run of totalItems in totalBatches.
func NewProgress(totalItems, totalBatches, batchSize int) *Progress {
	now := time.Now()
	return &Progress{
		totalItems:   totalItems,
		totalBatches: totalBatches,
		batchSize:    batchSize,
		startTime:    now,
		lastUpdate:   now,
	}
}

// Add records one finished batch of items.
func (p *Progress) Add(items int, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processedItems += items
	p.processedBatches++
	if failed {
		p.failedBatches++
	}
	p.lastUpdate = time.Now()
}

// isComplete reports whether every batch has finished. Callers hold mu.
func (p *Progress) isComplete() bool {
	return p.processedBatches >= p.totalBatches
}

// Snapshot returns a consistent copy of the current state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	percent := 0.0
	if p.totalItems > 0 {
		percent = float64(p.processedItems) / float64(p.totalItems) * percentMultiplier
	}

	return ProgressSnapshot{
		TotalItems:       p.totalItems,
		ProcessedItems:   p.processedItems,
		TotalBatches:     p.totalBatches,
		ProcessedBatches: p.processedBatches,
		FailedBatches:    p.failedBatches,
		BatchSize:        p.batchSize,
		StartTime:        p.startTime,
		LastUpdateTime:   p.lastUpdate,
		PercentComplete:  percent,
		ElapsedTime:      time.Since(p.startTime),
		Complete:         p.isComplete(),
	}
}
