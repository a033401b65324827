package adxl345

import "sync"

// DefaultBufferCap bounds the number of batches held in memory for one
// capture session. Captures are often left running unattended; once
// the cap is reached further batches are dropped rather than growing
// without limit. The loss shows up in the drop statistics at stop
// time, never as an error.
const DefaultBufferCap = 200000

// RawBatch is one delivered group of raw sample bytes with its
// sequence already extended. Immutable once stored.
type RawBatch struct {
	Sequence uint32
	Payload  []byte
}

// Buffer is the sample ingest buffer: an ordered in-memory log of
// RawBatches, capped at a fixed batch count. Push and Drain are
// mutually exclusive.
type Buffer struct {
	mu      sync.Mutex
	cap     int
	batches []RawBatch
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferCap
	}
	return &Buffer{cap: capacity}
}

// Push appends a batch in arrival order. Once the cap is reached the
// batch is silently dropped.
func (b *Buffer) Push(batch RawBatch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.batches) >= b.cap {
		return
	}
	b.batches = append(b.batches, batch)
}

// Drain atomically empties the buffer and returns its prior contents
// in arrival order. Called once per capture session, at stop time.
func (b *Buffer) Drain() []RawBatch {
	b.mu.Lock()
	defer b.mu.Unlock()
	batches := b.batches
	b.batches = nil
	return batches
}

// Len reports the number of batches currently held.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batches)
}
