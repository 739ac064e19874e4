// Package series holds the client-side telemetry buffer: an ordered,
// capacity-bounded run of samples and the downsampling regime they came from.
package series

import "github.com/Dicklesworthstone/teledash/internal/model"

// DefaultCapacity is the number of samples retained when no capacity is given.
const DefaultCapacity = 5000

// Meta mirrors the metadata of the history response the buffer was built from.
type Meta struct {
	Mode          string
	BucketSeconds int
	MaxPoints     int
}

// Buffer is an ordered sequence of samples trimmed FIFO to its capacity.
// It does not deduplicate by timestamp and never renders; callers decide
// what goes in and when to redraw. Not safe for concurrent use.
type Buffer struct {
	capacity int
	samples  []model.Sample
	meta     Meta
}

// New creates an empty buffer. A capacity <= 0 selects DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity: capacity,
		meta:     Meta{Mode: model.DefaultMode, BucketSeconds: 1},
	}
}

// Append adds s to the tail and drops the oldest entries beyond capacity.
func (b *Buffer) Append(s model.Sample) {
	b.samples = append(b.samples, s)
	if over := len(b.samples) - b.capacity; over > 0 {
		// Shift in place so the backing array stays bounded.
		n := copy(b.samples, b.samples[over:])
		b.samples = b.samples[:n]
	}
}

// Replace swaps in a new sequence and its metadata in one step. The input
// is copied; only its most recent capacity entries are kept.
func (b *Buffer) Replace(samples []model.Sample, meta Meta) {
	if len(samples) > b.capacity {
		samples = samples[len(samples)-b.capacity:]
	}
	next := make([]model.Sample, len(samples))
	copy(next, samples)
	if meta.BucketSeconds < 1 {
		meta.BucketSeconds = 1
	}
	if meta.Mode == "" {
		meta.Mode = model.DefaultMode
	}
	b.samples = next
	b.meta = meta
}

// Samples returns the buffered samples, oldest first. The slice is shared
// with the buffer and must not be modified.
func (b *Buffer) Samples() []model.Sample { return b.samples }

// Len returns the number of buffered samples.
func (b *Buffer) Len() int { return len(b.samples) }

// Capacity returns the configured maximum length.
func (b *Buffer) Capacity() int { return b.capacity }

// Meta returns the downsampling metadata of the current contents.
func (b *Buffer) Meta() Meta { return b.meta }

// Last returns the newest sample.
func (b *Buffer) Last() (model.Sample, bool) {
	if len(b.samples) == 0 {
		return model.Sample{}, false
	}
	return b.samples[len(b.samples)-1], true
}

// Tail returns up to n of the newest samples in chronological order.
func (b *Buffer) Tail(n int) []model.Sample {
	if n <= 0 {
		return nil
	}
	if n > len(b.samples) {
		n = len(b.samples)
	}
	return b.samples[len(b.samples)-n:]
}

// Span returns the first and last timestamps.
func (b *Buffer) Span() (first, last int64, ok bool) {
	if len(b.samples) == 0 {
		return 0, 0, false
	}
	return b.samples[0].TS, b.samples[len(b.samples)-1].TS, true
}
