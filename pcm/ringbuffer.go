// SPDX-License-Identifier: EPL-2.0

package pcm

import "fmt"

// Chunk is the address range of one transfer inside the ring.
type Chunk struct {
	Addr uint64
	Len  int
}

// RingBuffer tracks the geometry and positions of a circular DMA buffer.
// It holds no memory of its own: addresses refer to a region owned by the
// allocator. RingBuffer is not safe for concurrent use; the owning Stream
// serialises access.
type RingBuffer struct {
	minInFlight int
	maxInFlight int

	base   uint64
	length int
	period int
	limit  int

	// cursor is the offset of the next chunk to enqueue, read the offset the
	// engine has finished up to.
	cursor int
	read   int

	// inflight holds the lengths of outstanding chunks, oldest first.
	inflight    []int
	head        int
	outstanding int

	completed uint64
	submitted uint64
}

// NewRingBuffer returns an unconfigured ring whose in-flight limit must stay
// within [minInFlight, maxInFlight].
func NewRingBuffer(minInFlight, maxInFlight int) *RingBuffer {
	return &RingBuffer{minInFlight: minInFlight, maxInFlight: maxInFlight}
}

// Configure sets the geometry and resets every position.
func (r *RingBuffer) Configure(base uint64, length, period, limit int) error {
	switch {
	case period <= 0 || length <= 0:
		return fmt.Errorf("%w: length %d, period %d", ErrInvalidGeometry, length, period)
	case length%period != 0:
		return fmt.Errorf("%w: period %d does not divide length %d", ErrInvalidGeometry, period, length)
	case limit < r.minInFlight || limit > r.maxInFlight:
		return fmt.Errorf("%w: in-flight limit %d outside %d-%d", ErrInvalidGeometry, limit, r.minInFlight, r.maxInFlight)
	}

	r.base = base
	r.length = length
	r.period = period
	r.limit = limit
	if cap(r.inflight) < limit {
		r.inflight = make([]int, limit)
	}
	r.inflight = r.inflight[:limit]
	r.Reset()
	return nil
}

// Configured reports whether a geometry is set.
func (r *RingBuffer) Configured() bool { return r.length > 0 }

// Clear drops the geometry.
func (r *RingBuffer) Clear() {
	r.base, r.length, r.period, r.limit = 0, 0, 0, 0
	r.Reset()
}

// Reset moves both positions back to base and forgets outstanding chunks.
func (r *RingBuffer) Reset() {
	r.cursor = 0
	r.read = 0
	r.head = 0
	r.outstanding = 0
	r.completed = 0
	r.submitted = 0
}

// NextChunk returns the range the next transfer should cover. A period that
// would run past the end is cut short; the following chunk starts at base.
func (r *RingBuffer) NextChunk() Chunk {
	n := min(r.period, r.length-r.cursor)
	return Chunk{Addr: r.base + uint64(r.cursor), Len: n}
}

// Commit records c as submitted and moves the cursor past it.
func (r *RingBuffer) Commit(c Chunk) {
	r.inflight[(r.head+r.outstanding)%len(r.inflight)] = c.Len
	r.outstanding++
	r.submitted += uint64(c.Len)
	r.cursor += c.Len
	if r.cursor >= r.length {
		r.cursor = 0
	}
}

// AdvanceOnCompletion retires the oldest outstanding chunk and moves the read
// position past it. It returns the number of bytes retired.
func (r *RingBuffer) AdvanceOnCompletion() int {
	if r.outstanding == 0 {
		return 0
	}
	n := r.inflight[r.head]
	r.head = (r.head + 1) % len(r.inflight)
	r.outstanding--
	r.completed += uint64(n)
	r.read = (r.read + n) % r.length
	return n
}

func (r *RingBuffer) Full() bool       { return r.outstanding >= r.limit }
func (r *RingBuffer) Outstanding() int { return r.outstanding }
func (r *RingBuffer) Limit() int       { return r.limit }
func (r *RingBuffer) Length() int      { return r.length }
func (r *RingBuffer) Period() int      { return r.period }
func (r *RingBuffer) Base() uint64     { return r.base }

// ReadOffset is the byte offset from base up to which transfers completed.
func (r *RingBuffer) ReadOffset() int { return r.read }

// WriteOffset is the byte offset from base of the next chunk.
func (r *RingBuffer) WriteOffset() int { return r.cursor }

// Completed is the total bytes retired since the last reset.
func (r *RingBuffer) Completed() uint64 { return r.completed }

// Submitted is the total bytes committed since the last reset.
func (r *RingBuffer) Submitted() uint64 { return r.submitted }
