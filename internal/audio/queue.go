package audio

import (
	"sync"
)

// DefaultQueueLimit caps the queue while the device is unreachable.
// 50000 chunks is roughly 50 minutes of audio at 8kHz.
const DefaultQueueLimit = 50000

// ChunkQueue is a FIFO of audio chunks awaiting transmission for one device.
// While limited (device not yet streaming) insertion beyond the cap evicts
// the oldest chunk, favoring recency over completeness. Safe for one
// producer (the dispatcher) and one consumer (the send loop).
type ChunkQueue struct {
	mu      sync.Mutex
	chunks  [][]byte
	head    int
	limit   int
	limited bool

	// Eviction accounting for monitoring
	dropped uint64
}

// NewChunkQueue creates a queue with the given unconnected cap.
// A non-positive limit falls back to DefaultQueueLimit.
func NewChunkQueue(limit int) *ChunkQueue {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	return &ChunkQueue{
		limit:   limit,
		limited: true,
	}
}

// Push appends a chunk, evicting the oldest one first when the queue is
// limited and already at capacity. Returns true when an eviction occurred.
func (q *ChunkQueue) Push(chunk []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	evicted := false
	if q.limited && q.length() >= q.limit {
		q.popLocked()
		q.dropped++
		evicted = true
	}

	q.chunks = append(q.chunks, chunk)
	return evicted
}

// PopFront removes and returns the oldest chunk, or nil when empty.
func (q *ChunkQueue) PopFront() []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// Len returns the number of queued chunks.
func (q *ChunkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length()
}

// Dropped returns the total number of chunks evicted so far.
func (q *ChunkQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// SetLimited toggles cap enforcement. The client disables the cap once the
// device reaches the streaming state and re-enables it on disconnect.
func (q *ChunkQueue) SetLimited(limited bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.limited = limited
}

func (q *ChunkQueue) length() int {
	return len(q.chunks) - q.head
}

func (q *ChunkQueue) popLocked() []byte {
	if q.head >= len(q.chunks) {
		return nil
	}

	chunk := q.chunks[q.head]
	q.chunks[q.head] = nil
	q.head++

	// Reclaim the consumed prefix once it dominates the slice
	if q.head > 1024 && q.head*2 >= len(q.chunks) {
		remaining := copy(q.chunks, q.chunks[q.head:])
		for i := remaining; i < len(q.chunks); i++ {
			q.chunks[i] = nil
		}
		q.chunks = q.chunks[:remaining]
		q.head = 0
	}

	return chunk
}
