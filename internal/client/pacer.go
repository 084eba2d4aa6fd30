package client

import (
	"sync/atomic"
	"time"

	"github.com/realldz/yoosee-intercom/internal/protocol"
)

// Pacing defaults
const (
	DefaultMaxLead         = 2 * time.Second
	DefaultTick            = 10 * time.Millisecond
	DefaultSpeedMultiplier = 1.0
)

// pacerAction is the decision taken for one pacing tick.
type pacerAction int

const (
	actionWait  pacerAction = iota // nothing to do this tick
	actionBurst                    // dequeue and send n chunks back-to-back
	actionSend                     // dequeue and send exactly one chunk
)

// pacer owns the timing state that keeps transmission locked to wall-clock
// audio duration. Two phases: a one-time priming burst that fills the
// device's jitter buffer, then a steady-state throttle bounded by maxLead.
// Not safe for concurrent use; owned exclusively by the client's send loop.
type pacer struct {
	bytesPerSecond  int
	chunkSize       int
	maxLead         time.Duration
	speedMultiplier float64

	startTime      time.Time    // zero until the priming burst completes
	totalBytesSent atomic.Int64 // read concurrently by status snapshots

	now func() time.Time
}

func newPacer(sampleRate int, maxLead time.Duration, speedMultiplier float64) *pacer {
	if maxLead <= 0 {
		maxLead = DefaultMaxLead
	}
	if speedMultiplier <= 0 {
		speedMultiplier = DefaultSpeedMultiplier
	}
	return &pacer{
		bytesPerSecond:  sampleRate * 2, // 16-bit mono PCM
		chunkSize:       protocol.ChunkSize,
		maxLead:         maxLead,
		speedMultiplier: speedMultiplier,
		now:             time.Now,
	}
}

// burstCount is the number of chunks sent back-to-back before pacing starts.
func (p *pacer) burstCount() int {
	return p.bytesPerSecond / p.chunkSize
}

// next decides what the send loop should do given the queue depth. For
// actionBurst the second return value is the number of chunks to send.
func (p *pacer) next(queueLen int) (pacerAction, int) {
	if queueLen == 0 {
		return actionWait, 0
	}

	if p.startTime.IsZero() {
		// Buffering phase: do not start until a full burst has accumulated
		if n := p.burstCount(); queueLen > n {
			return actionBurst, n
		}
		return actionWait, 0
	}

	if p.audioSent() > p.elapsed()+p.maxLead {
		// Ahead of real time beyond the lead window
		return actionWait, 0
	}

	return actionSend, 1
}

// startClock marks the end of the priming burst. Throttling is measured
// from this instant.
func (p *pacer) startClock() {
	p.startTime = p.now()
}

// recordSent accounts payload bytes actually written to the socket.
func (p *pacer) recordSent(payloadBytes int) {
	p.totalBytesSent.Add(int64(payloadBytes))
}

// bytesSent returns the cumulative payload bytes written.
func (p *pacer) bytesSent() int64 {
	return p.totalBytesSent.Load()
}

// elapsed is wall-clock time since the burst, on the monotonic clock.
func (p *pacer) elapsed() time.Duration {
	return p.now().Sub(p.startTime)
}

// audioSent is the playback duration of everything written so far, scaled
// by the playback-rate multiplier.
func (p *pacer) audioSent() time.Duration {
	seconds := float64(p.totalBytesSent.Load()) / float64(p.bytesPerSecond) / p.speedMultiplier
	return time.Duration(seconds * float64(time.Second))
}
