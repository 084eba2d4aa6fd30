package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/realldz/yoosee-intercom/internal/audio"
	"github.com/realldz/yoosee-intercom/internal/metrics"
	"github.com/realldz/yoosee-intercom/internal/protocol"
)

// Connection states for one device
const (
	StateDisconnected   = "disconnected"
	StateConnecting     = "connecting"
	StateAwaitingAccept = "awaiting_accept"
	StateStreaming      = "streaming"
	StateClosing        = "closing"
	StateClosed         = "closed"
)

// State machine events
const (
	eventDial      = "dial"
	eventHandshake = "handshake"
	eventAccept    = "accept"
	eventDrop      = "drop"
	eventStop      = "stop"
	eventClose     = "close"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultCloseGrace     = 50 * time.Millisecond

	readBufferSize = 4096
)

// ErrClosed is returned when a send is attempted after the socket is gone.
var ErrClosed = errors.New("client: connection closed")

// Target identifies one configured device. Immutable for the process
// lifetime.
type Target struct {
	Address    string
	Port       int
	SampleRate int
}

// Addr returns the dialable host:port form.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Address, strconv.Itoa(t.Port))
}

// BytesPerSecond is the real-time payload rate for 16-bit mono PCM.
func (t Target) BytesPerSecond() int {
	return t.SampleRate * 2
}

// Options tunes a device client. Zero values select defaults.
type Options struct {
	QueueLimit      int           // unconnected queue cap (chunks)
	MaxLead         time.Duration // how far audio may run ahead of wall clock
	SpeedMultiplier float64       // playback-rate scalar
	Tick            time.Duration // pacing tick interval
	ConnectTimeout  time.Duration
	CloseGrace      time.Duration // flush delay between CLOSE and socket close
	Metrics         *metrics.Metrics

	// Dial overrides the network dialer, used by tests
	Dial func(network, address string, timeout time.Duration) (net.Conn, error)
}

// Client streams paced audio to one device: connect, handshake,
// stream-with-pacing, disconnect. Exactly one live socket per target.
type Client struct {
	target    Target
	sessionID string
	opts      Options
	logger    *slog.Logger
	metrics   *metrics.Metrics

	queue *audio.ChunkQueue
	pacer *pacer
	state *fsm.FSM

	mu             sync.Mutex // guards conn and streamingSince
	conn           net.Conn
	streamingSince time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stopOnce sync.Once

	frame []byte // send-loop scratch buffer
}

// New creates a device client and connects immediately. On connection
// failure the client transitions to closed and the error is returned; the
// caller decides whether losing this target is fatal.
func New(target Target, logger *slog.Logger, opts Options) (*Client, error) {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.CloseGrace <= 0 {
		opts.CloseGrace = DefaultCloseGrace
	}
	if opts.Dial == nil {
		opts.Dial = net.DialTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		target:    target,
		sessionID: uuid.New().String(),
		opts:      opts,
		metrics:   opts.Metrics,
		queue:     audio.NewChunkQueue(opts.QueueLimit),
		pacer:     newPacer(target.SampleRate, opts.MaxLead, opts.SpeedMultiplier),
		state:     newConnectionFSM(),
		ctx:       ctx,
		cancel:    cancel,
		frame:     make([]byte, 0, protocol.FrameSize),
	}
	c.logger = logger.With(
		slog.String("target", target.Addr()),
		slog.String("session_id", c.sessionID),
	)

	if err := c.connect(); err != nil {
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.mu.Unlock()
		cancel()
		c.event(eventStop)
		c.event(eventClose)
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.sendLoop()

	return c, nil
}

// newConnectionFSM builds the per-device connection state machine.
func newConnectionFSM() *fsm.FSM {
	return fsm.NewFSM(
		StateDisconnected,
		fsm.Events{
			{Name: eventDial, Src: []string{StateDisconnected}, Dst: StateConnecting},
			{Name: eventHandshake, Src: []string{StateConnecting}, Dst: StateAwaitingAccept},
			{Name: eventAccept, Src: []string{StateAwaitingAccept}, Dst: StateStreaming},
			{Name: eventDrop, Src: []string{StateAwaitingAccept, StateStreaming}, Dst: StateDisconnected},
			{Name: eventStop, Src: []string{StateDisconnected, StateConnecting, StateAwaitingAccept, StateStreaming}, Dst: StateClosing},
			{Name: eventClose, Src: []string{StateClosing}, Dst: StateClosed},
		}, nil,
	)
}

func (c *Client) connect() error {
	c.event(eventDial)
	c.logger.Info("Connecting to device")

	conn, err := c.opts.Dial("tcp", c.target.Addr(), c.opts.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.target.Addr(), err)
	}

	// The handshake must complete within the connect timeout; the deadline
	// is lifted once the device accepts
	if err := conn.SetDeadline(time.Now().Add(c.opts.ConnectTimeout)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set handshake deadline: %w", err)
	}

	if _, err := conn.Write(protocol.OpenCommand(c.target.Address)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to send OPEN command: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.event(eventHandshake)
	c.logger.Debug("Sent OPEN command, awaiting accept")

	return nil
}

// Enqueue buffers one chunk for transmission. Safe to call in any state;
// while the device is unreachable the queue caps itself by evicting the
// oldest chunk.
func (c *Client) Enqueue(chunk []byte) {
	evicted := c.queue.Push(chunk)
	if evicted {
		c.logger.Debug("Queue full while disconnected, dropped oldest chunk")
	}
	if c.metrics != nil {
		c.metrics.RecordEnqueue(c.target.Addr(), evicted)
	}
}

// QueueLen reports the number of chunks awaiting transmission, used by the
// CLI for drain detection.
func (c *Client) QueueLen() int {
	return c.queue.Len()
}

// State returns the current connection state.
func (c *Client) State() string {
	return c.state.Current()
}

// Target returns the device this client streams to.
func (c *Client) Target() Target {
	return c.target
}

// Stop sends the CLOSE command best-effort, waits briefly for it to flush,
// then tears the connection down. Idempotent.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		c.event(eventStop)
		c.logger.Info("Disconnecting from device")

		if conn := c.currentConn(); conn != nil {
			// Best-effort: the device may already be gone
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			if _, err := conn.Write(protocol.CloseCommand(c.target.Address)); err != nil {
				c.logger.Debug("CLOSE command not delivered", slog.String("error", err.Error()))
			}
			time.Sleep(c.opts.CloseGrace)
		}

		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.mu.Unlock()

		c.cancel()
		c.event(eventClose)
		c.wg.Wait()
	})
}

// readLoop consumes inbound data: it recognizes the handshake accept and
// otherwise drains diagnostics until the stream ends.
func (c *Client) readLoop() {
	defer c.wg.Done()

	buf := make([]byte, readBufferSize)
	for {
		conn := c.currentConn()
		if conn == nil {
			return
		}

		n, err := conn.Read(buf)
		if err != nil {
			c.handleDisconnect(err)
			return
		}

		data := buf[:n]
		if c.state.Current() == StateAwaitingAccept && protocol.IsAcceptResponse(data) {
			c.onAccept(conn)
			continue
		}

		// Inbound data while streaming carries nothing actionable
		c.logger.Debug("Inbound data ignored", slog.Int("bytes", n))
	}
}

// onAccept moves the client into the streaming state: the read deadline is
// lifted (streaming is long-lived) and the queue cap is released since the
// send loop now drains it at real-time rate.
func (c *Client) onAccept(conn net.Conn) {
	if err := conn.SetDeadline(time.Time{}); err != nil {
		c.logger.Warn("Failed to clear socket deadline", slog.String("error", err.Error()))
	}

	c.event(eventAccept)
	c.queue.SetLimited(false)

	c.mu.Lock()
	c.streamingSince = time.Now()
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordConnect(c.target.Addr())
	}
	c.logger.Info("Device accepted audio channel, ready to stream")
}

// handleDisconnect reacts to a broken socket: pacing halts via the state
// machine, the queue cap is restored, and no reconnect is attempted.
func (c *Client) handleDisconnect(cause error) {
	switch c.state.Current() {
	case StateClosing, StateClosed:
		// Expected: Stop closed the socket under us
		return
	}

	c.event(eventDrop)
	c.queue.SetLimited(true)

	c.mu.Lock()
	since := c.streamingSince
	c.streamingSince = time.Time{}
	c.mu.Unlock()

	var streamed float64
	if !since.IsZero() {
		streamed = time.Since(since).Seconds()
	}
	if c.metrics != nil {
		c.metrics.RecordDisconnect(c.target.Addr(), streamed)
	}

	c.logger.Warn("Device connection lost",
		slog.String("error", cause.Error()),
		slog.Float64("streamed_seconds", streamed),
	)
}

// sendLoop runs the pacing engine: every tick it either bursts, sends one
// chunk, or waits, while the client is streaming.
func (c *Client) sendLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
		}

		if c.state.Current() != StateStreaming {
			continue
		}

		action, n := c.pacer.next(c.queue.Len())
		switch action {
		case actionWait:
			// Queue empty, still buffering, or ahead of real time

		case actionBurst:
			c.logger.Info("Bursting chunks to prime device buffer", slog.Int("count", n))
			for i := 0; i < n; i++ {
				chunk := c.queue.PopFront()
				if chunk == nil {
					break
				}
				if err := c.sendFrame(chunk, true); err != nil {
					break
				}
			}
			c.pacer.startClock()

		case actionSend:
			if chunk := c.queue.PopFront(); chunk != nil {
				c.sendFrame(chunk, false)
			}
		}

		if c.metrics != nil {
			c.metrics.SetQueueDepth(c.target.Addr(), c.queue.Len())
		}
	}
}

// sendFrame encodes and writes one chunk. A chunk that fails to write is
// lost; the state machine registers the disconnect so pacing halts on the
// next tick.
func (c *Client) sendFrame(chunk []byte, burst bool) error {
	conn := c.currentConn()
	if conn == nil {
		return ErrClosed
	}

	frame, err := protocol.AppendFrame(c.frame, chunk)
	if err != nil {
		return err
	}
	c.frame = frame

	if _, err := conn.Write(frame); err != nil {
		if c.metrics != nil {
			c.metrics.RecordSendError(c.target.Addr())
		}
		c.logger.Error("Frame write failed, chunk lost", slog.String("error", err.Error()))
		c.handleDisconnect(err)
		return err
	}

	c.pacer.recordSent(len(chunk))
	if c.metrics != nil {
		c.metrics.RecordChunkSent(c.target.Addr(), len(chunk), burst)
	}
	return nil
}

func (c *Client) currentConn() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// event fires a state transition, ignoring transitions that are invalid for
// the current state (e.g. a drop racing a stop).
func (c *Client) event(name string) {
	if err := c.state.Event(context.Background(), name); err != nil {
		c.logger.Debug("State transition skipped",
			slog.String("event", name),
			slog.String("state", c.state.Current()),
		)
	}
}
