package client

import (
	"log/slog"
	"sync"
	"time"
)

// Manager owns every device client for the process lifetime. Clients
// progress independently; the manager only fans lifecycle operations out and
// aggregates status for monitoring.
type Manager struct {
	mu      sync.RWMutex
	clients []*Client
	logger  *slog.Logger
	started time.Time
}

// ClientInfo is a point-in-time snapshot of one device client for the
// status API.
type ClientInfo struct {
	Target        string  `json:"target"`
	SampleRate    int     `json:"sample_rate"`
	SessionID     string  `json:"session_id"`
	State         string  `json:"state"`
	QueueLen      int     `json:"queue_len"`
	ChunksDropped uint64  `json:"chunks_dropped"`
	BytesSent     int64   `json:"bytes_sent"`
	AudioSentSec  float64 `json:"audio_sent_seconds"`
}

// NewManager creates an empty client manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger:  logger,
		started: time.Now(),
	}
}

// Add registers a connected client.
func (m *Manager) Add(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients = append(m.clients, c)
}

// Clients returns the registered clients in target order.
func (m *Manager) Clients() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Client, len(m.clients))
	copy(out, m.clients)
	return out
}

// Count returns the number of registered clients.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Drained reports whether every client's queue is empty, which the CLI uses
// to decide that playback has finished.
func (m *Manager) Drained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		if c.QueueLen() > 0 {
			return false
		}
	}
	return true
}

// StopAll stops every client. Per-client Stop is idempotent, so StopAll is
// safe to call from both the signal handler and the auto-exit path.
func (m *Manager) StopAll() {
	clients := m.Clients()
	m.logger.Info("Stopping all device clients", slog.Int("count", len(clients)))

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			c.Stop()
		}(c)
	}
	wg.Wait()

	m.logger.Info("All device clients stopped",
		slog.Duration("uptime", time.Since(m.started)),
	)
}

// Snapshots returns status information for every client, for the HTTP
// status endpoint.
func (m *Manager) Snapshots() []ClientInfo {
	clients := m.Clients()
	infos := make([]ClientInfo, 0, len(clients))
	for _, c := range clients {
		infos = append(infos, c.Info())
	}
	return infos
}

// Info returns a snapshot of this client's streaming state.
func (c *Client) Info() ClientInfo {
	return ClientInfo{
		Target:        c.target.Addr(),
		SampleRate:    c.target.SampleRate,
		SessionID:     c.sessionID,
		State:         c.state.Current(),
		QueueLen:      c.queue.Len(),
		ChunksDropped: c.queue.Dropped(),
		BytesSent:     c.pacer.bytesSent(),
		AudioSentSec:  float64(c.pacer.bytesSent()) / float64(c.target.BytesPerSecond()),
	}
}
