package client

import (
	"testing"
	"time"

	"github.com/realldz/yoosee-intercom/internal/protocol"
)

func TestManagerDrained(t *testing.T) {
	m := NewManager(testLogger())

	if !m.Drained() {
		t.Error("Empty manager should report drained")
	}

	cam := startFakeCamera(t, false)
	c, err := New(testTarget(cam), testLogger(), Options{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer c.Stop()
	m.Add(c)

	if !m.Drained() {
		t.Error("Manager with empty queues should report drained")
	}

	c.Enqueue(make([]byte, protocol.ChunkSize))
	if m.Drained() {
		t.Error("Manager should not report drained with queued chunks")
	}
}

func TestManagerStopAll(t *testing.T) {
	m := NewManager(testLogger())

	cams := []*fakeCamera{startFakeCamera(t, true), startFakeCamera(t, true)}
	for _, cam := range cams {
		c, err := New(testTarget(cam), testLogger(), Options{})
		if err != nil {
			t.Fatalf("New returned error: %v", err)
		}
		m.Add(c)
	}

	for _, c := range m.Clients() {
		waitFor(t, 2*time.Second, "streaming state", func() bool {
			return c.State() == StateStreaming
		})
	}

	m.StopAll()
	m.StopAll() // second call must be harmless

	for _, c := range m.Clients() {
		if c.State() != StateClosed {
			t.Errorf("Expected closed state after StopAll, got %s", c.State())
		}
	}
}

func TestManagerSnapshots(t *testing.T) {
	m := NewManager(testLogger())

	cam := startFakeCamera(t, false)
	c, err := New(testTarget(cam), testLogger(), Options{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer c.Stop()
	m.Add(c)

	c.Enqueue(make([]byte, protocol.ChunkSize))

	infos := m.Snapshots()
	if len(infos) != 1 {
		t.Fatalf("Expected 1 snapshot, got %d", len(infos))
	}

	info := infos[0]
	if info.Target != testTarget(cam).Addr() {
		t.Errorf("Snapshot target mismatch: %s", info.Target)
	}
	if info.QueueLen != 1 {
		t.Errorf("Expected queue length 1, got %d", info.QueueLen)
	}
	if info.State != StateAwaitingAccept {
		t.Errorf("Expected awaiting_accept, got %s", info.State)
	}
	if info.SessionID == "" {
		t.Error("Snapshot missing session ID")
	}
}
