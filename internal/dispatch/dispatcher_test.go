package dispatch

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/realldz/yoosee-intercom/internal/protocol"
)

type recordingSink struct {
	chunks [][]byte
}

func (s *recordingSink) Enqueue(chunk []byte) {
	s.chunks = append(s.chunks, chunk)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunFansOutToAllSinks(t *testing.T) {
	data := bytes.Repeat([]byte{0x33}, protocol.ChunkSize*4)
	sinks := []*recordingSink{{}, {}, {}}

	var asSinks []Sink
	for _, s := range sinks {
		asSinks = append(asSinks, s)
	}

	if err := Run(context.Background(), bytes.NewReader(data), asSinks, testLogger(), nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	for i, s := range sinks {
		if len(s.chunks) != 4 {
			t.Errorf("Sink %d received %d chunks, want 4", i, len(s.chunks))
		}
	}

	// Every sink sees the identical chunk content
	for i := 0; i < 4; i++ {
		if !bytes.Equal(sinks[0].chunks[i], sinks[1].chunks[i]) {
			t.Errorf("Sinks diverge at chunk %d", i)
		}
	}
}

func TestRunPadsFinalChunk(t *testing.T) {
	// One full chunk plus a 100-byte tail
	data := append(bytes.Repeat([]byte{0x44}, protocol.ChunkSize),
		bytes.Repeat([]byte{0x55}, 100)...)
	sink := &recordingSink{}

	if err := Run(context.Background(), bytes.NewReader(data), []Sink{sink}, testLogger(), nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(sink.chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(sink.chunks))
	}

	tail := sink.chunks[1]
	if len(tail) != protocol.ChunkSize {
		t.Fatalf("Final chunk is %d bytes, want %d", len(tail), protocol.ChunkSize)
	}
	if !bytes.Equal(tail[:100], bytes.Repeat([]byte{0x55}, 100)) {
		t.Error("Final chunk audio bytes altered")
	}
	if !bytes.Equal(tail[100:], make([]byte, protocol.ChunkSize-100)) {
		t.Error("Final chunk not zero-padded")
	}
}

func TestRunEmptyStream(t *testing.T) {
	sink := &recordingSink{}
	if err := Run(context.Background(), bytes.NewReader(nil), []Sink{sink}, testLogger(), nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(sink.chunks) != 0 {
		t.Errorf("Expected no chunks from empty stream, got %d", len(sink.chunks))
	}
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := bytes.Repeat([]byte{0x66}, protocol.ChunkSize*10)
	sink := &recordingSink{}

	if err := Run(ctx, bytes.NewReader(data), []Sink{sink}, testLogger(), nil); err == nil {
		t.Error("Expected context error after cancellation")
	}
}
