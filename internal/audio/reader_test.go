package audio

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/realldz/yoosee-intercom/internal/protocol"
)

func TestChunkReaderFullChunks(t *testing.T) {
	data := bytes.Repeat([]byte{0x11}, protocol.ChunkSize*3)
	cr := NewChunkReader(bytes.NewReader(data), 0)

	for i := 0; i < 3; i++ {
		chunk, err := cr.Next()
		if err != nil {
			t.Fatalf("Chunk %d returned error: %v", i, err)
		}
		if len(chunk) != protocol.ChunkSize {
			t.Fatalf("Chunk %d has size %d, want %d", i, len(chunk), protocol.ChunkSize)
		}
	}

	if _, err := cr.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF after stream end, got %v", err)
	}
}

func TestChunkReaderPadsShortTail(t *testing.T) {
	// 100-byte tail must come back zero-padded to a full chunk
	data := bytes.Repeat([]byte{0x22}, 100)
	cr := NewChunkReader(bytes.NewReader(data), 0)

	chunk, err := cr.Next()
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}

	if len(chunk) != protocol.ChunkSize {
		t.Fatalf("Expected padded chunk of %d bytes, got %d", protocol.ChunkSize, len(chunk))
	}

	if !bytes.Equal(chunk[:100], data) {
		t.Error("Audio bytes altered by padding")
	}

	if !bytes.Equal(chunk[100:], make([]byte, protocol.ChunkSize-100)) {
		t.Error("Tail not zero-padded")
	}

	if _, err := cr.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF after padded tail, got %v", err)
	}
}

func TestChunkReaderEmptyStream(t *testing.T) {
	cr := NewChunkReader(bytes.NewReader(nil), 0)
	if _, err := cr.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF for empty stream, got %v", err)
	}
}

func TestChunkReaderChunksAreIndependent(t *testing.T) {
	data := append(bytes.Repeat([]byte{0x01}, protocol.ChunkSize),
		bytes.Repeat([]byte{0x02}, protocol.ChunkSize)...)
	cr := NewChunkReader(bytes.NewReader(data), 0)

	first, err := cr.Next()
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	second, err := cr.Next()
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}

	if first[0] != 0x01 || second[0] != 0x02 {
		t.Error("Chunks share a backing buffer")
	}
}
