package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/realldz/yoosee-intercom/internal/protocol"
)

// ChunkReader slices a raw PCM byte stream into fixed-size audio chunks.
// The final chunk of a finite source is zero-padded to full size.
type ChunkReader struct {
	r         io.Reader
	chunkSize int
}

// NewChunkReader wraps a decoded PCM stream. A non-positive chunkSize uses
// the protocol's fixed chunk size.
func NewChunkReader(r io.Reader, chunkSize int) *ChunkReader {
	if chunkSize <= 0 {
		chunkSize = protocol.ChunkSize
	}
	return &ChunkReader{r: r, chunkSize: chunkSize}
}

// Next returns the next chunk, always chunkSize bytes long. Each call
// allocates a fresh buffer; chunks are immutable once produced and may be
// held by multiple client queues. Returns io.EOF when the stream is
// exhausted.
func (cr *ChunkReader) Next() ([]byte, error) {
	chunk := make([]byte, cr.chunkSize)

	n, err := io.ReadFull(cr.r, chunk)
	switch {
	case err == nil:
		return chunk, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		// Short tail: already zero-padded, make guarantees zeroed memory
		return chunk, nil
	case errors.Is(err, io.EOF):
		if n > 0 {
			return chunk, nil
		}
		return nil, io.EOF
	default:
		return nil, fmt.Errorf("failed to read audio stream: %w", err)
	}
}
