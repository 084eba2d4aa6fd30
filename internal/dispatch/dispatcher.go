// Package dispatch reads fixed-size PCM chunks from the decoder's output
// stream and fans each chunk out to every device client's queue. This is the
// only point where all targets see identical audio content.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/realldz/yoosee-intercom/internal/audio"
	"github.com/realldz/yoosee-intercom/internal/metrics"
)

// Sink receives audio chunks; satisfied by *client.Client.
type Sink interface {
	Enqueue(chunk []byte)
}

// Run consumes the PCM stream until it ends, enqueueing every chunk on every
// sink in order. Stream exhaustion is normal termination, not an error.
func Run(ctx context.Context, r io.Reader, sinks []Sink, logger *slog.Logger, m *metrics.Metrics) error {
	cr := audio.NewChunkReader(r, 0)

	chunks := 0
	for {
		select {
		case <-ctx.Done():
			logger.Info("Dispatcher cancelled", slog.Int("chunks", chunks))
			return ctx.Err()
		default:
		}

		chunk, err := cr.Next()
		if errors.Is(err, io.EOF) {
			logger.Info("Audio stream finished", slog.Int("chunks", chunks))
			return nil
		}
		if err != nil {
			return fmt.Errorf("dispatcher read failed: %w", err)
		}

		for _, sink := range sinks {
			sink.Enqueue(chunk)
		}

		chunks++
		if m != nil {
			m.RecordChunkDispatched()
		}
	}
}
