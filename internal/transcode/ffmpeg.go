// Package transcode runs FFmpeg as an external decoder process, turning any
// audio file into the raw signed 16-bit little-endian mono PCM stream the
// streaming core consumes. The core never manages the process beyond the
// returned closer.
package transcode

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"strconv"
)

// Stream starts FFmpeg decoding the given file to raw PCM at the requested
// sample rate and volume. The caller must read the returned stream until EOF
// and close it to reap the process.
func Stream(path string, sampleRate int, volume float64) (io.ReadCloser, error) {
	cmd := exec.Command("ffmpeg",
		"-v", "error",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-filter:a", fmt.Sprintf("volume=%g", volume),
		"pipe:1",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &streamCloser{ReadCloser: stdout, cmd: cmd, stderr: &stderr}, nil
}

// streamCloser wraps the pipe reader and ensures the FFmpeg process is
// cleaned up, surfacing its stderr when it failed.
type streamCloser struct {
	io.ReadCloser
	cmd    *exec.Cmd
	stderr *bytes.Buffer
}

func (s *streamCloser) Close() error {
	closeErr := s.ReadCloser.Close()

	if err := s.cmd.Wait(); err != nil {
		if msg := bytes.TrimSpace(s.stderr.Bytes()); len(msg) > 0 {
			return fmt.Errorf("ffmpeg failed: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}

	return closeErr
}
