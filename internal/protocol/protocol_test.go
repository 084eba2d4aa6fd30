package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeFrame(t *testing.T) {
	chunk := make([]byte, ChunkSize)
	for i := range chunk {
		chunk[i] = byte(i % 251)
	}

	frame, err := EncodeFrame(chunk)
	if err != nil {
		t.Fatalf("EncodeFrame returned error: %v", err)
	}

	if len(frame) != FrameSize {
		t.Errorf("Expected frame size %d, got %d", FrameSize, len(frame))
	}

	if frame[0] != FrameMarker {
		t.Errorf("Expected marker 0x%02x, got 0x%02x", FrameMarker, frame[0])
	}

	if frame[1] != AudioChannel {
		t.Errorf("Expected channel 0x%02x, got 0x%02x", AudioChannel, frame[1])
	}

	length := binary.LittleEndian.Uint16(frame[2:4])
	if int(length) != ChunkSize+14 {
		t.Errorf("Expected length field %d (payload + 14), got %d", ChunkSize+14, length)
	}

	padding := frame[HeaderSize : HeaderSize+PaddingSize]
	if !bytes.Equal(padding, make([]byte, PaddingSize)) {
		t.Errorf("Expected %d zero padding bytes, got %v", PaddingSize, padding)
	}

	if !bytes.Equal(frame[HeaderSize+PaddingSize:], chunk) {
		t.Error("Payload does not match input chunk")
	}
}

func TestEncodeFrameLengthIndependentOfContent(t *testing.T) {
	tests := []struct {
		name string
		fill byte
	}{
		{name: "all zeros", fill: 0x00},
		{name: "all ones", fill: 0xFF},
		{name: "mid value", fill: 0x7F},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk := bytes.Repeat([]byte{tt.fill}, ChunkSize)
			frame, err := EncodeFrame(chunk)
			if err != nil {
				t.Fatalf("EncodeFrame returned error: %v", err)
			}

			length := binary.LittleEndian.Uint16(frame[2:4])
			if int(length) != ChunkSize+14 {
				t.Errorf("Expected length field %d, got %d", ChunkSize+14, length)
			}
		})
	}
}

func TestEncodeFrameRejectsWrongSize(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{name: "empty", size: 0},
		{name: "short", size: ChunkSize - 1},
		{name: "long", size: ChunkSize + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeFrame(make([]byte, tt.size)); err == nil {
				t.Errorf("Expected error for chunk size %d", tt.size)
			}
		})
	}
}

func TestAppendFrameMatchesEncodeFrame(t *testing.T) {
	chunk := make([]byte, ChunkSize)
	for i := range chunk {
		chunk[i] = byte(255 - i%256)
	}

	want, err := EncodeFrame(chunk)
	if err != nil {
		t.Fatalf("EncodeFrame returned error: %v", err)
	}

	buf := make([]byte, 0, FrameSize)
	got, err := AppendFrame(buf, chunk)
	if err != nil {
		t.Fatalf("AppendFrame returned error: %v", err)
	}

	if !bytes.Equal(got, want) {
		t.Error("AppendFrame output differs from EncodeFrame")
	}

	// Reuse must not leak previous payload bytes
	second := bytes.Repeat([]byte{0xAA}, ChunkSize)
	got, err = AppendFrame(got, second)
	if err != nil {
		t.Fatalf("AppendFrame reuse returned error: %v", err)
	}
	if !bytes.Equal(got[HeaderSize+PaddingSize:], second) {
		t.Error("Reused buffer carries stale payload")
	}
}
