package protocol

import (
	"encoding/binary"
	"fmt"
)

// Protocol constants for the Yoosee interleaved transport
const (
	// ChunkSize is the fixed audio payload size: 20ms of 16-bit mono PCM at 8kHz
	ChunkSize = 320

	// Frame layout
	FrameMarker  = 0x24 // '$' interleaved frame marker
	AudioChannel = 0x02 // audio channel identifier
	PaddingSize  = 12   // zero bytes between header and payload
	HeaderSize   = 4    // marker + channel + 2-byte length

	// FrameLen is the value carried in the frame's length field. Frames are
	// always uniform size, so the field is a constant: payload plus padding
	// plus the length field itself.
	FrameLen = ChunkSize + PaddingSize + 2

	// FrameSize is the total number of bytes written per frame
	FrameSize = HeaderSize + PaddingSize + ChunkSize
)

// EncodeFrame wraps one audio chunk in the device's binary wire frame.
// Layout: [0x24][0x02][len:u16 LE][12 zero bytes][payload].
func EncodeFrame(chunk []byte) ([]byte, error) {
	if len(chunk) != ChunkSize {
		return nil, fmt.Errorf("chunk must be %d bytes, got %d", ChunkSize, len(chunk))
	}

	frame := make([]byte, FrameSize)
	frame[0] = FrameMarker
	frame[1] = AudioChannel
	binary.LittleEndian.PutUint16(frame[2:4], FrameLen)
	// frame[4:16] stays zero (padding)
	copy(frame[HeaderSize+PaddingSize:], chunk)

	return frame, nil
}

// AppendFrame encodes a chunk into dst[:0], reusing its backing array when it
// has capacity. The send loop emits one frame per tick and reuses one buffer.
func AppendFrame(dst, chunk []byte) ([]byte, error) {
	if len(chunk) != ChunkSize {
		return nil, fmt.Errorf("chunk must be %d bytes, got %d", ChunkSize, len(chunk))
	}

	dst = dst[:0]
	dst = append(dst, FrameMarker, AudioChannel)
	dst = binary.LittleEndian.AppendUint16(dst, FrameLen)
	var padding [PaddingSize]byte
	dst = append(dst, padding[:]...)
	dst = append(dst, chunk...)

	return dst, nil
}
