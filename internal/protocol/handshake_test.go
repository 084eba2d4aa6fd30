package protocol

import (
	"strings"
	"testing"
)

func TestOpenCommand(t *testing.T) {
	cmd := string(OpenCommand("192.168.1.40"))

	expected := "USER_CMD_SET rtsp://192.168.1.40/onvif0 RTSP/1.0\r\n" +
		"CSeq: 8\r\n" +
		"Content-length: strlen(Content-type)\r\n" +
		"Content-type: AudioCtlCmd:OPEN\r\n\r\n"

	if cmd != expected {
		t.Errorf("OPEN command mismatch:\ngot:  %q\nwant: %q", cmd, expected)
	}
}

func TestCloseCommand(t *testing.T) {
	cmd := string(CloseCommand("10.0.0.7"))

	expected := "USER_CMD_SET rtsp://10.0.0.7/onvif1 RTSP/1.0\r\n" +
		"CSeq: 10\r\n" +
		"Content-length: strlen(Content-type)\r\n" +
		"Content-type: AudioCtlCmd:CLOSE\r\n\r\n"

	if cmd != expected {
		t.Errorf("CLOSE command mismatch:\ngot:  %q\nwant: %q", cmd, expected)
	}
}

func TestIsAcceptResponse(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		expected bool
	}{
		{
			name:     "full RTSP response",
			data:     "RTSP/1.0 200 OK\r\nCSeq: 8\r\n\r\n",
			expected: true,
		},
		{
			name:     "token embedded mid-stream",
			data:     "garbage before CSeq: 8 garbage after",
			expected: true,
		},
		{
			name:     "close sequence is not an accept",
			data:     "RTSP/1.0 200 OK\r\nCSeq: 10\r\n\r\n",
			expected: false,
		},
		{
			name:     "empty data",
			data:     "",
			expected: false,
		},
		{
			name:     "unrelated payload",
			data:     strings.Repeat("x", 64),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAcceptResponse([]byte(tt.data)); got != tt.expected {
				t.Errorf("IsAcceptResponse(%q) = %v, want %v", tt.data, got, tt.expected)
			}
		})
	}
}
