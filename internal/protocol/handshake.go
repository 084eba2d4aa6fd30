package protocol

import (
	"bytes"
	"fmt"
)

// Control message sequence tokens. The firmware distinguishes OPEN and CLOSE
// by CSeq value rather than by parsing the command body.
const (
	OpenSequence  = 8
	CloseSequence = 10
)

// acceptToken is the substring the firmware echoes back when it accepts the
// audio channel. Matching is a plain substring search; the camera does no
// structured RTSP parsing.
var acceptToken = []byte(fmt.Sprintf("CSeq: %d", OpenSequence))

// OpenCommand builds the AudioCtlCmd:OPEN control message for a device.
// The textual payload must match the firmware byte-for-byte, including the
// literal "strlen(Content-type)" content-length value.
func OpenCommand(address string) []byte {
	return []byte(fmt.Sprintf(
		"USER_CMD_SET rtsp://%s/onvif0 RTSP/1.0\r\n"+
			"CSeq: %d\r\n"+
			"Content-length: strlen(Content-type)\r\n"+
			"Content-type: AudioCtlCmd:OPEN\r\n\r\n",
		address, OpenSequence))
}

// CloseCommand builds the AudioCtlCmd:CLOSE control message for a device.
func CloseCommand(address string) []byte {
	return []byte(fmt.Sprintf(
		"USER_CMD_SET rtsp://%s/onvif1 RTSP/1.0\r\n"+
			"CSeq: %d\r\n"+
			"Content-length: strlen(Content-type)\r\n"+
			"Content-type: AudioCtlCmd:CLOSE\r\n\r\n",
		address, CloseSequence))
}

// IsAcceptResponse reports whether inbound data acknowledges the OPEN
// command. A response is accepted iff it contains the OPEN sequence token.
func IsAcceptResponse(data []byte) bool {
	return bytes.Contains(data, acceptToken)
}
