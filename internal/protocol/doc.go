// Package protocol implements the Yoosee intercom wire protocol: the binary
// interleaved audio frame encoder and the plain-text OPEN/CLOSE control
// handshake sent over the same TCP stream.
package protocol
