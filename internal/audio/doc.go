// Package audio handles PCM chunk production and buffering. It slices the
// decoder's raw byte stream into fixed-size chunks and provides the bounded
// drop-oldest queue that sits between the dispatcher and each device's send
// loop.
package audio
