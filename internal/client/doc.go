// Package client implements the per-device streaming client: the connection
// lifecycle state machine, the inbound reader, and the pacing engine that
// keeps transmission locked to wall-clock audio duration. One Client per
// configured device; a Manager aggregates them for lifecycle control and
// monitoring.
package client
