// Package core defines sentinel errors.
package core

import "errors"

var (
	// Packet decoding errors. Local to one packet, never fatal to a session.
	ErrTooShort        = errors.New("sniffer: packet too short")
	ErrMalformedHeader = errors.New("sniffer: malformed header")

	// Start errors
	ErrSocketOpenFailed    = errors.New("sniffer: socket open failed")
	ErrPermissionDenied    = errors.New("sniffer: permission denied")
	ErrNoIPv4Address       = errors.New("sniffer: interface has no IPv4 address")
	ErrNoSuchInterface     = errors.New("sniffer: no such interface")
	ErrAlreadyRunning      = errors.New("sniffer: capture already running")
	ErrSessionNotIdle      = errors.New("sniffer: session already used")
	ErrUnsupportedPlatform = errors.New("sniffer: raw capture not supported on this platform")

	// Runtime errors
	ErrSocket = errors.New("sniffer: socket error")

	// Configuration errors
	ErrConfigInvalid = errors.New("sniffer: invalid configuration")
)
