package bluetooth

import (
	"errors"
	"fmt"
)

var (
	// Process errors
	ErrSpawn           = errors.New("cannot start interactive session")
	ErrWrite           = errors.New("session is not writable")
	ErrSessionClosed   = errors.New("session output closed")
	ErrToolUnavailable = errors.New("control tool unavailable")
	ErrTimeout         = errors.New("timed out")

	// Attempt outcomes
	ErrPairingFailed       = errors.New("pairing failed")
	ErrDirectConnectFailed = errors.New("direct connect failed")
	ErrConnectFailed       = errors.New("connect failed")
	ErrBusy                = errors.New("another connection attempt is in progress")
	ErrNoKnownDevices      = errors.New("no known devices")
	ErrAllCandidatesFailed = errors.New("all candidates failed")

	// Input errors
	ErrInvalidAddress = errors.New("invalid device address")
	ErrNotConnected   = errors.New("device is not connected")
)

// AttemptError records why a single connection attempt ended in Failed.
type AttemptError struct {
	AttemptID string
	Address   string
	Flow      Flow
	State     State
	Reason    error
	Cause     error
}

func (e *AttemptError) Error() string {
	msg := fmt.Sprintf("connect %s (%s, in %s): %v", e.Address, e.Flow, e.State, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AttemptError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Cause}
}
