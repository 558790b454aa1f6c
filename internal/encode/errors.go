package encode

import (
	"errors"
	"fmt"
)

// ErrSetupFailed covers any failure between muxer allocation and header
// write.
var ErrSetupFailed = errors.New("encode: encoder setup failed")

// ErrPacketFailed covers a submit, receive, or write error mid-stream.
var ErrPacketFailed = errors.New("encode: packet failed")

// SetupError wraps ErrSetupFailed with the stage that failed.
type SetupError struct {
	Stage string
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("encode: setup %s: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error {
	return ErrSetupFailed
}

// PacketError wraps ErrPacketFailed with the stage that failed.
type PacketError struct {
	Stage string
	Err   error
}

func (e *PacketError) Error() string {
	return fmt.Sprintf("encode: %s: %v", e.Stage, e.Err)
}

func (e *PacketError) Unwrap() error {
	return ErrPacketFailed
}
