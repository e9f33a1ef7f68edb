// Package process provides the OS-neutral view of an attached target process.
package process

import "errors"

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrShortRead is returned when the OS transferred fewer bytes than requested.
	ErrShortRead = errors.New("short read")

	// ErrThreadBaseUnavailable is returned when the platform cannot report thread environment blocks.
	ErrThreadBaseUnavailable = errors.New("thread base address unavailable")

	ErrInvalidPointer = errors.New("invalid pointer read")
)
