package transport

import (
	"errors"
	"io"
)

// Transport errors.
var (
	ErrNotConnected = errors.New("transport not connected")
	ErrInvalidBaud  = errors.New("invalid baud rate")
	ErrServerBusy   = errors.New("wireless link busy")
	ErrRunning      = errors.New("already running")
)

// Port is a raw byte stream to a physical link.
type Port interface {
	io.ReadWriteCloser
}

// BaudSetter is implemented by ports whose line speed can change while open.
type BaudSetter interface {
	SetBaudRate(baud int) error
}

// Opener opens a port at the given baud rate.
type Opener func(baud int) (Port, error)
