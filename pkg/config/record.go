package config

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

// NameSize is the size of the device name field including its NUL terminator.
const NameSize = 32

// Record defaults.
const (
	DefaultDeviceName = "LC29HEA-BT"
	DefaultSerialBaud = 460800
	DefaultPeerBaud   = 460800
	DefaultPeerRxPin  = 7
	DefaultPeerTxPin  = 8
)

// Validation errors.
var (
	ErrInvalidBaud = errors.New("invalid baudrate")
	ErrInvalidName = errors.New("invalid name")
)

// Record is the persisted device configuration. Field order and sizes are
// part of the storage format.
type Record struct {
	DeviceName [NameSize]byte
	SerialBaud uint32
	PeerBaud   uint32
	PeerRxPin  uint32
	PeerTxPin  uint32
}

// DefaultRecord returns the factory configuration.
func DefaultRecord() Record {
	r := Record{
		SerialBaud: DefaultSerialBaud,
		PeerBaud:   DefaultPeerBaud,
		PeerRxPin:  DefaultPeerRxPin,
		PeerTxPin:  DefaultPeerTxPin,
	}
	copy(r.DeviceName[:], DefaultDeviceName)
	return r
}

// Name returns the device name up to the first NUL.
func (r Record) Name() string {
	if i := bytes.IndexByte(r.DeviceName[:], 0); i >= 0 {
		return string(r.DeviceName[:i])
	}
	return string(r.DeviceName[:])
}

// SetName validates and stores name. Surrounding whitespace is trimmed;
// the result must be 1 to NameSize-1 bytes long.
func (r *Record) SetName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) == 0 || len(name) >= NameSize {
		return ErrInvalidName
	}
	r.DeviceName = [NameSize]byte{}
	copy(r.DeviceName[:], name)
	return nil
}

// ParseBaud parses a positive baudrate.
func ParseBaud(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || v == 0 {
		return 0, ErrInvalidBaud
	}
	return uint32(v), nil
}
