package log

import "time"

// MaxFrameData is the number of payload bytes kept in a FrameEvent.
const MaxFrameData = 256

// Event is a trace event. CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies one run of the bridge, or one wireless client
	// connection for events about that connection.
	SessionID string `cbor:"2,keyasint"`

	// Channel the event concerns (LOCAL, REMOTE, WIRELESS).
	Channel string `cbor:"3,keyasint,omitempty"`

	Direction Direction `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// Exactly one payload is set.
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Conflict    *ConflictEvent    `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates data flow relative to the bridge.
type Direction uint8

const (
	// DirectionIn is data received from a channel.
	DirectionIn Direction = 0
	// DirectionOut is data written to a channel.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event.
type Category uint8

const (
	CategoryData     Category = 0
	CategoryState    Category = 1
	CategoryConflict Category = 2
	CategoryError    Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryData:
		return "DATA"
	case CategoryState:
		return "STATE"
	case CategoryConflict:
		return "CONFLICT"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures a chunk of channel data.
type FrameEvent struct {
	// Size is the chunk size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the chunk, cut to MaxFrameData bytes.
	Data []byte `cbor:"2,keyasint,omitempty"`

	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// NewFrameEvent copies data into a FrameEvent, truncating long chunks.
func NewFrameEvent(data []byte) *FrameEvent {
	f := &FrameEvent{Size: len(data)}
	n := len(data)
	if n > MaxFrameData {
		n = MaxFrameData
		f.Truncated = true
	}
	f.Data = append([]byte(nil), data[:n]...)
	return f
}

// StateChangeEvent captures an ownership transition.
type StateChangeEvent struct {
	OldState string `cbor:"1,keyasint,omitempty"`
	NewState string `cbor:"2,keyasint"`
	Reason   string `cbor:"3,keyasint,omitempty"`
}

// ConflictEvent captures input rejected because another channel owns the
// bridge.
type ConflictEvent struct {
	Owner string `cbor:"1,keyasint"`
	Size  int    `cbor:"2,keyasint"`
}

// ErrorEventData captures a recovered error.
type ErrorEventData struct {
	Message string `cbor:"1,keyasint"`

	// Context describes what was being done, e.g. "open /dev/ttyUSB0".
	Context string `cbor:"2,keyasint,omitempty"`
}
