package bridge

// Channel identifies a transport attached to the bridge.
type Channel uint8

const (
	// ChannelLocal is the local console UART.
	ChannelLocal Channel = iota
	// ChannelRemote is the UART wired to the bridged device.
	ChannelRemote
	// ChannelWireless is the wireless serial link.
	ChannelWireless

	numChannels = iota
)

// Channels lists every channel in order.
var Channels = []Channel{ChannelLocal, ChannelRemote, ChannelWireless}

// String returns the channel name.
func (c Channel) String() string {
	switch c {
	case ChannelLocal:
		return "LOCAL"
	case ChannelRemote:
		return "REMOTE"
	case ChannelWireless:
		return "WIRELESS"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	return c < numChannels
}

// others returns every channel except c.
func others(c Channel) []Channel {
	out := make([]Channel, 0, numChannels-1)
	for _, ch := range Channels {
		if ch != c {
			out = append(out, ch)
		}
	}
	return out
}
