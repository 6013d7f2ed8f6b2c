package discovery

import (
	"context"
	"time"
)

// Advertiser publishes the wireless endpoint.
type Advertiser interface {
	// Advertise registers the endpoint, replacing any earlier registration.
	Advertise(ctx context.Context, info *ServiceInfo) error

	// UpdateLevel republishes the TXT record with a new status level.
	UpdateLevel(level uint8) error

	// Stop withdraws the registration.
	Stop()
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL for mDNS records. Zero uses the zeroconf default.
	TTL time.Duration
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}
