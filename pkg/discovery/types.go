package discovery

import (
	"errors"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceType is the service type of the wireless serial endpoint.
	ServiceType = "_btserial._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default wireless port.
	DefaultPort = 7070
)

// TXT record key constants.
const (
	TXTKeyName    = "name" // Device name
	TXTKeyLevel   = "lvl"  // Status level 0-100 (optional)
	TXTKeyVersion = "ver"  // TXT format version

	// TXTVersion is the TXT format version written by this package.
	TXTVersion = "1"
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxLevel is the highest status level.
	MaxLevel = 100

	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 5 * time.Second
)

// Discovery errors.
var (
	ErrMissingRequired     = errors.New("missing required TXT record")
	ErrInvalidLevel        = errors.New("invalid status level")
	ErrInvalidInstanceName = errors.New("invalid instance name")
	ErrNotAdvertising      = errors.New("not advertising")
	ErrNotFound            = errors.New("service not found")
)

// ServiceInfo describes the endpoint to advertise.
type ServiceInfo struct {
	// DeviceName is the user-visible name and the mDNS instance name.
	DeviceName string

	// Port is the wireless TCP port.
	Port uint16

	// Level is the status level in percent. Only published when HasLevel.
	Level    uint8
	HasLevel bool
}

// Service is a bridge found by browsing.
type Service struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	DeviceName string
	Level      uint8
	HasLevel   bool
	Version    string
}
