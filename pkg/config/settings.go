package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings defaults.
const (
	DefaultMagicWord    = "menu"
	DefaultOwnerTimeout = 2 * time.Second
	DefaultPollInterval = 100 * time.Millisecond
	DefaultLineLength   = 128
	DefaultStorageSize  = 512
	DefaultWirelessAddr = ":7070"
	DefaultStatusPeriod = 5 * time.Second
	DefaultLogLevel     = "info"
	StdioDevice         = "-"
)

// Settings is the daemon configuration.
type Settings struct {
	Local    LinkSettings     `yaml:"local"`
	Remote   LinkSettings     `yaml:"remote"`
	Wireless WirelessSettings `yaml:"wireless"`
	Storage  StorageSettings  `yaml:"storage"`
	Bridge   BridgeSettings   `yaml:"bridge"`
	Status   StatusSettings   `yaml:"status"`

	// TraceFile is the CBOR protocol trace path. Empty disables tracing.
	TraceFile string `yaml:"trace_file"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// LinkSettings configures a serial channel.
type LinkSettings struct {
	// Device is the serial device path, or "-" for the process's stdio.
	// Empty disables the channel.
	Device string `yaml:"device"`
}

// WirelessSettings configures the network endpoint standing in for the
// serial-profile radio link.
type WirelessSettings struct {
	Address   string `yaml:"address"`
	MDNS      bool   `yaml:"mdns"`
	Interface string `yaml:"interface"`
}

// StorageSettings locates the persisted record.
type StorageSettings struct {
	Path   string `yaml:"path"`
	Size   int    `yaml:"size"`
	Offset int    `yaml:"offset"`
}

// BridgeSettings holds the arbitration parameters.
type BridgeSettings struct {
	MagicWord    string        `yaml:"magic_word"`
	OwnerTimeout time.Duration `yaml:"owner_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	LineLength   int           `yaml:"line_length"`

	// SharedCursor restores the legacy single magic-word cursor shared by
	// all channels.
	SharedCursor bool `yaml:"shared_cursor"`
}

// StatusSettings configures the periodic status task.
type StatusSettings struct {
	// LevelFile is read as an integer, e.g.
	// /sys/class/power_supply/BAT0/capacity. Empty reports 100.
	LevelFile string `yaml:"level_file"`

	// LevelFormat is "percent" (default) or "millivolts" for a raw
	// battery cell reading that is converted to a percentage.
	LevelFormat string `yaml:"level_format"`

	Interval time.Duration `yaml:"interval"`
}

// Status level formats.
const (
	LevelPercent    = "percent"
	LevelMillivolts = "millivolts"
)

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() Settings {
	return Settings{
		Local: LinkSettings{Device: StdioDevice},
		Wireless: WirelessSettings{
			Address: DefaultWirelessAddr,
			MDNS:    true,
		},
		Storage: StorageSettings{
			Path: "btserial.eeprom",
			Size: DefaultStorageSize,
		},
		Bridge: BridgeSettings{
			MagicWord:    DefaultMagicWord,
			OwnerTimeout: DefaultOwnerTimeout,
			PollInterval: DefaultPollInterval,
			LineLength:   DefaultLineLength,
		},
		Status:   StatusSettings{Interval: DefaultStatusPeriod},
		LogLevel: DefaultLogLevel,
	}
}

// LoadError describes a settings file that could not be used.
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ParseSettings parses YAML on top of DefaultSettings and validates the result.
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, &LoadError{Message: "failed to parse YAML", Cause: err}
	}
	if err := s.Validate(); err != nil {
		return Settings{}, &LoadError{Message: "invalid settings", Cause: err}
	}
	return s, nil
}

// LoadSettings reads and parses a settings file.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}
	s, err := ParseSettings(data)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
		}
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the settings for values the bridge cannot run with.
func (s *Settings) Validate() error {
	if s.Bridge.MagicWord == "" {
		return fmt.Errorf("bridge.magic_word must not be empty")
	}
	if s.Bridge.OwnerTimeout <= 0 {
		return fmt.Errorf("bridge.owner_timeout must be positive, got %s", s.Bridge.OwnerTimeout)
	}
	if s.Bridge.PollInterval <= 0 {
		return fmt.Errorf("bridge.poll_interval must be positive, got %s", s.Bridge.PollInterval)
	}
	if s.Bridge.LineLength < 2 {
		return fmt.Errorf("bridge.line_length must be at least 2, got %d", s.Bridge.LineLength)
	}
	if s.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if s.Storage.Offset < 0 || s.Storage.Size <= s.Storage.Offset {
		return fmt.Errorf("storage.offset %d outside storage.size %d", s.Storage.Offset, s.Storage.Size)
	}
	if s.Local.Device == StdioDevice && s.Remote.Device == StdioDevice {
		return fmt.Errorf("local and remote cannot both use stdio")
	}
	if s.Status.Interval <= 0 {
		return fmt.Errorf("status.interval must be positive, got %s", s.Status.Interval)
	}
	switch s.Status.LevelFormat {
	case "", LevelPercent, LevelMillivolts:
	default:
		return fmt.Errorf("unknown status.level_format %q", s.Status.LevelFormat)
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", s.LogLevel)
	}
	return nil
}
