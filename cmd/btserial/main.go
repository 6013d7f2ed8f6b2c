// Command btserial runs the console bridge.
//
// The bridge arbitrates one console between a local serial port, a second
// serial port wired to an external device and a wireless TCP link.
// Typing the magic word on an idle bridge opens the configuration menu.
//
// Usage:
//
//	btserial [flags]
//
// Flags:
//
//	-config string     YAML settings file
//	-local string      Local console device, "-" for stdio (default "-")
//	-remote string     Bridged device serial port
//	-addr string       Wireless listen address (default ":7070")
//	-storage string    Persisted record file (default "btserial.eeprom")
//	-magic string      Magic word that opens the menu (default "menu")
//	-timeout duration  Owner inactivity timeout (default 2s)
//	-trace string      CBOR trace file
//	-mdns              Advertise the wireless endpoint (default true)
//	-iface string      Network interface for mDNS
//	-level-file string Status level file
//	-log-level string  Log level: debug, info, warn, error (default "info")
//	-list-ports        List serial ports and exit
//
// Examples:
//
//	# Bridge the terminal to a GNSS receiver
//	btserial -remote /dev/ttyUSB0
//
//	# Run from a settings file with tracing enabled
//	btserial -config /etc/btserial.yaml -trace /var/log/btserial.blog
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/btserial/btserial-go/pkg/config"
	"github.com/btserial/btserial-go/pkg/log"
	"github.com/btserial/btserial-go/pkg/service"
	"github.com/btserial/btserial-go/pkg/transport"
)

var (
	configFile = flag.String("config", "", "YAML settings file")
	localDev   = flag.String("local", config.StdioDevice, `Local console device, "-" for stdio`)
	remoteDev  = flag.String("remote", "", "Bridged device serial port")
	addr       = flag.String("addr", config.DefaultWirelessAddr, "Wireless listen address")
	storage    = flag.String("storage", "btserial.eeprom", "Persisted record file")
	magicWord  = flag.String("magic", config.DefaultMagicWord, "Magic word that opens the menu")
	timeout    = flag.Duration("timeout", config.DefaultOwnerTimeout, "Owner inactivity timeout")
	traceFile  = flag.String("trace", "", "CBOR trace file")
	mdns       = flag.Bool("mdns", true, "Advertise the wireless endpoint")
	iface      = flag.String("iface", "", "Network interface for mDNS")
	levelFile  = flag.String("level-file", "", "Status level file")
	logLevel   = flag.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	listPorts  = flag.Bool("list-ports", false, "List serial ports and exit")
)

func main() {
	flag.Parse()

	if *listPorts {
		if err := printPorts(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	settings, err := loadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// stdout may be the local console, so logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(settings.LogLevel),
	}))

	cfg := service.BridgeConfig{
		Settings: settings,
		Logger:   logger,
	}

	var fileLogger *log.FileLogger
	if settings.TraceFile != "" {
		fileLogger, err = log.NewFileLogger(settings.TraceFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create trace logger: %v\n", err)
			os.Exit(1)
		}
		logger.Info("tracing to file", "path", settings.TraceFile)
	}
	// Only set the trace logger when non-nil to avoid a typed-nil interface.
	switch {
	case fileLogger != nil && settings.LogLevel == "debug":
		cfg.ProtocolLogger = log.NewMultiLogger(fileLogger, log.NewSlogAdapter(logger))
	case fileLogger != nil:
		cfg.ProtocolLogger = fileLogger
	case settings.LogLevel == "debug":
		cfg.ProtocolLogger = log.NewSlogAdapter(logger)
	}

	b, err := service.NewBridge(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = b.Run(ctx)
	if fileLogger != nil {
		if dropped := fileLogger.Dropped(); dropped > 0 {
			logger.Warn("trace events dropped", "count", dropped)
		}
		fileLogger.Close()
	}
	if err != nil {
		logger.Error("bridge failed", "error", err)
		os.Exit(1)
	}
}

// loadSettings reads the settings file, if any, and applies the flags
// given on the command line on top of it.
func loadSettings() (config.Settings, error) {
	settings := config.DefaultSettings()
	if *configFile != "" {
		s, err := config.LoadSettings(*configFile)
		if err != nil {
			return config.Settings{}, err
		}
		settings = s
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "local":
			settings.Local.Device = *localDev
		case "remote":
			settings.Remote.Device = *remoteDev
		case "addr":
			settings.Wireless.Address = *addr
		case "storage":
			settings.Storage.Path = *storage
		case "magic":
			settings.Bridge.MagicWord = *magicWord
		case "timeout":
			settings.Bridge.OwnerTimeout = *timeout
		case "trace":
			settings.TraceFile = *traceFile
		case "mdns":
			settings.Wireless.MDNS = *mdns
		case "iface":
			settings.Wireless.Interface = *iface
		case "level-file":
			settings.Status.LevelFile = *levelFile
		case "log-level":
			settings.LogLevel = *logLevel
		}
	})

	if err := settings.Validate(); err != nil {
		return config.Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printPorts() error {
	ports, err := transport.ListSerialPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}
