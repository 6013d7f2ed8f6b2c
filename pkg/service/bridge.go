package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/btserial/btserial-go/pkg/bridge"
	"github.com/btserial/btserial-go/pkg/cli"
	"github.com/btserial/btserial-go/pkg/config"
	"github.com/btserial/btserial-go/pkg/discovery"
	"github.com/btserial/btserial-go/pkg/log"
	"github.com/btserial/btserial-go/pkg/persistence"
	"github.com/btserial/btserial-go/pkg/status"
	"github.com/btserial/btserial-go/pkg/transport"
)

// BridgeConfig configures a Bridge. Only Settings is required; the other
// fields replace what would otherwise be derived from it.
type BridgeConfig struct {
	Settings config.Settings

	// Device backs the persisted record. Defaults to a FileDevice at
	// Settings.Storage.Path.
	Device persistence.Device

	// LocalOpener and RemoteOpener open the serial channels. Defaults
	// come from the device paths in Settings.
	LocalOpener  transport.Opener
	RemoteOpener transport.Opener

	// Advertiser publishes the wireless endpoint. Defaults to an mDNS
	// advertiser when Settings.Wireless.MDNS is set.
	Advertiser discovery.Advertiser

	// LevelSource provides the status level. Defaults to the level file
	// in Settings, or a constant 100.
	LevelSource status.LevelSource

	// Now is the arbiter clock. Defaults to time.Now.
	Now func() time.Time

	// Logger for operational messages (optional).
	Logger *slog.Logger

	// ProtocolLogger receives the bridge trace (optional).
	ProtocolLogger log.Logger
}

// Bridge is a running console bridge.
type Bridge struct {
	settings  config.Settings
	logger    *slog.Logger
	trace     log.Logger
	sessionID string

	store  *persistence.Store[config.Record]
	recMu  sync.RWMutex
	record config.Record

	arbiter *bridge.Arbiter
	router  *bridge.Router
	monitor *bridge.Monitor

	console *cli.MultiOutput
	table   *cli.Table
	editor  *cli.Editor

	local    *transport.Link
	remote   *transport.Link
	wireless *transport.Server

	advertiser discovery.Advertiser
	status     *status.Task

	ctxMu  sync.Mutex
	runCtx context.Context
}

// NewBridge builds a bridge from cfg. The persisted record is loaded
// here; an invalid image is replaced by the factory defaults.
func NewBridge(cfg BridgeConfig) (*Bridge, error) {
	s := cfg.Settings
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	b := &Bridge{
		settings:  s,
		logger:    cfg.Logger,
		trace:     cfg.ProtocolLogger,
		sessionID: uuid.New().String(),
	}

	if err := b.loadRecord(cfg.Device); err != nil {
		return nil, err
	}

	arbiter, err := bridge.NewArbiter(bridge.Config{
		MagicWord:    s.Bridge.MagicWord,
		SharedCursor: s.Bridge.SharedCursor,
		Now:          cfg.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("create arbiter: %w", err)
	}
	b.arbiter = arbiter
	b.monitor = bridge.NewMonitor(arbiter, s.Bridge.OwnerTimeout, s.Bridge.PollInterval)

	b.console = cli.NewMultiOutput()
	b.table = cli.NewTable(b.console)
	b.table.SetOnExit(arbiter.ExitMenu)
	b.editor = cli.NewEditor(b.table, s.Bridge.LineLength)
	b.registerCommands()

	b.router = bridge.NewRouter(arbiter, b.editor)
	b.router.SetLogger(b.logger)
	if b.trace != nil {
		b.router.SetProtocolLogger(b.trace, b.sessionID)
	}

	if err := b.createLinks(cfg); err != nil {
		return nil, err
	}

	b.wireless, err = transport.NewServer(transport.ServerConfig{
		Address:        s.Wireless.Address,
		Logger:         b.logger,
		ProtocolLogger: b.trace,
		OnData: func(data []byte) {
			b.router.OnChannelBytes(bridge.ChannelWireless, data)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create wireless server: %w", err)
	}
	b.router.Attach(bridge.ChannelWireless, b.wireless)
	b.console.Attach(b.wireless)

	b.advertiser = cfg.Advertiser
	if b.advertiser == nil && s.Wireless.MDNS {
		b.advertiser, err = discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{
			Interface: s.Wireless.Interface,
		})
		if err != nil {
			return nil, fmt.Errorf("create advertiser: %w", err)
		}
	}

	source := cfg.LevelSource
	if source == nil {
		source = levelSource(s.Status)
	}
	taskConfig := status.TaskConfig{
		Source:     source,
		Advertiser: b.advertiser,
		Service:    b.serviceInfo,
		Connected:  b.wireless.Connected,
		Interval:   s.Status.Interval,
		Logger:     b.logger,
	}
	if b.local != nil {
		// Client notices go to the local console only.
		taskConfig.Console = b.local
	}
	b.status, err = status.NewTask(taskConfig)
	if err != nil {
		return nil, fmt.Errorf("create status task: %w", err)
	}

	return b, nil
}

func (b *Bridge) loadRecord(dev persistence.Device) error {
	if dev == nil {
		fd, err := persistence.OpenFileDevice(b.settings.Storage.Path, b.settings.Storage.Size)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		dev = fd
	}

	store, err := persistence.NewStore[config.Record](dev, b.settings.Storage.Offset)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	b.store = store

	b.record = config.DefaultRecord()
	loaded, err := store.Load(&b.record)
	switch {
	case err != nil:
		// Keep running on defaults; the next save retries the device.
		b.record = config.DefaultRecord()
		b.warn("failed to load configuration, using defaults", "error", err)
	case !loaded:
		b.warn("stored configuration invalid, defaults written")
	default:
		b.debug("configuration loaded", "name", b.record.Name())
	}
	return nil
}

func (b *Bridge) createLinks(cfg BridgeConfig) error {
	rec := b.Record()

	localOpen := cfg.LocalOpener
	if localOpen == nil {
		localOpen = opener(b.settings.Local.Device)
	}
	if localOpen != nil {
		link, err := b.newLink("local", localOpen, int(rec.SerialBaud), bridge.ChannelLocal)
		if err != nil {
			return err
		}
		b.local = link
		b.console.Attach(link)
	}

	remoteOpen := cfg.RemoteOpener
	if remoteOpen == nil {
		remoteOpen = opener(b.settings.Remote.Device)
	}
	if remoteOpen != nil {
		link, err := b.newLink("remote", remoteOpen, int(rec.PeerBaud), bridge.ChannelRemote)
		if err != nil {
			return err
		}
		b.remote = link
	}
	return nil
}

func (b *Bridge) newLink(name string, open transport.Opener, baud int, ch bridge.Channel) (*transport.Link, error) {
	link, err := transport.NewLink(transport.LinkConfig{
		Name:    name,
		Open:    open,
		Baud:    baud,
		Backoff: transport.BackoffConfig{Jitter: transport.JitterFactor},
		OnData: func(data []byte) {
			b.router.OnChannelBytes(ch, data)
		},
		Logger: b.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s link: %w", name, err)
	}
	b.router.Attach(ch, link)
	return link, nil
}

// opener maps a configured device to a port opener. Empty disables the
// channel.
func opener(device string) transport.Opener {
	switch device {
	case "":
		return nil
	case config.StdioDevice:
		return transport.StdioOpener()
	default:
		return transport.SerialOpener(device)
	}
}

func levelSource(s config.StatusSettings) status.LevelSource {
	if s.LevelFile == "" {
		return status.StaticLevel(status.MaxLevel)
	}
	format := status.FormatPercent
	if s.LevelFormat == config.LevelMillivolts {
		format = status.FormatMillivolts
	}
	return status.NewFileLevelSource(s.LevelFile, format)
}

// Run starts the wireless server and every background loop, and blocks
// until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	b.ctxMu.Lock()
	b.runCtx = ctx
	b.ctxMu.Unlock()

	if err := b.wireless.Start(ctx); err != nil {
		return fmt.Errorf("start wireless server: %w", err)
	}
	defer b.wireless.Stop()

	b.info("bridge started",
		"session", b.sessionID,
		"wireless", b.wireless.Addr().String(),
		"name", b.Record().Name(),
		"magic_word", b.arbiter.MagicWord())

	if b.advertiser != nil {
		if err := b.advertiser.Advertise(ctx, b.serviceInfo()); err != nil {
			b.warn("advertise failed", "error", err)
		}
		defer b.advertiser.Stop()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.monitor.Run(ctx) })
	g.Go(func() error { return b.status.Run(ctx) })
	if b.local != nil {
		g.Go(func() error { return b.local.Run(ctx) })
	}
	if b.remote != nil {
		g.Go(func() error { return b.remote.Run(ctx) })
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	b.info("bridge stopped")
	return nil
}

// runContext returns the context passed to Run.
func (b *Bridge) runContext() context.Context {
	b.ctxMu.Lock()
	defer b.ctxMu.Unlock()
	if b.runCtx == nil {
		return context.Background()
	}
	return b.runCtx
}

// Record returns a copy of the current device record.
func (b *Bridge) Record() config.Record {
	b.recMu.RLock()
	defer b.recMu.RUnlock()
	return b.record
}

// Arbiter returns the ownership arbiter.
func (b *Bridge) Arbiter() *bridge.Arbiter {
	return b.arbiter
}

// Router returns the channel router.
func (b *Bridge) Router() *bridge.Router {
	return b.router
}

// Table returns the menu command table.
func (b *Bridge) Table() *cli.Table {
	return b.table
}

// Status returns the last status snapshot.
func (b *Bridge) Status() status.Snapshot {
	return b.status.Snapshot()
}

// SessionID identifies this run in the trace.
func (b *Bridge) SessionID() string {
	return b.sessionID
}

// WirelessAddr returns the wireless listen address, or nil before Run.
func (b *Bridge) WirelessAddr() net.Addr {
	return b.wireless.Addr()
}

// serviceInfo describes the wireless endpoint for advertisement.
func (b *Bridge) serviceInfo() *discovery.ServiceInfo {
	info := &discovery.ServiceInfo{
		DeviceName: b.Record().Name(),
		Port:       discovery.DefaultPort,
	}
	if addr, ok := b.wireless.Addr().(*net.TCPAddr); ok {
		info.Port = uint16(addr.Port)
	}
	if snap := b.status.Snapshot(); snap.HasLevel {
		info.Level = snap.Level
		info.HasLevel = true
	}
	return info
}

func (b *Bridge) info(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *Bridge) warn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}

func (b *Bridge) debug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}
