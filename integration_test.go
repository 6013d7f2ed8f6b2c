package btserial_test

import (
	"bufio"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/btserial/btserial-go/pkg/bridge"
	"github.com/btserial/btserial-go/pkg/config"
	"github.com/btserial/btserial-go/pkg/service"
)

func integrationSettings(t *testing.T, storage string) config.Settings {
	t.Helper()
	s := config.DefaultSettings()
	s.Local.Device = ""
	s.Wireless.Address = "127.0.0.1:0"
	s.Wireless.MDNS = false
	s.Storage.Path = storage
	return s
}

// startBridge runs a bridge until the test ends.
func startBridge(t *testing.T, s config.Settings) *service.Bridge {
	t.Helper()
	b, err := service.NewBridge(service.BridgeConfig{Settings: s})
	if err != nil {
		t.Fatalf("NewBridge: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("bridge did not stop")
		}
	})

	deadline := time.Now().Add(2 * time.Second)
	for b.WirelessAddr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("wireless server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return b
}

// expect reads from r until the accumulated output contains want.
func expect(t *testing.T, conn net.Conn, r *bufio.Reader, want string) {
	t.Helper()
	var got strings.Builder
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	for !strings.Contains(got.String(), want) {
		b, err := r.ReadByte()
		if err != nil {
			t.Fatalf("waiting for %q, got %q: %v", want, got.String(), err)
		}
		got.WriteByte(b)
	}
}

func TestWirelessMenuPersistsAcrossRestart(t *testing.T) {
	storage := filepath.Join(t.TempDir(), "btserial.eeprom")

	t.Run("configure", func(t *testing.T) {
		b := startBridge(t, integrationSettings(t, storage))
		if got := b.Record().Name(); got != config.DefaultDeviceName {
			t.Fatalf("fresh storage name = %q, want default", got)
		}

		conn, err := net.Dial("tcp", b.WirelessAddr().String())
		if err != nil {
			t.Fatalf("Dial: %v", err)
		}
		defer conn.Close()
		r := bufio.NewReader(conn)

		if _, err := conn.Write([]byte("menu")); err != nil {
			t.Fatal(err)
		}
		expect(t, conn, r, bridge.MenuBanner+"> ")

		if _, err := conn.Write([]byte("set bt_name field-unit\r\n")); err != nil {
			t.Fatal(err)
		}
		expect(t, conn, r, "Bluetooth device name set to: field-unit\n> ")

		if _, err := conn.Write([]byte("set baud serial1 115200\n")); err != nil {
			t.Fatal(err)
		}
		expect(t, conn, r, "Serial1 baudrate set to: 115200\n> ")

		if _, err := conn.Write([]byte("exit\n")); err != nil {
			t.Fatal(err)
		}
		deadline := time.Now().Add(2 * time.Second)
		for b.Arbiter().Status().State != bridge.StateIdle {
			if time.Now().After(deadline) {
				t.Fatal("bridge did not return to idle")
			}
			time.Sleep(5 * time.Millisecond)
		}
	})

	t.Run("restart", func(t *testing.T) {
		b := startBridge(t, integrationSettings(t, storage))
		rec := b.Record()
		if rec.Name() != "field-unit" {
			t.Errorf("name = %q, want field-unit", rec.Name())
		}
		if rec.PeerBaud != 115200 {
			t.Errorf("peer baud = %d, want 115200", rec.PeerBaud)
		}
		if rec.SerialBaud != config.DefaultSerialBaud {
			t.Errorf("serial baud = %d, want default", rec.SerialBaud)
		}
	})
}

func TestOwnerTimeoutHandsOverBridge(t *testing.T) {
	s := integrationSettings(t, filepath.Join(t.TempDir(), "btserial.eeprom"))
	s.Bridge.OwnerTimeout = 100 * time.Millisecond
	s.Bridge.PollInterval = 10 * time.Millisecond
	b := startBridge(t, s)

	conn, err := net.Dial("tcp", b.WirelessAddr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("AT\r\n")); err != nil {
		t.Fatal(err)
	}
	want := bridge.Status{State: bridge.StateForwarding, Owner: bridge.ChannelWireless}
	deadline := time.Now().Add(2 * time.Second)
	for b.Arbiter().Status() != want {
		if time.Now().After(deadline) {
			t.Fatalf("status = %s, want %s", b.Arbiter().Status(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}

	deadline = time.Now().Add(2 * time.Second)
	for b.Arbiter().Status().State != bridge.StateIdle {
		if time.Now().After(deadline) {
			t.Fatal("owner was not released after the timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
