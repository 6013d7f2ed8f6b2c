package service

import (
	"fmt"
	"io"

	"github.com/btserial/btserial-go/pkg/config"
	"github.com/btserial/btserial-go/pkg/transport"
)

// Menu command texts.
const (
	CmdGetPeerBaud   = "get baud serial1"
	CmdSetPeerBaud   = "set baud serial1"
	CmdGetSerialBaud = "get baud serial"
	CmdSetSerialBaud = "set baud serial"
	CmdGetName       = "get bt_name"
	CmdSetName       = "set bt_name"
	CmdEchoOn        = "echo on"
	CmdEchoOff       = "echo off"
	CmdGetStatus     = "get status"
)

// baudCommand describes one serial channel's baud commands.
type baudCommand struct {
	label string
	set   string
	field func(*config.Record) *uint32
	link  func() *transport.Link
}

func (b *Bridge) registerCommands() {
	peer := baudCommand{
		label: "Serial1",
		set:   CmdSetPeerBaud,
		field: func(r *config.Record) *uint32 { return &r.PeerBaud },
		link:  func() *transport.Link { return b.remote },
	}
	serial := baudCommand{
		label: "Serial",
		set:   CmdSetSerialBaud,
		field: func(r *config.Record) *uint32 { return &r.SerialBaud },
		link:  func() *transport.Link { return b.local },
	}

	b.table.Register(CmdGetPeerBaud, "Show the bridged device baudrate", b.getBaud(peer))
	b.table.Register(CmdSetPeerBaud, "Set the bridged device baudrate: set baud serial1 <baudrate>", b.setBaud(peer))
	b.table.Register(CmdGetSerialBaud, "Show the local console baudrate", b.getBaud(serial))
	b.table.Register(CmdSetSerialBaud, "Set the local console baudrate: set baud serial <baudrate>", b.setBaud(serial))
	b.table.Register(CmdGetName, "Show the wireless device name", b.getName)
	b.table.Register(CmdSetName, "Set the wireless device name: set bt_name <name>", b.setName)
	b.table.Register(CmdEchoOn, "Echo typed characters", b.echo(true))
	b.table.Register(CmdEchoOff, "Stop echoing typed characters", b.echo(false))
	b.table.Register(CmdGetStatus, "Show bridge state, status level and wireless client", b.getStatus)
}

func (b *Bridge) getBaud(c baudCommand) func(string, io.Writer) {
	return func(_ string, out io.Writer) {
		rec := b.Record()
		fmt.Fprintf(out, "%s baudrate: %d\n", c.label, *c.field(&rec))
	}
}

func (b *Bridge) setBaud(c baudCommand) func(string, io.Writer) {
	return func(args string, out io.Writer) {
		baud, err := config.ParseBaud(args)
		if err != nil {
			fmt.Fprintf(out, "Invalid baudrate. Usage: %s <baudrate>\n", c.set)
			return
		}
		err = b.update(func(r *config.Record) error {
			*c.field(r) = baud
			return nil
		})
		if err != nil {
			fmt.Fprintf(out, "Failed to save configuration: %v\n", err)
			return
		}
		if link := c.link(); link != nil {
			if err := link.SetBaudRate(int(baud)); err != nil {
				b.warn("apply baudrate failed", "link", link.Name(), "baud", baud, "error", err)
			}
		}
		fmt.Fprintf(out, "%s baudrate set to: %d\n", c.label, baud)
	}
}

func (b *Bridge) getName(_ string, out io.Writer) {
	rec := b.Record()
	fmt.Fprintf(out, "Bluetooth device name: %s\n", rec.Name())
}

func (b *Bridge) setName(args string, out io.Writer) {
	var validated config.Record
	if err := validated.SetName(args); err != nil {
		fmt.Fprintf(out, "Invalid name. Usage: %s <name>\n", CmdSetName)
		return
	}
	if err := b.update(func(r *config.Record) error { return r.SetName(args) }); err != nil {
		fmt.Fprintf(out, "Failed to save configuration: %v\n", err)
		return
	}

	name := validated.Name()
	fmt.Fprintf(out, "Bluetooth device name set to: %s\n", name)
	b.readvertise()
}

// readvertise publishes the endpoint under the current name. The
// registration is refreshed in place, so no restart is needed.
func (b *Bridge) readvertise() {
	if b.advertiser == nil || b.wireless.Addr() == nil {
		return
	}
	if err := b.advertiser.Advertise(b.runContext(), b.serviceInfo()); err != nil {
		b.warn("re-advertise failed", "error", err)
	}
}

func (b *Bridge) echo(on bool) func(string, io.Writer) {
	return func(_ string, out io.Writer) {
		b.editor.SetEcho(on)
		if on {
			io.WriteString(out, "Echo mode enabled.\n")
		} else {
			io.WriteString(out, "Echo mode disabled.\n")
		}
	}
}

func (b *Bridge) getStatus(_ string, out io.Writer) {
	fmt.Fprintf(out, "Bridge: %s\n", b.arbiter.Status())
	fmt.Fprintf(out, "Status: %s\n", b.status.Snapshot())
}

// update applies fn to a copy of the record and persists it. The live
// record only changes once the save succeeded.
func (b *Bridge) update(fn func(*config.Record) error) error {
	b.recMu.Lock()
	defer b.recMu.Unlock()

	next := b.record
	if err := fn(&next); err != nil {
		return err
	}
	if err := b.store.Save(&next); err != nil {
		b.warn("save configuration failed", "error", err)
		return err
	}
	b.record = next
	return nil
}
