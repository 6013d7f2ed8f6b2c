// Command btserial-term connects a terminal to a bridge's wireless
// channel.
//
// Without -addr the first bridge advertised over mDNS is used. Lines typed
// at the prompt are sent with a trailing newline; lines starting with "~"
// are terminal commands.
//
// Usage:
//
//	btserial-term [flags]
//
// Flags:
//
//	-addr string       Bridge address host:port (default: browse mDNS)
//	-iface string      Network interface for mDNS
//	-wait duration     How long to browse for bridges (default 5s)
//	-list              List advertised bridges and exit
//
// Terminal commands:
//
//	~.   Disconnect
//	~~   Send a line starting with "~"
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chzyer/readline"

	"github.com/btserial/btserial-go/pkg/discovery"
)

var (
	addr  = flag.String("addr", "", "Bridge address host:port (default: browse mDNS)")
	iface = flag.String("iface", "", "Network interface for mDNS")
	wait  = flag.Duration("wait", discovery.BrowseTimeout, "How long to browse for bridges")
	list  = flag.Bool("list", false, "List advertised bridges and exit")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	browser, err := discovery.NewMDNSBrowser(discovery.BrowserConfig{Interface: *iface})
	if err != nil {
		fail(err)
	}

	if *list {
		if err := listBridges(ctx, browser, *wait); err != nil {
			fail(err)
		}
		return
	}

	target := *addr
	if target == "" {
		target, err = findBridge(ctx, browser, *wait)
		if err != nil {
			fail(err)
		}
	}

	conn, err := net.DialTimeout("tcp", target, 5*time.Second)
	if err != nil {
		fail(fmt.Errorf("connect %s: %w", target, err))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "",
		InterruptPrompt: "^C",
		EOFPrompt:       "~.",
	})
	if err != nil {
		conn.Close()
		fail(fmt.Errorf("failed to create readline: %w", err))
	}

	fmt.Fprintf(rl.Stdout(), "Connected to %s. Type ~. to disconnect.\n", target)
	session := newSession(conn, rl.Stdout())
	err = session.Run(ctx, rl)
	rl.Close()
	if err != nil {
		fail(err)
	}
}

func findBridge(ctx context.Context, browser *discovery.MDNSBrowser, wait time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	fmt.Fprintln(os.Stderr, "Browsing for bridges...")
	svc, err := browser.FindFirst(ctx)
	if err != nil {
		return "", fmt.Errorf("no bridge found: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Found %s at %s\n", svc.DeviceName, svc.Address())
	return svc.Address(), nil
}

func listBridges(ctx context.Context, browser *discovery.MDNSBrowser, wait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	services, err := browser.Browse(ctx)
	if err != nil {
		return err
	}
	found := 0
	for svc := range services {
		fmt.Println(describe(svc))
		found++
	}
	if found == 0 {
		fmt.Println("No bridges found")
	}
	return nil
}

// describe formats one advertised bridge for -list.
func describe(svc *discovery.Service) string {
	level := "-"
	if svc.HasLevel {
		level = fmt.Sprintf("%d%%", svc.Level)
	}
	return fmt.Sprintf("%-24s %-24s level %s", svc.DeviceName, svc.Address(), level)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
