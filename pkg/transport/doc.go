// Package transport moves bytes between the bridge and its physical links.
//
// # Ports
//
// A Port is a raw byte stream: a UART opened with go.bug.st/serial, or the
// process's own terminal when the local console is stdin/stdout. Ports have
// no framing; chunks are delivered exactly as the OS returns them.
//
// # Links
//
// A Link keeps one Port open for the life of the process. When a read
// fails (cable pulled, adapter reset) the port is closed and reopened with
// exponential backoff:
//
//	1s -> 2s -> 4s -> 8s -> 16s -> 32s -> 60s (max)
//
// with up to 25% jitter. Writes while the port is down are dropped.
//
// # Wireless
//
// Server accepts the wireless serial link over TCP. Only one client may be
// attached at a time; a second client is told the link is busy and
// disconnected.
package transport
