// Package bridge arbitrates ownership of a serial bridge between channels.
//
// Three channels meet at the bridge: the local console UART, the remote UART
// wired to the bridged device, and the wireless serial link. The remote
// channel is the shared peer; everything it sends is mirrored to the others.
// The local and wireless channels contend for the right to talk to it.
//
// # States
//
//   - IDLE: nobody owns the bridge. Input is scanned for the magic word.
//   - FORWARDING(ch): ch owns the bridge. Its input is mirrored to every
//     other channel; input from other contenders is rejected with a
//     diagnostic sent back to the sender only.
//   - MENU: input from any contender feeds the interactive command menu.
//
// # Transitions
//
//   - IDLE -> MENU when a channel's input spells the magic word.
//   - IDLE -> FORWARDING(ch) on the first byte from ch that breaks the
//     magic word. The whole chunk holding that byte is forwarded.
//   - FORWARDING(ch) -> MENU when ch types the magic word at the start of
//     a line.
//   - FORWARDING(ch) -> IDLE when ch has been silent for longer than the
//     owner timeout. Only a periodic CheckTimeout call (see Monitor)
//     performs this transition.
//   - MENU -> IDLE when the menu exits.
//
// There is no direct FORWARDING(a) -> FORWARDING(b) transition.
//
// # Magic-Word Cursors
//
// Each channel tracks its own partial match of the magic word, so partial
// input on two channels at once cannot complete or break each other's
// match. Config.SharedCursor restores the older single cursor.
package bridge
