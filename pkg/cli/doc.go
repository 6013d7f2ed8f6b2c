// Package cli implements the bridge's interactive command menu.
//
// Input bytes go through an Editor, which keeps a bounded line buffer,
// echoes keystrokes and hands complete lines to a Table. The Table
// dispatches each line to the registered command with the longest text
// that prefixes the line at a word boundary:
//
//	table.Register("get baud serial", "Show Serial baudrate", h1)
//	table.Register("get baud serial1", "Show Serial1 baudrate", h2)
//	table.Execute("get baud serial1")  // runs h2 with args ""
//	table.Execute("get baud serial 9") // runs h1 with args "9"
//
// Two commands are built in: "help" lists every command and "exit" runs
// the exit callback. All output goes to a single writer, usually a
// MultiOutput that fans it out to every attached console.
package cli
