package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Menu text.
const (
	Prompt         = "> "
	UnknownCommand = "Unknown command. Type 'help' for a list.\n"

	helpCommand = "help"
	exitCommand = "exit"
)

// Handler runs a command. args is the rest of the line after the command
// text, trimmed. Output written to out reaches every attached console.
type Handler func(args string, out io.Writer)

// Command is a registered command.
type Command struct {
	Text    string
	Help    string
	Handler Handler
}

// Table holds registered commands and dispatches lines to them.
type Table struct {
	mu       sync.RWMutex
	commands map[string]Command

	out    io.Writer
	onExit func()
}

// NewTable creates an empty table writing to out.
func NewTable(out io.Writer) *Table {
	return &Table{
		commands: make(map[string]Command),
		out:      out,
	}
}

// Register adds a command. Registering the same text again replaces the
// earlier command. Empty texts are ignored.
func (t *Table) Register(text, help string, handler Handler) {
	text = strings.TrimSpace(text)
	if text == "" || handler == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commands[text] = Command{Text: text, Help: help, Handler: handler}
}

// SetOnExit sets the callback run by the built-in exit command.
func (t *Table) SetOnExit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExit = fn
}

// Output returns the writer command output goes to.
func (t *Table) Output() io.Writer {
	return t.out
}

// Commands returns the registered commands sorted by text.
func (t *Table) Commands() []Command {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cmds := make([]Command, 0, len(t.commands))
	for _, c := range t.commands {
		cmds = append(cmds, c)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Text < cmds[j].Text })
	return cmds
}

// Lookup finds the longest registered command that prefixes line at a word
// boundary and returns it with the trimmed remainder.
func (t *Table) Lookup(line string) (Command, string, bool) {
	line = strings.TrimSpace(line)

	t.mu.RLock()
	defer t.mu.RUnlock()

	var best Command
	found := false
	for text, cmd := range t.commands {
		if !matchesAt(line, text) {
			continue
		}
		if !found || len(text) > len(best.Text) {
			best = cmd
			found = true
		}
	}
	if !found {
		return Command{}, "", false
	}
	return best, strings.TrimSpace(line[len(best.Text):]), true
}

// matchesAt reports whether text prefixes line and ends at a word boundary.
func matchesAt(line, text string) bool {
	if !strings.HasPrefix(line, text) {
		return false
	}
	if len(line) == len(text) {
		return true
	}
	next := line[len(text)]
	return next == ' ' || next == '\t'
}

// PrintPrompt writes the prompt.
func (t *Table) PrintPrompt() {
	io.WriteString(t.out, Prompt)
}

// PrintHelp lists every command followed by the built-ins.
func (t *Table) PrintHelp() {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, c := range t.Commands() {
		fmt.Fprintf(&b, "  %s: %s\n", c.Text, c.Help)
	}
	b.WriteString("  help: Show this help\n")
	b.WriteString("  exit: Exit menu\n")
	io.WriteString(t.out, b.String())
}

// Execute dispatches one line and prints the next prompt. It reports
// whether the line was the exit command, in which case no prompt follows.
func (t *Table) Execute(line string) (exited bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		t.PrintPrompt()
		return false
	}

	if cmd, args, ok := t.Lookup(line); ok {
		cmd.Handler(args, t.out)
		t.PrintPrompt()
		return false
	}

	switch {
	case matchesAt(line, helpCommand):
		t.PrintHelp()
	case matchesAt(line, exitCommand):
		t.mu.RLock()
		onExit := t.onExit
		t.mu.RUnlock()
		if onExit != nil {
			onExit()
		}
		return true
	default:
		io.WriteString(t.out, UnknownCommand)
	}
	t.PrintPrompt()
	return false
}
