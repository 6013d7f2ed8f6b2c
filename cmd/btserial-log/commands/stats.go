package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/btserial/btserial-go/pkg/log"
)

// channels lists the channel names in display order.
var channels = []string{"LOCAL", "REMOTE", "WIRELESS"}

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents        int
	EventsByCategory   map[log.Category]int
	EventsByDirection  map[log.Direction]int
	BytesByChannel     map[string]int
	ConflictsByChannel map[string]int
	Transitions        map[string]int
	Sessions           map[string]*SessionStats
	Errors             int
	TimeRange          struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for one bridge run or wireless connection.
type SessionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory:   make(map[log.Category]int),
		EventsByDirection:  make(map[log.Direction]int),
		BytesByChannel:     make(map[string]int),
		ConflictsByChannel: make(map[string]int),
		Transitions:        make(map[string]int),
		Sessions:           make(map[string]*SessionStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	session, ok := s.Sessions[event.SessionID]
	if !ok {
		session = &SessionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Sessions[event.SessionID] = session
	}
	session.Events++
	if event.Timestamp.After(session.LastSeen) {
		session.LastSeen = event.Timestamp
	}

	switch {
	case event.Frame != nil:
		s.BytesByChannel[event.Channel] += event.Frame.Size
	case event.Conflict != nil:
		s.ConflictsByChannel[event.Channel]++
	case event.StateChange != nil:
		s.Transitions[event.StateChange.NewState]++
	case event.Error != nil:
		s.Errors++
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Bridge Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryData, log.CategoryState, log.CategoryConflict, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Bytes by Channel:")
	for _, ch := range channels {
		if n := stats.BytesByChannel[ch]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", ch+":", n)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Transitions) > 0 {
		fmt.Fprintln(w, "Transitions:")
		states := make([]string, 0, len(stats.Transitions))
		for st := range stats.Transitions {
			states = append(states, st)
		}
		sort.Strings(states)
		for _, st := range states {
			fmt.Fprintf(w, "  -> %-18s %d\n", st, stats.Transitions[st])
		}
		fmt.Fprintln(w)
	}

	if len(stats.ConflictsByChannel) > 0 {
		fmt.Fprintln(w, "Conflicts:")
		for _, ch := range channels {
			if n := stats.ConflictsByChannel[ch]; n > 0 {
				fmt.Fprintf(w, "  %-12s %d\n", ch+":", n)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessionInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessionInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessionInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenID(s.id), s.stats.Events, duration)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
