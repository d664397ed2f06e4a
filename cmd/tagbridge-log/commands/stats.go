package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/gridlink/tagbridge/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByComponent map[log.Component]int
	EventsByCategory  map[log.Category]int
	Sessions          map[string]*SessionStats
	RejectedTags      map[string]int
	Errors            int
	Panics            int
	SyncTicks         int
	SkippedTicks      int
	NodesWritten      int
	MaxTickDuration   time.Duration
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for a single southbound session.
type SessionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	LastState string
}

// Collect reads every event in path and aggregates them.
func Collect(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByComponent: make(map[log.Component]int),
		EventsByCategory:  make(map[log.Category]int),
		Sessions:          make(map[string]*SessionStats),
		RejectedTags:      make(map[string]int),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByComponent[event.Component]++
	s.EventsByCategory[event.Category]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.SessionID != "" {
		sess, ok := s.Sessions[event.SessionID]
		if !ok {
			sess = &SessionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
			s.Sessions[event.SessionID] = sess
		}
		sess.Events++
		if event.Timestamp.After(sess.LastSeen) {
			sess.LastSeen = event.Timestamp
		}
		if event.StateChange != nil {
			sess.LastState = event.StateChange.NewState
		}
	}

	switch {
	case event.Subscription != nil:
		if !event.Subscription.OK {
			s.RejectedTags[event.TagID]++
		}
	case event.Sync != nil:
		if event.Sync.Skipped {
			s.SkippedTicks++
			break
		}
		s.SyncTicks++
		s.NodesWritten += event.Sync.Written
		s.MaxTickDuration = max(s.MaxTickDuration, event.Sync.Duration)
	case event.Error != nil:
		s.Errors++
		if event.Error.Panic {
			s.Panics++
		}
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := Collect(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Tag Bridge Event Log Statistics ===")
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

	fmt.Fprintln(w, "Events by Component:")
	for _, c := range []log.Component{log.ComponentSouthbound, log.ComponentSync, log.ComponentNorthbound, log.ComponentBridge} {
		if count := stats.EventsByComponent[c]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", c.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, c := range []log.Category{log.CategoryState, log.CategorySubscription, log.CategorySync, log.CategoryError} {
		if count := stats.EventsByCategory[c]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", c.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if stats.SyncTicks > 0 || stats.SkippedTicks > 0 {
		fmt.Fprintf(w, "Sync: %d ticks, %d skipped, %d nodes written, slowest %s\n",
			stats.SyncTicks, stats.SkippedTicks, stats.NodesWritten, formatDuration(stats.MaxTickDuration))
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
			fmt.Fprintf(w, "  [%s] %d events, duration %s", shortenSessionID(s.id), s.stats.Events, duration)
			if s.stats.LastState != "" {
				fmt.Fprintf(w, ", last state %s", s.stats.LastState)
			}
			fmt.Fprintln(w)
		}
	}

	if len(stats.RejectedTags) > 0 {
		tags := make([]string, 0, len(stats.RejectedTags))
		for id := range stats.RejectedTags {
			tags = append(tags, id)
		}
		sort.Strings(tags)

		fmt.Fprintln(w)
		fmt.Fprintln(w, "Rejected Tags:")
		for _, id := range tags {
			fmt.Fprintf(w, "  %s (%d)\n", id, stats.RejectedTags[id])
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d", stats.Errors)
		if stats.Panics > 0 {
			fmt.Fprintf(w, " (%d panics)", stats.Panics)
		}
		fmt.Fprintln(w)
	}
}
