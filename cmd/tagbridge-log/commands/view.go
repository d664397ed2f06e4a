// Package commands implements the tagbridge-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/gridlink/tagbridge/pkg/log"
)

const timeLayout = "2006-01-02T15:04:05.000000Z"

// RunView prints every event matching filter in human-readable form.
func RunView(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session:id] COMPONENT Type tag
	ts := event.Timestamp.UTC().Format(timeLayout)
	fmt.Fprintf(w, "%s [session:%s] %-10s %s", ts, shortenSessionID(event.SessionID),
		event.Component.String(), eventType(event))
	if event.TagID != "" {
		fmt.Fprintf(w, " %s", event.TagID)
	}
	fmt.Fprintln(w)

	switch {
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Subscription != nil:
		formatSubscriptionDetails(w, event.Subscription)
	case event.Sync != nil:
		formatSyncDetails(w, event.Sync)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// eventType labels the payload an event carries.
func eventType(event log.Event) string {
	switch {
	case event.StateChange != nil:
		return "State"
	case event.Subscription != nil:
		return "Subscription"
	case event.Sync != nil:
		return "Sync"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	old := sc.OldState
	if old == "" {
		old = "-"
	}
	fmt.Fprintf(w, "  %s -> %s\n", old, sc.NewState)
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
	if sc.Attempt > 0 {
		fmt.Fprintf(w, "  Attempt: %d\n", sc.Attempt)
	}
	if sc.RetryIn > 0 {
		fmt.Fprintf(w, "  Retry in: %s\n", formatDuration(sc.RetryIn))
	}
}

func formatSubscriptionDetails(w io.Writer, sub *log.SubscriptionEvent) {
	if sub.OK {
		fmt.Fprintln(w, "  Subscribed")
		return
	}
	fmt.Fprintf(w, "  Rejected: %s\n", sub.Reason)
}

func formatSyncDetails(w io.Writer, s *log.SyncEvent) {
	if s.Skipped {
		fmt.Fprintf(w, "  Tick %d skipped (previous tick still running)\n", s.Tick)
		return
	}
	fmt.Fprintf(w, "  Tick %d: %d nodes, %d written", s.Tick, s.Nodes, s.Written)
	if s.Unchanged > 0 {
		fmt.Fprintf(w, ", %d unchanged", s.Unchanged)
	}
	if s.Absent > 0 {
		fmt.Fprintf(w, ", %d absent", s.Absent)
	}
	if s.Failed > 0 {
		fmt.Fprintf(w, ", %d failed", s.Failed)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Duration: %s\n", formatDuration(s.Duration))
}

func formatErrorDetails(w io.Writer, e *log.ErrorEventData) {
	fmt.Fprintf(w, "  Error: %s\n", e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
	if e.Panic {
		fmt.Fprintln(w, "  (recovered panic)")
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
	default:
		return d.Round(time.Millisecond).String()
	}
}
