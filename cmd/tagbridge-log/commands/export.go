package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gridlink/tagbridge/pkg/log"
)

// exportRecord is the JSON shape of an exported event. Component and
// category are written by name.
type exportRecord struct {
	Timestamp    string                 `json:"timestamp"`
	SessionID    string                 `json:"session_id,omitempty"`
	Component    string                 `json:"component"`
	Category     string                 `json:"category"`
	TagID        string                 `json:"tag_id,omitempty"`
	StateChange  *log.StateChangeEvent  `json:"state_change,omitempty"`
	Subscription *log.SubscriptionEvent `json:"subscription,omitempty"`
	Sync         *log.SyncEvent         `json:"sync,omitempty"`
	Error        *log.ErrorEventData    `json:"error,omitempty"`
}

func newExportRecord(e log.Event) exportRecord {
	return exportRecord{
		Timestamp:    e.Timestamp.UTC().Format(timeLayout),
		SessionID:    e.SessionID,
		Component:    e.Component.String(),
		Category:     e.Category.String(),
		TagID:        e.TagID,
		StateChange:  e.StateChange,
		Subscription: e.Subscription,
		Sync:         e.Sync,
		Error:        e.Error,
	}
}

// RunExport exports the events of path matching filter to output (stdout
// when empty) in the given format.
func RunExport(path, format, output string, filter log.Filter) error {
	var export func(*log.Reader, io.Writer) error
	switch format {
	case "jsonl":
		export = exportJSONL
	case "csv":
		export = exportCSV
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	return export(reader, w)
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(newExportRecord(event)); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{"timestamp", "session_id", "component", "category", "tag_id", "type", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		row := []string{
			event.Timestamp.UTC().Format(timeLayout),
			event.SessionID,
			event.Component.String(),
			event.Category.String(),
			event.TagID,
			eventType(event),
			csvDetail(event),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// csvDetail condenses the event payload into one cell.
func csvDetail(e log.Event) string {
	switch {
	case e.StateChange != nil:
		return e.StateChange.OldState + "->" + e.StateChange.NewState
	case e.Subscription != nil:
		if e.Subscription.OK {
			return "ok"
		}
		return e.Subscription.Reason
	case e.Sync != nil:
		if e.Sync.Skipped {
			return "skipped"
		}
		return "written=" + strconv.Itoa(e.Sync.Written) + "/" + strconv.Itoa(e.Sync.Nodes)
	case e.Error != nil:
		return e.Error.Message
	}
	return ""
}
