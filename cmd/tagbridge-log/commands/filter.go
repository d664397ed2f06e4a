package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/gridlink/tagbridge/pkg/log"
)

// FilterOptions specifies filtering criteria shared by the view, export
// and filter commands.
type FilterOptions struct {
	SessionID string
	TagID     string
	Component string
	Category  string
	TimeStart string
	TimeEnd   string
}

// Build converts the options into a log filter.
func (o FilterOptions) Build() (log.Filter, error) {
	filter := log.Filter{
		SessionID: o.SessionID,
		TagID:     o.TagID,
	}

	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	if o.Component != "" {
		c, err := ParseComponentFlag(o.Component)
		if err != nil {
			return filter, err
		}
		filter.Component = &c
	}
	if o.Category != "" {
		c, err := ParseCategoryFlag(o.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	return filter, nil
}

// ParseComponentFlag parses a --component value.
func ParseComponentFlag(s string) (log.Component, error) {
	c, ok := log.ParseComponent(s)
	if !ok {
		return 0, fmt.Errorf("invalid component: %s (valid: southbound, sync, northbound, bridge)", s)
	}
	return c, nil
}

// ParseCategoryFlag parses a --category value.
func ParseCategoryFlag(s string) (log.Category, error) {
	c, ok := log.ParseCategory(s)
	if !ok {
		return 0, fmt.Errorf("invalid category: %s (valid: state, subscription, sync, error)", s)
	}
	return c, nil
}

// RunFilter copies the events of path matching opts into output and
// returns how many were written.
func RunFilter(path, output string, opts FilterOptions) (int, error) {
	filter, err := opts.Build()
	if err != nil {
		return 0, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Close()
			return count, fmt.Errorf("failed to read event: %w", err)
		}
		logger.Log(event)
		count++
	}
	if err := logger.Close(); err != nil {
		return count, fmt.Errorf("failed to close output: %w", err)
	}
	if dropped := logger.Dropped(); dropped > 0 {
		return count, fmt.Errorf("%d events could not be written", dropped)
	}
	return count, nil
}
