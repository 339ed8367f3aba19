// Package output renders ratelimiter snapshots and API responses for the CLI.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/snowtransfer/snowtransfer/internal/rest"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Snapshot is the ratelimiter state at a point in time.
type Snapshot struct {
	TakenAt time.Time          `json:"taken_at"`
	Global  rest.GlobalLock    `json:"global"`
	Buckets []rest.BucketState `json:"buckets"`
}

// SnapshotOf reads the current state of limiter.
func SnapshotOf(limiter *rest.Ratelimiter, now time.Time) Snapshot {
	return Snapshot{
		TakenAt: now,
		Global:  limiter.GlobalLockState(),
		Buckets: limiter.Buckets(),
	}
}

// Formatter renders ratelimiter snapshots.
type Formatter interface {
	FormatSnapshot(s Snapshot) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &TableFormatter{Markdown: true}
	default:
		return &TableFormatter{}
	}
}

// FormatResponse pretty-prints a raw API response. An empty body renders as
// a short note instead of nothing.
func FormatResponse(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "(no content)"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
