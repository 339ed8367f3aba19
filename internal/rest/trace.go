package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// TraceEntry is one line of the NDJSON failure trace.
type TraceEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
	Bucket     string    `json:"bucket,omitempty"`
	Method     string    `json:"method,omitempty"`
	Path       string    `json:"path,omitempty"`
	Attempt    int       `json:"attempt,omitempty"`
	Class      string    `json:"class"`
	StatusCode int       `json:"status_code,omitempty"`
	Response   string    `json:"response,omitempty"`
	Error      string    `json:"error"`
}

// TraceSink appends every failure to a file as NDJSON.
type TraceSink struct {
	mu    sync.Mutex
	file  *os.File
	clock func() time.Time
}

// OpenTraceSink opens (or creates) path for appending.
func OpenTraceSink(path string) (*TraceSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &TraceSink{file: f, clock: time.Now}, nil
}

// Notify records err.
func (t *TraceSink) Notify(err error) {
	if t == nil || err == nil {
		return
	}

	entry := TraceEntry{
		Timestamp: t.clock(),
		Class:     failureClass(err),
		Error:     err.Error(),
	}
	var attempt *AttemptError
	if errors.As(err, &attempt) {
		entry.RequestID = attempt.RequestID
		entry.Bucket = attempt.Bucket
		entry.Method = attempt.Method
		entry.Path = attempt.Path
		entry.Attempt = attempt.Attempt
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		entry.StatusCode = httpErr.StatusCode
		entry.Response = httpErr.Message
	}

	data, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return
	}
	_, _ = t.file.Write(append(data, '\n'))
}

// Close closes the trace file. Later notifications are dropped.
func (t *TraceSink) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}
