// Package wal provides an append-only journal of accepted telemetry for
// audit and replay. Journaling is best-effort: the durable store remains
// the owner of record.
package wal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EntryType defines the type of journal entry
type EntryType string

const (
	EntryMetricsStored    EntryType = "metrics-stored"
	EntryEventStored      EntryType = "event-stored"
	EntryPredictionStored EntryType = "prediction-stored"
	EntryAnnotationAdded  EntryType = "annotation-added"
	EntrySweepCompleted   EntryType = "sweep-completed"
)

// Entry represents a single journal entry
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Sequence  int64           `json:"sequence"`
	Type      EntryType       `json:"type"`
	Key       string          `json:"key,omitempty"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error,omitempty"`
}

// Journal appends telemetry records to a rotating JSON-lines file
type Journal struct {
	mu       sync.Mutex
	file     *os.File
	writer   *bufio.Writer
	sequence int64
	dir      string
}

// Open creates or opens a journal in the specified directory
func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	// Timestamp in the filename gives natural rotation
	filename := fmt.Sprintf("muisti-%s.wal", time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644) // #nosec G302 G304 -- operator-owned journal
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	j := &Journal{
		file:   file,
		writer: bufio.NewWriter(file),
		dir:    dir,
	}

	j.loadSequence()

	return j, nil
}

// Dir returns the directory the journal writes into.
func (j *Journal) Dir() string {
	return j.dir
}

// Close flushes and closes the journal
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		return err
	}
	return j.file.Close()
}

// Append adds an entry to the journal
func (j *Journal) Append(entryType EntryType, key string, data any) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.sequence++

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	entry := Entry{
		Timestamp: time.Now(),
		Sequence:  j.sequence,
		Type:      entryType,
		Key:       key,
		Data:      jsonData,
	}

	return j.writeEntry(entry)
}

// AppendError records a failed operation alongside its payload
func (j *Journal) AppendError(entryType EntryType, key string, data any, opErr error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.sequence++

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	entry := Entry{
		Timestamp: time.Now(),
		Sequence:  j.sequence,
		Type:      entryType,
		Key:       key,
		Data:      jsonData,
		Error:     opErr.Error(),
	}

	return j.writeEntry(entry)
}

// Sequence returns the last sequence number handed out
func (j *Journal) Sequence() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sequence
}

func (j *Journal) writeEntry(entry Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	if _, err := j.writer.Write(line); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}

	if _, err := j.writer.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	// Flush immediately for durability
	if err := j.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	return j.file.Sync()
}

// loadSequence resumes numbering from existing journal files in the
// directory, so sequences stay monotonic across restarts.
func (j *Journal) loadSequence() {
	files, err := filepath.Glob(filepath.Join(j.dir, "muisti-*.wal"))
	if err != nil {
		return
	}

	var last int64
	for _, path := range files {
		reader, err := NewReader(path)
		if err != nil {
			continue
		}
		for {
			entry, err := reader.Next()
			if err != nil {
				break
			}
			if entry.Sequence > last {
				last = entry.Sequence
			}
		}
		_ = reader.Close()
	}
	j.sequence = last
}

// Reader replays journal entries
type Reader struct {
	scanner *bufio.Scanner
	file    *os.File
}

// NewReader creates a journal reader for the specified file
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path) // #nosec G304 -- operator-owned journal
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &Reader{
		scanner: bufio.NewScanner(file),
		file:    file,
	}, nil
}

// Next reads the next entry from the journal
func (r *Reader) Next() (*Entry, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	var entry Entry
	if err := json.Unmarshal(r.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}

	return &entry, nil
}

// Close closes the reader
func (r *Reader) Close() error {
	return r.file.Close()
}
