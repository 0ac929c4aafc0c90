// Package wal write-ahead logs raw audit submissions before they are
// parsed, so requests survive a crash between receipt and processing.
package wal

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// InboxWAL appends incoming audit request bodies to a daily log file.
type InboxWAL struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// Entry is a single logged submission.
type Entry struct {
	Timestamp time.Time
	Body      []byte
}

// NewInboxWAL creates or opens the inbox WAL file for today.
func NewInboxWAL(dirPath string) (*InboxWAL, error) {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory: %w", err)
	}

	walPath := filepath.Join(dirPath, fmt.Sprintf("audit-inbox-%s.wal", time.Now().Format("20060102")))

	file, err := os.OpenFile(walPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}

	return &InboxWAL{
		file: file,
		path: walPath,
	}, nil
}

// Path returns the current log file path.
func (w *InboxWAL) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// Append writes one request body with fsync. Bodies are base64-encoded
// so arbitrary JSON (spaces, pipes, newlines) replays intact.
func (w *InboxWAL) Append(body []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	line := fmt.Sprintf("%s|%s\n",
		time.Now().Format(time.RFC3339Nano),
		base64.StdEncoding.EncodeToString(body))

	if _, err := w.file.WriteString(line); err != nil {
		return fmt.Errorf("failed to write WAL entry: %w", err)
	}

	// fsync before acknowledging the submission
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync WAL: %w", err)
	}

	return nil
}

// Close flushes and closes the WAL.
func (w *InboxWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.Sync(); err != nil {
		return err
	}
	return w.file.Close()
}

// Replay reads all well-formed entries from a WAL file. Malformed lines
// are skipped, not fatal; a torn final write must not block recovery.
func Replay(walPath string) ([]Entry, error) {
	file, err := os.Open(walPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), "|", 2)
		if len(parts) != 2 {
			continue
		}

		timestamp, err := time.Parse(time.RFC3339Nano, parts[0])
		if err != nil {
			continue
		}
		body, err := base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			continue
		}

		entries = append(entries, Entry{
			Timestamp: timestamp,
			Body:      body,
		})
	}

	return entries, scanner.Err()
}

// Rotate closes the current WAL and opens a fresh daily file, returning
// the new WAL and the old file path for archival.
func Rotate(dirPath string, current *InboxWAL) (*InboxWAL, string, error) {
	oldPath := current.Path()

	if err := current.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close current WAL: %w", err)
	}

	newWAL, err := NewInboxWAL(dirPath)
	if err != nil {
		return nil, "", err
	}

	return newWAL, oldPath, nil
}
