package persistence

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

// JournalWriter manages writing to the append-only journal file.
type JournalWriter struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	frames *FrameWriter
	path   string
}

// NewJournalWriter opens or creates a journal file at the given path.
func NewJournalWriter(path string) (*JournalWriter, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	buf := bufio.NewWriter(file) // 4kb buf (default)
	return &JournalWriter{
		file:   file,
		buf:    buf,
		frames: NewFrameWriter(buf),
		path:   path,
	}, nil
}

// Append frames the payload under the given operation code and writes it to
// the journal buffer.
func (j *JournalWriter) Append(op byte, payload []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.frames.WriteFrame(op, payload)
}

// Flush forces the buffer contents to be written to the os file descriptor.
func (j *JournalWriter) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.buf.Flush()
}

// Sync forces a flush to disk (fsync).
func (j *JournalWriter) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.buf.Flush(); err != nil {
		return err
	}
	return j.file.Sync()
}

// Close closes the underlying file.
func (j *JournalWriter) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.buf.Flush(); err != nil {
		_ = j.file.Close()
		return err
	}
	return j.file.Close()
}

// Truncate clears the file content. Used during rewriting/snapshotting.
func (j *JournalWriter) Truncate() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	// Reset buffer
	j.buf.Reset(j.file)

	if err := j.file.Truncate(0); err != nil {
		return err
	}
	_, err := j.file.Seek(0, 0)
	return err
}

// Path returns the file path.
func (j *JournalWriter) Path() string {
	return j.path
}

// File returns the underlying OS file (read-only access recommended or for specialized ops like Stat).
func (j *JournalWriter) File() *os.File {
	return j.file
}

// ReplaceWith replaces the current journal file with a new one atomically (rename) and reopens it.
// Used at the end of journal rewriting.
func (j *JournalWriter) ReplaceWith(newFilePath string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	// 1. Flush & Close old
	_ = j.buf.Flush()
	_ = j.file.Close()

	// 2. Rename
	if err := os.Rename(newFilePath, j.path); err != nil {
		return fmt.Errorf("failed to replace journal file: %w", err)
	}

	// 3. Reopen
	file, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return fmt.Errorf("failed to reopen journal file after replace: %w", err)
	}
	j.file = file
	j.buf.Reset(file)
	j.frames = NewFrameWriter(j.buf)
	return nil
}
