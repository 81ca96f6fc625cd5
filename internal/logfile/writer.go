// Package logfile provides the downloader's append-only daily log files
// with size-based rotation.
package logfile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// MaxFileSize is the rotation threshold for the active file.
const MaxFileSize = 10 * 1024 * 1024

const (
	filePrefix = "kiosk-"
	fileSuffix = ".log"
	dayFormat  = "2006-01-02"
	lineFormat = "2006-01-02 15:04:05"
)

// Level is the severity of one record.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Writer appends one self-contained record per line to a daily log file.
// Files are named kiosk-<date>-NNN.log; NNN is a run sequence so restarts
// on the same day get their own file. When the active file exceeds
// MaxFileSize it is renamed with a -rotated-NNN suffix and a fresh file is
// opened. The size check happens lazily on each write, not on a timer.
//
// Write never returns an error: a failed write is reported to stderr and
// swallowed, because diagnostics must not be able to crash the download
// pipeline.
type Writer struct {
	dir string
	loc *time.Location

	mu     sync.Mutex
	file   *os.File
	day    string
	name   string
	size   int64
	stderr io.Writer
	now    func() time.Time
}

// New creates a writer storing files under dir, with day boundaries in loc.
func New(dir string, loc *time.Location) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &Writer{
		dir:    dir,
		loc:    loc,
		stderr: os.Stderr,
		now:    time.Now,
	}, nil
}

// Write appends one record. payload, when non-nil, is serialized inline
// as JSON at the end of the line.
func (w *Writer) Write(level Level, event EventType, message string, payload interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now().In(w.loc)

	line := fmt.Sprintf("%s [%s] [%s] %s", now.Format(lineFormat), level, event, message)
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			w.report(fmt.Errorf("failed to serialize log payload: %w", err))
		} else {
			line += " " + string(data)
		}
	}
	line += "\n"

	if err := w.ensureFile(now, len(line)); err != nil {
		w.report(err)
		return
	}

	n, err := w.file.WriteString(line)
	w.size += int64(n)
	if err != nil {
		w.report(fmt.Errorf("failed to write log record: %w", err))
	}
}

// Close closes the active file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// ActiveFile returns the path of the current log file, opening one if
// needed. Used by the diagnostics API to tail today's log.
func (w *Writer) ActiveFile() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.ensureFile(w.now().In(w.loc), 0); err != nil {
		return "", err
	}
	return filepath.Join(w.dir, w.name), nil
}

// ensureFile makes the active file ready to take pending more bytes,
// handling day boundaries and size rotation. Caller holds the lock.
func (w *Writer) ensureFile(now time.Time, pending int) error {
	day := now.Format(dayFormat)

	if w.file != nil && day != w.day {
		_ = w.file.Close()
		w.file = nil
	}

	if w.file != nil && w.size+int64(pending) > MaxFileSize {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	if w.file == nil {
		return w.open(day)
	}
	return nil
}

// open starts a new file for day, using the next free run sequence.
func (w *Writer) open(day string) error {
	seq := 1
	for {
		name := fmt.Sprintf("%s%s-%03d%s", filePrefix, day, seq, fileSuffix)
		path := filepath.Join(w.dir, name)
		if _, err := os.Stat(path); err == nil {
			seq++
			continue
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", name, err)
		}
		w.file = f
		w.day = day
		w.name = name
		w.size = 0
		return nil
	}
}

// rotate renames the active file with the next free -rotated-NNN suffix
// and reopens a fresh file under the same active name. Caller holds the
// lock.
func (w *Writer) rotate() error {
	_ = w.file.Close()
	w.file = nil

	base := strings.TrimSuffix(w.name, fileSuffix)
	for n := 1; ; n++ {
		rotated := fmt.Sprintf("%s-rotated-%03d%s", base, n, fileSuffix)
		path := filepath.Join(w.dir, rotated)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.Rename(filepath.Join(w.dir, w.name), path); err != nil {
			return fmt.Errorf("failed to rotate log file: %w", err)
		}
		break
	}

	f, err := os.OpenFile(filepath.Join(w.dir, w.name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to reopen log file after rotation: %w", err)
	}
	w.file = f
	w.size = 0
	return nil
}

func (w *Writer) report(err error) {
	fmt.Fprintf(w.stderr, "logfile: %v\n", err)
}
