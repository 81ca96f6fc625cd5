package logfile

import (
	"github.com/sirupsen/logrus"
)

// eventField is the logrus field carrying the EventType of an entry.
const eventField = "event"

// Hook mirrors logrus entries into the rotated daily log files, so one
// logging call feeds both stdout and the on-disk diagnostics that
// on-site support reads off the device.
type Hook struct {
	writer *Writer
}

// NewHook wraps a Writer as a logrus hook.
func NewHook(writer *Writer) *Hook {
	return &Hook{writer: writer}
}

// Levels reports the severities mirrored to disk.
func (h *Hook) Levels() []logrus.Level {
	return []logrus.Level{logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel, logrus.FatalLevel}
}

// Fire writes the entry to the daily log file. Entries without an event
// field are plain process logs and stay on stdout only. It never returns
// an error; the writer already swallows its own failures.
func (h *Hook) Fire(entry *logrus.Entry) error {
	raw, ok := entry.Data[eventField]
	if !ok {
		return nil
	}

	var event EventType
	switch v := raw.(type) {
	case EventType:
		event = v
	case string:
		event = EventType(v)
	default:
		return nil
	}

	level := LevelInfo
	switch entry.Level {
	case logrus.WarnLevel:
		level = LevelWarn
	case logrus.ErrorLevel, logrus.FatalLevel:
		level = LevelError
	}

	payload := make(map[string]interface{}, len(entry.Data))
	for k, v := range entry.Data {
		if k == eventField {
			continue
		}
		payload[k] = v
	}
	if len(payload) == 0 {
		payload = nil
	}

	h.writer.Write(level, event, entry.Message, payload)
	return nil
}
