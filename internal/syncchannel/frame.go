package syncchannel

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// STOMP commands the backend's message broker speaks.
const (
	cmdConnect   = "CONNECT"
	cmdConnected = "CONNECTED"
	cmdSubscribe = "SUBSCRIBE"
	cmdSend      = "SEND"
	cmdMessage   = "MESSAGE"
	cmdError     = "ERROR"
)

// frame is one STOMP frame. Only the small subset the kiosk channel
// uses is implemented; this is not a general STOMP client.
type frame struct {
	command string
	headers map[string]string
	body    []byte
}

func newFrame(command string) *frame {
	return &frame{command: command, headers: map[string]string{}}
}

// marshal renders the frame in wire form: command line, header lines,
// blank line, body, NUL terminator.
func (f *frame) marshal() []byte {
	var buf bytes.Buffer
	buf.WriteString(f.command)
	buf.WriteByte('\n')

	keys := make([]string, 0, len(f.headers))
	for k := range f.headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteByte(':')
		buf.WriteString(f.headers[k])
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// parseFrame decodes one wire frame. Heartbeat frames (a bare newline)
// are returned as nil without error.
func parseFrame(data []byte) (*frame, error) {
	data = bytes.TrimSuffix(data, []byte{0})
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	head, body, _ := bytes.Cut(data, []byte("\n\n"))
	lines := strings.Split(string(head), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, fmt.Errorf("frame has no command line")
	}

	f := newFrame(strings.TrimRight(lines[0], "\r"))
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header line %q", line)
		}
		// First occurrence wins, per the STOMP spec.
		if _, exists := f.headers[k]; !exists {
			f.headers[k] = v
		}
	}
	f.body = body
	return f, nil
}
