package proto

import (
	"bytes"
	"net"
	"strconv"
	"strings"
	"time"
)

// Protocol stages reported on failed outcomes.
const (
	StageConnect     = "connect"
	StageSend        = "send"
	StageReadHeaders = "read-headers"
	StageReadBody    = "read-body"
)

var headerEnd = []byte("\r\n\r\n")

// Conn is the read side the framer needs. *net.TCPConn and net.Pipe
// both satisfy it.
type Conn interface {
	Read(p []byte) (int, error)
	SetReadDeadline(t time.Time) error
}

// Outcome is the result of framing one response. Status is 0 when no
// status line was obtained. Stage is set only on failed outcomes.
type Outcome struct {
	Status  int
	BodyLen int
	Kind    ErrorKind
	Stage   string
}

func (o Outcome) OK() bool {
	return o.Kind == ErrNone
}

// ReadResponse reads one HTTP/1.1 response off c. It accumulates bytes
// until the header terminator, parses the status line, requires a
// numeric Content-Length (chunked bodies are unsupported) and then
// reads exactly that many body bytes. Each individual read is bounded
// by timeout. All failures come back as a typed Outcome, never as a
// panic or a bare error.
func ReadResponse(c Conn, timeout time.Duration) Outcome {
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)

	for !bytes.Contains(buf, headerEnd) {
		c.SetReadDeadline(time.Now().Add(timeout))
		n, err := c.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			continue
		}
		if err != nil {
			if isTimeout(err) {
				return Outcome{Kind: ErrTimeout, Stage: StageReadHeaders}
			}
			return Outcome{Kind: ErrConnectionClosed, Stage: StageReadHeaders}
		}
	}

	idx := bytes.Index(buf, headerEnd)
	headerBlob := buf[:idx]
	body := buf[idx+len(headerEnd):]

	lines := strings.Split(string(headerBlob), "\r\n")
	status, ok := parseStatusLine(lines[0])
	if !ok {
		return Outcome{Kind: ErrMalformedResponse, Stage: StageReadHeaders}
	}

	contentLength, ok := findContentLength(lines[1:])
	if !ok {
		return Outcome{Status: status, Kind: ErrMissingContentLength, Stage: StageReadHeaders}
	}

	for len(body) < contentLength {
		c.SetReadDeadline(time.Now().Add(timeout))
		n, err := c.Read(chunk)
		if n > 0 {
			body = append(body, chunk[:n]...)
			continue
		}
		if err != nil {
			if isTimeout(err) {
				return Outcome{Status: status, Kind: ErrTimeout, Stage: StageReadBody}
			}
			return Outcome{Status: status, Kind: ErrTruncatedBody, Stage: StageReadBody}
		}
	}

	return Outcome{Status: status, BodyLen: contentLength}
}

// parseStatusLine extracts the numeric code from a line like
// "HTTP/1.1 200 OK".
func parseStatusLine(line string) (int, bool) {
	parts := strings.Fields(line)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "HTTP/") {
		return 0, false
	}
	status, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	return status, true
}

func findContentLength(headerLines []string) (int, bool) {
	for _, line := range headerLines {
		name, value, found := strings.Cut(line, ":")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
