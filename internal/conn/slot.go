package conn

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"

	"sockload/internal/proto"
)

// Slot owns at most one TCP connection on behalf of a single worker.
// Slots are never shared: the worker that creates a slot is the only
// goroutine that touches it.
type Slot struct {
	addr        string
	dialTimeout time.Duration
	ioTimeout   time.Duration
	c           net.Conn
}

func NewSlot(host string, port int, dialTimeout, ioTimeout time.Duration) *Slot {
	return &Slot{
		addr:        fmt.Sprintf("%s:%d", host, port),
		dialTimeout: dialTimeout,
		ioTimeout:   ioTimeout,
	}
}

// Acquire establishes the transport connection if the slot is
// disconnected. A fresh connection gets TCP_NODELAY so small request
// writes are not coalesced.
func (s *Slot) Acquire() error {
	if s.c != nil {
		return nil
	}
	d := net.Dialer{Timeout: s.dialTimeout}
	c, err := d.Dial("tcp", s.addr)
	if err != nil {
		return pkgerrors.Wrap(err, "dial "+s.addr)
	}
	if tc, ok := c.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}
	s.c = c
	return nil
}

// Connected reports whether the slot currently holds a live transport.
func (s *Slot) Connected() bool {
	return s.c != nil
}

// Send writes the full request, bounded by the slot's I/O timeout.
func (s *Slot) Send(b []byte) error {
	s.c.SetWriteDeadline(time.Now().Add(s.ioTimeout))
	_, err := s.c.Write(b)
	return err
}

// Read and SetReadDeadline let the slot act as the framer's Conn.
func (s *Slot) Read(p []byte) (int, error) {
	return s.c.Read(p)
}

func (s *Slot) SetReadDeadline(t time.Time) error {
	return s.c.SetReadDeadline(t)
}

// Close releases the transport and marks the slot disconnected. Close
// failures are swallowed: cleanup is best effort and never escalated.
func (s *Slot) Close() {
	if s.c == nil {
		return
	}
	s.c.Close()
	s.c = nil
}

// Classify maps a transport error onto the outcome taxonomy.
func Classify(err error) proto.ErrorKind {
	switch {
	case err == nil:
		return proto.ErrNone
	case errors.Is(err, syscall.ECONNREFUSED):
		return proto.ErrConnectRefused
	case errors.Is(err, syscall.ECONNRESET):
		return proto.ErrConnectReset
	case isTimeout(err):
		return proto.ErrTimeout
	case errors.Is(err, io.EOF) || errors.Is(err, syscall.EPIPE) || errors.Is(err, net.ErrClosed):
		return proto.ErrConnectionClosed
	default:
		return proto.ErrConnect
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
