package probe

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sockload/internal/proto"
)

func hostPort(t *testing.T, l net.Listener) (string, int) {
	t.Helper()
	addr := l.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func startOKServer(t *testing.T) (string, int) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sum":6,"count":3}`))
	}))
	t.Cleanup(ts.Close)
	return hostPort(t, ts.Listener)
}

func TestVerifyHealthyServer(t *testing.T) {
	host, port := startOKServer(t)

	res := Verify(host, port, 5, time.Second)
	require.True(t, res.OK, "probe failed: request %d stage %s err %v", res.Request, res.Stage, res.Err)
	require.Len(t, res.BodyLens, 5)
	for _, n := range res.BodyLens {
		assert.Equal(t, 19, n) // len(`{"sum":6,"count":3}`)
	}
}

func TestVerifyIsRepeatable(t *testing.T) {
	host, port := startOKServer(t)

	for i := 0; i < 3; i++ {
		res := Verify(host, port, 5, time.Second)
		assert.True(t, res.OK, "run %d", i)
	}
}

func TestVerifyZeroCountIsNoop(t *testing.T) {
	// No server needed: zero requests never touch the network.
	res := Verify("127.0.0.1", 1, 0, time.Second)
	assert.True(t, res.OK)
	assert.Empty(t, res.BodyLens)
}

func TestVerifyRefusedConnection(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port := hostPort(t, l)
	l.Close()

	res := Verify("127.0.0.1", port, 3, time.Second)
	assert.False(t, res.OK)
	assert.Equal(t, 1, res.Request)
	assert.Equal(t, proto.StageConnect, res.Stage)
	assert.Error(t, res.Err)
}

// closeAfterFirst accepts one connection, answers a single request and
// slams the socket shut.
func closeAfterFirst(t *testing.T) (string, int) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	go func() {
		c, err := l.Accept()
		if err != nil {
			return
		}
		buf := make([]byte, 4096)
		c.Read(buf)
		body := "ok"
		fmt.Fprintf(c, "HTTP/1.1 200 OK\r\nContent-Length: %d\r\n\r\n%s", len(body), body)
		c.Close()
	}()
	return hostPort(t, l)
}

func TestVerifyPrematureClose(t *testing.T) {
	host, port := closeAfterFirst(t)

	res := Verify(host, port, 3, time.Second)
	assert.False(t, res.OK)
	assert.Equal(t, 2, res.Request, "first request succeeds, the reuse attempt fails")
	assert.Contains(t, []string{proto.StageSend, proto.StageReadHeaders}, res.Stage)
}

func missingContentLengthServer(t *testing.T) (string, int) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	go func() {
		c, err := l.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 4096)
		c.Read(buf)
		fmt.Fprint(c, "HTTP/1.1 200 OK\r\nConnection: keep-alive\r\n\r\nbody")
		// Hold the socket open so the failure is the missing header,
		// not a close.
		time.Sleep(2 * time.Second)
	}()
	return hostPort(t, l)
}

func TestVerifyMissingContentLength(t *testing.T) {
	host, port := missingContentLengthServer(t)

	res := Verify(host, port, 2, time.Second)
	assert.False(t, res.OK)
	assert.Equal(t, 1, res.Request)
	assert.Equal(t, proto.StageReadHeaders, res.Stage)
}
