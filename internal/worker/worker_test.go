package worker

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sockload/internal/conn"
	"sockload/internal/request"
	"sockload/internal/stats"
)

// countingTarget serves 200s (or a fixed status) and counts accepted
// connections.
func countingTarget(t *testing.T, status int) (host string, port int, conns *int64) {
	t.Helper()
	var count int64
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
		}
		w.Write([]byte(`{"sum":0,"count":0}`))
	}))
	ts.Config.ConnState = func(c net.Conn, s http.ConnState) {
		if s == http.StateNew {
			atomic.AddInt64(&count, 1)
		}
	}
	ts.Start()
	t.Cleanup(ts.Close)
	addr := ts.Listener.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, &count
}

func newEngine(host string, port int, mode request.Mode, sizes []int) (*Engine, *stats.Aggregator) {
	agg := stats.New(sizes)
	cache := request.NewTemplateCache(host, port, mode, sizes)
	slot := conn.NewSlot(host, port, time.Second, time.Second)
	return New(0, mode, cache, slot, agg, time.Second), agg
}

func TestKeepAliveRetainsConnection(t *testing.T) {
	host, port, conns := countingTarget(t, http.StatusOK)
	eng, agg := newEngine(host, port, request.ModeKeepAlive, []int{1})

	for i := 0; i < 5; i++ {
		eng.iterate()
	}

	snap := agg.Snapshot("t", time.Second)
	assert.Equal(t, uint64(5), snap.Successes)
	assert.EqualValues(t, 1, atomic.LoadInt64(conns), "all requests should share one connection")
	assert.True(t, eng.slot.Connected())
	eng.slot.Close()
}

func TestCloseModeDiscardsEveryConnection(t *testing.T) {
	host, port, conns := countingTarget(t, http.StatusOK)
	eng, agg := newEngine(host, port, request.ModeClose, []int{1})

	for i := 0; i < 4; i++ {
		eng.iterate()
	}

	snap := agg.Snapshot("t", time.Second)
	assert.Equal(t, uint64(4), snap.Successes)
	assert.EqualValues(t, 4, atomic.LoadInt64(conns), "close mode must dial per request")
	assert.False(t, eng.slot.Connected())
}

func TestNonSuccessStatusDiscardsConnection(t *testing.T) {
	host, port, _ := countingTarget(t, http.StatusServiceUnavailable)
	eng, agg := newEngine(host, port, request.ModeKeepAlive, []int{1})

	eng.iterate()

	snap := agg.Snapshot("t", time.Second)
	assert.Zero(t, snap.Successes)
	assert.Equal(t, uint64(1), snap.Errors)
	assert.Equal(t, uint64(1), snap.ErrorKinds["status_503"])
	assert.Equal(t, uint64(1), snap.StatusCodes["1:503"])
	assert.False(t, eng.slot.Connected(), "non-200 must discard the connection")
}

func TestRunStopsOnCancel(t *testing.T) {
	host, port, _ := countingTarget(t, http.StatusOK)
	eng, agg := newEngine(host, port, request.ModeKeepAlive, []int{1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not observe the stop signal")
	}

	snap := agg.Snapshot("t", time.Second)
	assert.Greater(t, snap.Requests, uint64(0))
	assert.False(t, eng.slot.Connected(), "slot must be released on exit")
}
