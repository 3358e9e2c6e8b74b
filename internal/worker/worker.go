package worker

import (
	"context"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"sockload/internal/conn"
	"sockload/internal/proto"
	"sockload/internal/request"
	"sockload/internal/stats"
)

// Engine drives one worker's request loop. Each engine owns exactly
// one connection slot and its own random source; the aggregator is the
// only shared state it touches.
type Engine struct {
	id      int
	mode    request.Mode
	cache   *request.TemplateCache
	slot    *conn.Slot
	agg     *stats.Aggregator
	rng     *rand.Rand
	timeout time.Duration
	log     *logrus.Entry
}

func New(id int, mode request.Mode, cache *request.TemplateCache, slot *conn.Slot, agg *stats.Aggregator, timeout time.Duration) *Engine {
	return &Engine{
		id:      id,
		mode:    mode,
		cache:   cache,
		slot:    slot,
		agg:     agg,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano() + int64(id))),
		timeout: timeout,
		log:     logrus.WithField("worker", id),
	}
}

// Run loops until ctx is cancelled. Cancellation is cooperative and
// checked once per iteration; an in-flight connect or read can only
// unblock through its own timeout. Every error is converted into a
// counter increment and never terminates the loop.
func (e *Engine) Run(ctx context.Context) {
	defer e.slot.Close()

	for {
		select {
		case <-ctx.Done():
			e.log.Debug("stop observed, closing slot")
			return
		default:
		}
		e.iterate()
	}
}

func (e *Engine) iterate() {
	size, template := e.cache.Pick(e.rng)
	start := time.Now()

	if err := e.slot.Acquire(); err != nil {
		e.agg.RecordError(size, 0, conn.Classify(err))
		return
	}

	if err := e.slot.Send(template); err != nil {
		e.agg.RecordError(size, 0, conn.Classify(err))
		e.slot.Close()
		return
	}

	out := proto.ReadResponse(e.slot, e.timeout)
	latency := time.Since(start)

	switch {
	case !out.OK():
		e.agg.RecordError(size, out.Status, out.Kind)
		e.slot.Close()
	case out.Status != http.StatusOK:
		// A non-200 on a reused connection could in principle be kept
		// alive, but the framing state is not trusted after one.
		e.agg.RecordError(size, out.Status, proto.ErrNonSuccessStatus)
		e.slot.Close()
	default:
		e.agg.RecordSuccess(size, latency)
		if e.mode == request.ModeClose {
			e.slot.Close()
		}
	}
}
