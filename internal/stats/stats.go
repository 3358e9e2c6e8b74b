package stats

import (
	"fmt"
	"sync"
	"time"

	"sockload/internal/proto"
)

// Recorder mirrors aggregator updates into an external sink, e.g. the
// Prometheus collectors in internal/metrics. Calls happen inside the
// worker request path, so implementations must be cheap and
// concurrency safe.
type Recorder interface {
	RecordSuccess(size, status int, latency time.Duration)
	RecordError(size int, kind string)
}

// Aggregator is the single piece of state shared by every worker. All
// mutation goes through one mutex; counters only ever increase for the
// lifetime of a run.
type Aggregator struct {
	mu sync.Mutex

	sizes         []int
	successBySize map[int]uint64
	errorBySize   map[int]uint64
	statusHist    map[string]uint64
	errorKinds    map[string]uint64
	latencies     []float64

	hist *latencyHistogram
	rec  Recorder
}

func New(sizes []int) *Aggregator {
	a := &Aggregator{
		sizes:         append([]int(nil), sizes...),
		successBySize: make(map[int]uint64, len(sizes)),
		errorBySize:   make(map[int]uint64, len(sizes)),
		statusHist:    make(map[string]uint64),
		errorKinds:    make(map[string]uint64),
		hist:          newLatencyHistogram(),
	}
	for _, size := range sizes {
		a.successBySize[size] = 0
		a.errorBySize[size] = 0
	}
	return a
}

// SetRecorder attaches an optional metrics sink. Call before the run
// starts; the aggregator does not synchronize swapping it mid-run.
func (a *Aggregator) SetRecorder(r Recorder) {
	a.rec = r
}

// RecordSuccess counts a 200 response and its latency.
func (a *Aggregator) RecordSuccess(size int, latency time.Duration) {
	a.mu.Lock()
	a.successBySize[size]++
	a.statusHist[statusKey(size, 200)]++
	a.latencies = append(a.latencies, float64(latency.Milliseconds()))
	a.mu.Unlock()

	a.hist.Record(latency)
	if a.rec != nil {
		a.rec.RecordSuccess(size, 200, latency)
	}
}

// RecordError counts a failed request. status is 0 when no status line
// was obtained; kind selects the error bucket. A well-formed non-200
// response is recorded under its real status with a status_<code>
// label.
func (a *Aggregator) RecordError(size, status int, kind proto.ErrorKind) {
	label := kind.String()
	if kind == proto.ErrNonSuccessStatus {
		label = fmt.Sprintf("status_%d", status)
	}

	a.mu.Lock()
	a.errorBySize[size]++
	a.statusHist[statusKey(size, status)]++
	a.errorKinds[label]++
	a.mu.Unlock()

	if a.rec != nil {
		a.rec.RecordError(size, label)
	}
}

func statusKey(size, status int) string {
	return fmt.Sprintf("%d:%d", size, status)
}
