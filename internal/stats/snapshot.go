package stats

import (
	"strconv"
	"strings"
	"time"
)

// Verdict is the pass/fail classification of a finished run.
type Verdict int

const (
	VerdictPass Verdict = iota
	VerdictWarn
	VerdictFail
)

func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "PASS"
	case VerdictWarn:
		return "WARN"
	default:
		return "FAIL"
	}
}

// Thresholds for the run verdict.
const (
	MinSuccesses = 100
	MaxErrorRate = 1.0 // percent
)

// Latencies holds the latency summary in milliseconds, computed over
// successful requests only.
type Latencies struct {
	Avg float64 `json:"avg"`
	P50 float64 `json:"50th"`
	P99 float64 `json:"99th"`
	Max float64 `json:"max"`
}

// Snapshot is the immutable result of a run, taken after every worker
// has joined.
type Snapshot struct {
	ID       string  `json:"id"`
	Duration float64 `json:"duration_seconds"`

	Requests   uint64  `json:"requests"`
	Successes  uint64  `json:"successes"`
	Errors     uint64  `json:"errors"`
	ErrorRate  float64 `json:"error_rate"`
	Throughput float64 `json:"throughput"`

	Latency Latencies `json:"latencies"`

	StatusCodes      map[string]uint64 `json:"status_codes"`
	ErrorKinds       map[string]uint64 `json:"error_kinds"`
	SuccessBySize    map[int]uint64    `json:"success_by_size"`
	ErrorBySize      map[int]uint64    `json:"error_by_size"`
	ZeroStatusBySize map[int]uint64    `json:"zero_status_by_size"`

	LatencySamples []float64 `json:"-"`
}

// Snapshot freezes the aggregator state. It is only called once all
// workers have joined, so the copies it takes are race free.
func (a *Aggregator) Snapshot(id string, elapsed time.Duration) *Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := &Snapshot{
		ID:               id,
		Duration:         elapsed.Seconds(),
		StatusCodes:      make(map[string]uint64, len(a.statusHist)),
		ErrorKinds:       make(map[string]uint64, len(a.errorKinds)),
		SuccessBySize:    make(map[int]uint64, len(a.successBySize)),
		ErrorBySize:      make(map[int]uint64, len(a.errorBySize)),
		ZeroStatusBySize: make(map[int]uint64, len(a.sizes)),
		LatencySamples:   append([]float64(nil), a.latencies...),
	}

	for _, size := range a.sizes {
		s.SuccessBySize[size] = a.successBySize[size]
		s.ErrorBySize[size] = a.errorBySize[size]
		s.ZeroStatusBySize[size] = 0
		s.Successes += a.successBySize[size]
		s.Errors += a.errorBySize[size]
	}
	s.Requests = s.Successes + s.Errors

	for key, count := range a.statusHist {
		s.StatusCodes[key] = count
		sizeStr, statusStr, _ := strings.Cut(key, ":")
		if status, _ := strconv.Atoi(statusStr); status == 0 {
			size, _ := strconv.Atoi(sizeStr)
			s.ZeroStatusBySize[size] += count
		}
	}

	for label, count := range a.errorKinds {
		s.ErrorKinds[label] = count
	}

	if s.Requests > 0 {
		s.ErrorRate = float64(s.Errors) / float64(s.Requests) * 100
	}
	if elapsed > 0 {
		s.Throughput = float64(s.Requests) / elapsed.Seconds()
	}
	if s.Successes > 0 {
		s.Latency = Latencies{
			Avg: a.hist.MeanMs(),
			P50: a.hist.QuantileMs(50),
			P99: a.hist.QuantileMs(99),
			Max: a.hist.MaxMs(),
		}
	}
	return s
}

// ConnectRefused returns how many requests failed with a refused
// connection.
func (s *Snapshot) ConnectRefused() uint64 {
	return s.ErrorKinds["connect_refused"]
}

// Verdict applies the pass criteria: any refused connection fails the
// run outright, too few successes fails it, and an error rate above
// the threshold downgrades it to WARN.
func (s *Snapshot) Verdict() Verdict {
	switch {
	case s.ConnectRefused() > 0:
		return VerdictFail
	case s.Successes < MinSuccesses:
		return VerdictFail
	case s.ErrorRate > MaxErrorRate:
		return VerdictWarn
	default:
		return VerdictPass
	}
}
