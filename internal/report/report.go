// Package report renders the final run data for the console. It only
// formats what the snapshot already contains; all numbers come from
// the aggregator.
package report

import (
	"fmt"
	"sort"
	"strings"

	"sockload/internal/probe"
	"sockload/internal/runner"
	"sockload/internal/stats"
)

const rule = "======================================================================"

// Header prints the run parameters before the test starts.
func Header(cfg runner.Config) string {
	var b strings.Builder
	b.WriteString("\n" + titleStyle.Render("SOCKLOAD RUN") + "\n")
	b.WriteString(rule + "\n")
	line(&b, "Target", fmt.Sprintf("http://%s:%d/compute/sum", cfg.Host, cfg.Port))
	line(&b, "Workers", fmt.Sprintf("%d", cfg.Workers))
	line(&b, "Duration", cfg.Duration.String())
	line(&b, "Mode", string(cfg.Mode))
	line(&b, "Timeout", cfg.Timeout.String())
	b.WriteString(rule + "\n")
	return b.String()
}

// Render prints the snapshot fields and the verdict.
func Render(s *stats.Snapshot) string {
	var b strings.Builder
	b.WriteString("\n" + titleStyle.Render("RESULTS") + "\n")
	b.WriteString(rule + "\n")
	line(&b, "Run ID", s.ID)
	line(&b, "Total requests", fmt.Sprintf("%d", s.Requests))
	line(&b, "Successful", fmt.Sprintf("%d", s.Successes))
	line(&b, "Errors", fmt.Sprintf("%d (%.2f%%)", s.Errors, s.ErrorRate))
	line(&b, "Throughput", fmt.Sprintf("%.2f req/s", s.Throughput))

	if s.Successes > 0 {
		b.WriteString("\n" + titleStyle.Render("LATENCY (ms, successes only)") + "\n")
		line(&b, "avg", fmt.Sprintf("%.2f", s.Latency.Avg))
		line(&b, "p50", fmt.Sprintf("%.2f", s.Latency.P50))
		line(&b, "p99", fmt.Sprintf("%.2f", s.Latency.P99))
		line(&b, "max", fmt.Sprintf("%.2f", s.Latency.Max))
	}

	if len(s.ErrorKinds) > 0 {
		b.WriteString("\n" + titleStyle.Render("ERRORS BY KIND") + "\n")
		for _, kv := range sortedCounts(s.ErrorKinds) {
			line(&b, kv.key, fmt.Sprintf("%d", kv.count))
		}
	}

	b.WriteString("\n" + titleStyle.Render("STATUS CODES (size:status)") + "\n")
	for _, kv := range sortedCounts(s.StatusCodes) {
		line(&b, kv.key, fmt.Sprintf("%d", kv.count))
	}

	zero := false
	for _, n := range s.ZeroStatusBySize {
		if n > 0 {
			zero = true
		}
	}
	if zero {
		b.WriteString("\n" + titleStyle.Render("NO-RESPONSE BY SIZE") + "\n")
		sizes := make([]int, 0, len(s.ZeroStatusBySize))
		for size := range s.ZeroStatusBySize {
			sizes = append(sizes, size)
		}
		sort.Ints(sizes)
		for _, size := range sizes {
			line(&b, fmt.Sprintf("size=%d", size), fmt.Sprintf("%d", s.ZeroStatusBySize[size]))
		}
	}

	b.WriteString(rule + "\n")
	b.WriteString(verdictLine(s) + "\n")
	return b.String()
}

// RenderProbe prints the keep-alive probe outcome.
func RenderProbe(count int, res probe.Result) string {
	var b strings.Builder
	if res.OK {
		b.WriteString(passStyle.Render("PASS") + fmt.Sprintf(": %d request(s) completed on one socket", count))
		for i, n := range res.BodyLens {
			b.WriteString(fmt.Sprintf("\n  request %d: body length %d", i+1, n))
		}
	} else {
		b.WriteString(failStyle.Render("FAIL") +
			fmt.Sprintf(": request %d failed during %s: %v", res.Request, res.Stage, res.Err))
	}
	return b.String()
}

func verdictLine(s *stats.Snapshot) string {
	switch s.Verdict() {
	case stats.VerdictPass:
		return passStyle.Render("PASS") + ": no refused connections, acceptable error rate"
	case stats.VerdictWarn:
		return warnStyle.Render("WARN") + fmt.Sprintf(": high error rate (%.2f%%)", s.ErrorRate)
	default:
		if s.ConnectRefused() > 0 {
			return failStyle.Render("FAIL") + fmt.Sprintf(": %d refused connection(s)", s.ConnectRefused())
		}
		return failStyle.Render("FAIL") + fmt.Sprintf(": too few successful requests (%d < %d)", s.Successes, stats.MinSuccesses)
	}
}

func line(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-16s:", label)), valueStyle.Render(value))
}

type kv struct {
	key   string
	count uint64
}

func sortedCounts(m map[string]uint64) []kv {
	out := make([]kv, 0, len(m))
	for k, v := range m {
		out = append(out, kv{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}
