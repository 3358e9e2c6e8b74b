package runner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"sockload/internal/conn"
	"sockload/internal/request"
	"sockload/internal/stats"
	"sockload/internal/worker"
)

// Coordinator spawns the workers, holds the shared aggregator, raises
// the stop signal after the configured duration and produces the final
// snapshot.
type Coordinator struct {
	cfg Config
	agg *stats.Aggregator
	log *logrus.Entry
}

func New(cfg Config) *Coordinator {
	cfg = cfg.withDefaults()
	return &Coordinator{
		cfg: cfg,
		agg: stats.New(cfg.Sizes),
		log: logrus.WithField("component", "coordinator"),
	}
}

// Aggregator exposes the shared stats sink, mainly so a metrics
// recorder can be attached before Run.
func (c *Coordinator) Aggregator() *stats.Aggregator {
	return c.agg
}

// Run executes the load test and returns the frozen snapshot. The
// parent ctx can end the run early; otherwise the stop signal fires
// after cfg.Duration. Workers are joined with a bounded timeout: a
// worker stuck inside a socket operation unblocks via its own
// per-operation deadline, never by force.
func (c *Coordinator) Run(ctx context.Context) *stats.Snapshot {
	runID := uuid.NewString()
	cache := request.NewTemplateCache(c.cfg.Host, c.cfg.Port, c.cfg.Mode, c.cfg.Sizes)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.log.WithFields(logrus.Fields{
		"run":      runID,
		"workers":  c.cfg.Workers,
		"duration": c.cfg.Duration,
		"mode":     c.cfg.Mode,
		"target":   request.TargetPath,
	}).Info("starting load test")

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Workers; i++ {
		slot := conn.NewSlot(c.cfg.Host, c.cfg.Port, c.cfg.Timeout, c.cfg.Timeout)
		eng := worker.New(i, c.cfg.Mode, cache, slot, c.agg, c.cfg.Timeout)
		wg.Add(1)
		go func() {
			defer wg.Done()
			eng.Run(runCtx)
		}()
	}

	select {
	case <-time.After(c.cfg.Duration):
	case <-ctx.Done():
		c.log.Info("interrupted, stopping early")
	}
	cancel()

	joined := make(chan struct{})
	go func() {
		wg.Wait()
		close(joined)
	}()
	select {
	case <-joined:
	case <-time.After(c.cfg.JoinTimeout):
		c.log.Warn("join timeout elapsed, abandoning slow workers")
	}

	elapsed := time.Since(start)
	snap := c.agg.Snapshot(runID, elapsed)
	c.log.WithFields(logrus.Fields{
		"run":       runID,
		"requests":  snap.Requests,
		"errors":    snap.Errors,
		"verdict":   snap.Verdict().String(),
		"elapsed_s": elapsed.Seconds(),
	}).Info("load test finished")
	return snap
}
