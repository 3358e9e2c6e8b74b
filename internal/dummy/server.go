// Package dummy is a built-in target for local runs: a minimal
// compute-sum service speaking exactly the protocol the harness
// exercises.
package dummy

import (
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ServerConfig struct {
	Port int

	// FailureRate injects HTTP 500s for verdict testing, 0..1.
	FailureRate float64
}

// Router builds the gin handler. Split out so tests can mount it on an
// httptest server.
func Router(cfg ServerConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.POST("/compute/sum", func(c *gin.Context) {
		if cfg.FailureRate > 0 && rand.Float64() < cfg.FailureRate {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "injected failure"})
			return
		}
		var values []float64
		if err := c.ShouldBindJSON(&values); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expected a JSON array of numbers"})
			return
		}
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		c.JSON(http.StatusOK, gin.H{"sum": sum, "count": len(values)})
	})
	return r
}

// Start runs the server in the background and returns it for shutdown.
// Keep-alive and Connection: close are both honored by net/http.
func Start(cfg ServerConfig) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     Router(cfg),
		ReadTimeout: 30 * time.Second,
	}
	logrus.WithField("addr", addr).Info("dummy compute server listening")
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("dummy server failed")
		}
	}()
	return srv
}
