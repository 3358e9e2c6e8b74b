// Package probe validates multi-request socket reuse: it sends a fixed
// sequence of keep-alive requests down a single connection and frames
// every response completely before issuing the next.
package probe

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"sockload/internal/conn"
	"sockload/internal/proto"
	"sockload/internal/request"
)

const DefaultTimeout = 2 * time.Second

// Result reports the probe outcome. On failure, Request is the
// 1-based index of the request that failed and Stage names the
// protocol stage (send, read-headers, read-body).
type Result struct {
	OK       bool
	Request  int
	Stage    string
	Err      error
	BodyLens []int
}

// Verify opens one connection and issues count identical requests on
// it, strictly sequentially. count == 0 is a no-op success. The first
// premature close, missing Content-Length or transport error stops the
// probe.
func Verify(host string, port int, count int, timeout time.Duration) Result {
	log := logrus.WithField("component", "probe")
	if count <= 0 {
		return Result{OK: true}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	body := []byte("[1,2,3]")
	req := request.Build(host, port, request.ModeKeepAlive, body)

	slot := conn.NewSlot(host, port, timeout, timeout)
	defer slot.Close()
	if err := slot.Acquire(); err != nil {
		return Result{Request: 1, Stage: proto.StageConnect, Err: err}
	}

	res := Result{BodyLens: make([]int, 0, count)}
	for i := 1; i <= count; i++ {
		if err := slot.Send(req); err != nil {
			res.Request, res.Stage, res.Err = i, proto.StageSend, err
			return res
		}
		out := proto.ReadResponse(slot, timeout)
		if !out.OK() {
			res.Request, res.Stage = i, out.Stage
			res.Err = errors.Errorf("framing failed: %s", out.Kind)
			return res
		}
		if out.Status != http.StatusOK {
			res.Request, res.Stage = i, proto.StageReadHeaders
			res.Err = errors.Errorf("unexpected status %d", out.Status)
			return res
		}
		res.BodyLens = append(res.BodyLens, out.BodyLen)
		log.WithFields(logrus.Fields{"request": i, "body_len": out.BodyLen}).Debug("response framed")
	}
	res.OK = true
	return res
}
