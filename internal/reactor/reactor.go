// Package reactor implements the accept loop and idle-timer wiring
// (C9). Grounded on the teacher's ListenAndServe/HandleConn
// (internal/server/server.go): goroutine-per-connection is Go's
// idiomatic rendering of the original's single-epoll-thread reactor,
// since the runtime netpoller already multiplexes readiness the way a
// hand-rolled epoll loop would; see DESIGN.md for the full rationale.
// What the original's architecture still needs explicitly is kept
// explicit here: a fixed worker pool draining a blocking queue
// (internal/queue, internal/workerpool) executes every parsed request,
// and a ticking timer wheel (internal/timerwheel) reaps idle
// connections, both wired through internal/connslot's per-connection
// state.
package reactor

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"kvwebserver/internal/config"
	"kvwebserver/internal/connslot"
	"kvwebserver/internal/httpmsg"
	"kvwebserver/internal/httpserver"
	"kvwebserver/internal/metrics"
	"kvwebserver/internal/queue"
	"kvwebserver/internal/resp"
	"kvwebserver/internal/timerwheel"
	"kvwebserver/internal/workerpool"

	"go.uber.org/zap"
)

// Reactor owns the listener, the timer wheel, and the queue/pool pair
// that execute every parsed request off the connection's own goroutine.
type Reactor struct {
	cfg     config.Config
	handler http.Handler
	log     *zap.Logger

	wheel *timerwheel.Wheel
	q     *queue.Queue
	pool  *workerpool.Pool

	liveConn int64
}

// New builds a Reactor. handler is the outer HTTP surface (typically
// httpserver.NewRouter's mux.Router); Run still owns the raw
// connection lifecycle and wire framing via internal/httpmsg.
func New(cfg config.Config, handler http.Handler, log *zap.Logger) *Reactor {
	q := queue.New()
	return &Reactor{
		cfg:     cfg,
		handler: handler,
		log:     log,
		wheel:   timerwheel.New(),
		q:       q,
		pool:    workerpool.New(q, cfg.Workers, log),
	}
}

// Run listens on cfg.Addr and serves connections until ctx is
// cancelled, at which point it stops accepting, cancels the queue, and
// waits for in-flight tasks to finish before returning nil. A listener
// or accept error returns immediately with that error.
func (r *Reactor) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", r.cfg.Addr)
	if err != nil {
		return err
	}

	r.pool.Start()
	tickCtx, stopTicker := context.WithCancel(ctx)
	defer stopTicker()
	tickDone := r.startTicker(tickCtx)

	acceptErr := make(chan error, 1)
	go r.acceptLoop(ln, acceptErr)

	select {
	case <-ctx.Done():
		ln.Close()
		r.pool.Close()
		<-tickDone
		return nil
	case err := <-acceptErr:
		r.pool.Close()
		stopTicker()
		<-tickDone
		return err
	}
}

func (r *Reactor) acceptLoop(ln net.Listener, acceptErr chan<- error) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			acceptErr <- err
			return
		}
		if atomic.LoadInt64(&r.liveConn) >= int64(r.cfg.MaxConn) {
			conn.Close()
			continue
		}
		atomic.AddInt64(&r.liveConn, 1)
		go r.handleConn(conn)
	}
}

// startTicker drives the timer wheel at cfg.TimeSlot, the generalized
// form of the original's TIMESLOT alarm(). It also refreshes the
// gauges that change only on a schedule, not per request.
func (r *Reactor) startTicker(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(r.cfg.TimeSlot)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				before := r.wheel.Len()
				r.wheel.Tick(time.Now().Unix())
				reaped := before - r.wheel.Len()
				if reaped > 0 {
					metrics.ConnectionsReaped.Add(float64(reaped))
				}
				metrics.LiveConnections.Set(float64(atomic.LoadInt64(&r.liveConn)))
				metrics.QueueDepth.Set(float64(r.q.Len()))
			}
		}
	}()
	return done
}

func (r *Reactor) nextExpiry() int64 {
	return time.Now().Add(r.cfg.IdleTimeout).Unix()
}

// handleConn runs the per-connection state machine (C8) until the peer
// disconnects, sends Connection: close, or the idle timer reaps it.
func (r *Reactor) handleConn(conn net.Conn) {
	defer atomic.AddInt64(&r.liveConn, -1)

	slot := connslot.New(conn)
	rec := r.wheel.Add(r.nextExpiry(), func() { slot.Close() })
	slot.AttachTimer(rec)
	defer func() {
		r.wheel.Del(slot.Timer())
		slot.Close()
	}()

	for {
		slot.SetPhase(connslot.Reading)
		req, err := httpmsg.ParseRequest(slot.Reader)
		if err != nil {
			if err != httpmsg.ErrIncomplete {
				r.log.Debug("malformed request, closing connection",
					zap.String("conn_id", slot.ID.String()), zap.Error(err))
			}
			return
		}
		r.wheel.Adjust(slot.Timer(), r.nextExpiry())

		slot.SetPhase(connslot.Processing)
		httpReq, buildErr := toHTTPRequest(req)
		if buildErr != nil {
			writeResultToConn(conn, resp.BadReq("bad_request", buildErr.Error()))
			return
		}

		out, ok := r.runOnPool(httpReq)
		if !ok {
			writeResultToConn(conn, resp.Unavail("shutting_down", "server is shutting down"))
			return
		}

		slot.SetPhase(connslot.Writing)
		keepAlive := req.KeepAlive()
		httpmsg.Write(conn, out.Code, out.ContentType(), out.Body.String(), keepAlive, out.ExtraHeaders())

		if !keepAlive {
			return
		}
	}
}

// runOnPool hands one parsed request to the worker pool (C1/C2) and
// blocks this connection's goroutine for the result, matching the
// "at most one task in flight per connection" invariant.
func (r *Reactor) runOnPool(httpReq *http.Request) (*httpserver.Recorder, bool) {
	result := make(chan *httpserver.Recorder, 1)
	pushed := r.q.Push(func() {
		rec := httpserver.NewRecorder()
		r.handler.ServeHTTP(rec, httpReq)
		result <- rec
	})
	if !pushed {
		return nil, false
	}
	return <-result, true
}

// writeResultToConn renders a resp.Result through the same Recorder
// path the dispatched handlers use, so connection-level error replies
// (bad framing, pool refusing work) share one error-envelope shape
// with the rest of the HTTP surface instead of hand-built JSON strings.
func writeResultToConn(conn net.Conn, r resp.Result) {
	rec := httpserver.NewRecorder()
	httpserver.WriteResult(rec, r)
	httpmsg.Write(conn, rec.Code, rec.ContentType(), rec.Body.String(), false, rec.ExtraHeaders())
}

func toHTTPRequest(req *httpmsg.Request) (*http.Request, error) {
	httpReq, err := http.NewRequest(req.Method, req.Target, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}
