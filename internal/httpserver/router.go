// Package httpserver builds the outer HTTP surface: path/method
// routing, CORS, and the /api/kv, /api/stats and /metrics handlers.
// Routing is delegated to gorilla/mux rather than hand-rolled, the way
// PayRpc-Bitcoin_Sprint_Production_Final_2/cmd/cb-monitor/main.go wires
// mux.NewRouter() + router.HandleFunc(...).Methods(...); the wire-level
// HTTP/1.1 framing the mux handlers run under is still
// internal/httpmsg + internal/connslot, not net/http's own server.
package httpserver

import (
	"encoding/json"
	"net/http"

	"kvwebserver/internal/dispatch"
	"kvwebserver/internal/resp"
	"kvwebserver/internal/util"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// kvRequest is the POST /api/kv body shape. Value is a pointer so a
// present-but-empty value ("") can be told apart from an absent one,
// matching the original's "Value required" vs. "" distinction.
type kvRequest struct {
	Cmd   string  `json:"cmd"`
	Key   string  `json:"key"`
	Value *string `json:"value"`
}

// NewRouter builds the mux.Router serving every HTTP-facing route.
func NewRouter(engine *dispatch.Engine, log *zap.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	r.HandleFunc("/api/kv", handleKV(engine, log)).Methods("POST")
	r.HandleFunc("/api/kv", preflight).Methods("OPTIONS")
	r.HandleFunc("/api/stats", handleStats(engine)).Methods("GET")
	r.HandleFunc("/api/stats", preflight).Methods("OPTIONS")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.NotFoundHandler = http.HandlerFunc(handleNotFound)

	return r
}

// corsMiddleware adds the three CORS headers to every response,
// mirroring http_kvs_connection.cpp's writeJsonResponse which always
// sends them regardless of route or outcome.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		for k, v := range corsHeaders() {
			w.Header().Set(k, v)
		}
		next.ServeHTTP(w, req)
	})
}

func corsHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type",
	}
}

// preflight answers a bare OPTIONS with 200 and no body; corsMiddleware
// already attached the CORS headers.
func preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// notFoundBody is the exact 404 body for unrouted requests, distinct
// from the resp.Result {"error","detail"} envelope (resp.BadReq,
// resp.Unavail) used for connection-level errors that never reach a
// route (see reactor.writeResultToConn).
var notFoundBody = []byte(`{"status":"ERROR","message":"Not Found"}`)

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	for k, v := range corsHeaders() {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write(notFoundBody)
}

func handleKV(engine *dispatch.Engine, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		traceID := util.NewReqID()
		w.Header().Set("X-Request-Id", traceID)

		var body kvRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			log.Debug("malformed /api/kv body", zap.String("request_id", traceID), zap.Error(err))
			// The dispatcher's own reply shape is what the original wire
			// format uses for every outcome, bad JSON included, so a
			// malformed body still gets a 200 with an ERROR envelope
			// rather than a resp.BadReq; only connection-level failures
			// that never reach a route use the teacher's error shape.
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ERROR","message":"Invalid parameters"}`))
			return
		}

		value := ""
		hasValue := body.Value != nil
		if hasValue {
			value = *body.Value
		}

		reply := engine.Dispatch(body.Cmd, body.Key, value, hasValue)
		w.Header().Set("Content-Type", "application/json")
		w.Write(reply)
	}
}

func handleStats(engine *dispatch.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		b, err := json.Marshal(engine.StatsEnvelope())
		if err != nil {
			WriteResult(w, resp.IntErr("stats_marshal_failed", err.Error()))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(b)
	}
}
