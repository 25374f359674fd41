package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"

	"kvwebserver/internal/resp"
)

// Recorder is a minimal http.ResponseWriter that buffers the handler's
// output instead of writing to a socket: mux and our handlers run
// against it, then the reactor's connection loop formats the result
// onto the wire with internal/httpmsg, which already owns framing,
// keep-alive and Content-Length.
type Recorder struct {
	Code int
	Hdr  http.Header
	Body bytes.Buffer
}

// NewRecorder returns a Recorder defaulted to 200, matching
// net/http.ResponseWriter's documented WriteHeader-not-called behavior.
func NewRecorder() *Recorder {
	return &Recorder{Code: http.StatusOK, Hdr: make(http.Header)}
}

func (r *Recorder) Header() http.Header { return r.Hdr }

func (r *Recorder) Write(b []byte) (int, error) { return r.Body.Write(b) }

func (r *Recorder) WriteHeader(code int) { r.Code = code }

// ContentType returns the Content-Type header, defaulting to
// application/json since that's what every route but /metrics emits.
func (r *Recorder) ContentType() string {
	if ct := r.Hdr.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/json"
}

// WriteResult renders a resp.Result onto w, the same error-envelope
// shape the teacher's router returned before every handler here wrote
// straight to an http.ResponseWriter.
func WriteResult(w http.ResponseWriter, r resp.Result) {
	for k, v := range r.Headers {
		w.Header().Set(k, v)
	}
	if r.Err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(r.Status)
		b, _ := json.Marshal(r.Err)
		w.Write(b)
		return
	}
	if r.JSON {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(r.Status)
	w.Write([]byte(r.Body))
}

// ExtraHeaders returns every recorded header except the ones
// internal/httpmsg recomputes itself (Content-Type is passed
// separately, Content-Length/Date/Connection/Server are wire-framing
// concerns the recorder never touches).
func (r *Recorder) ExtraHeaders() map[string]string {
	out := make(map[string]string, len(r.Hdr))
	for k, v := range r.Hdr {
		if k == "Content-Type" || len(v) == 0 {
			continue
		}
		out[k] = v[0]
	}
	return out
}
