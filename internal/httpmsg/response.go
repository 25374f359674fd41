package httpmsg

import (
	"fmt"
	"io"
	"maps"
	"time"
)

// write composes an HTTP/1.1 response including Content-Length and the
// Connection header matching keepAlive. Accepts extra headers (CORS,
// tracing) merged in with the standard ones.
func write(w io.Writer, status int, contentType string, body string, keepAlive bool, extra map[string]string) {
	conn := "close"
	if keepAlive {
		conn = "keep-alive"
	}
	headers := map[string]string{
		"Date":           time.Now().UTC().Format(time.RFC1123),
		"Content-Type":   contentType,
		"Content-Length": fmt.Sprintf("%d", len(body)),
		"Connection":     conn,
		"Server":         "kvwebserver/1.0",
	}
	if extra != nil {
		maps.Copy(headers, extra)
	}

	io.WriteString(w, fmt.Sprintf("HTTP/1.1 %d %s\r\n", status, statusText(status)))
	for k, v := range headers {
		io.WriteString(w, fmt.Sprintf("%s: %s\r\n", k, v))
	}
	io.WriteString(w, "\r\n")
	io.WriteString(w, body)
}

// WriteJSON writes a JSON response (already-serialized string) with
// extra headers (CORS, tracing).
func WriteJSON(w io.Writer, status int, json string, keepAlive bool, extra map[string]string) {
	write(w, status, "application/json", json, keepAlive, extra)
}

// Write writes a response with an arbitrary content-type. The reactor
// uses it for every response, passing the handler's content type
// (JSON for the API routes, Prometheus text for /metrics).
func Write(w io.Writer, status int, contentType, body string, keepAlive bool, extra map[string]string) {
	write(w, status, contentType, body, keepAlive, extra)
}

// CORSHeaders are the CORS headers that accompany every /api/kv and
// /api/stats response (always present).
func CORSHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type",
	}
}

// EscapeJSONString escapes double quotes and backslashes in s so it can
// be embedded as a JSON string value. The original didn't escape at
// all; the minimum needed to avoid breaking the response object is
// escaping '"' and '\\'.
func EscapeJSONString(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}

func statusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 409:
		return "Conflict"
	case 429:
		return "Too Many Requests"
	case 500:
		return "Internal Server Error"
	case 503:
		return "Service Unavailable"
	default:
		return "OK"
	}
}
