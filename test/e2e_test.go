// Package e2e drives the reactor over a real TCP socket and checks the
// literal request/response scenarios a client of this server would see.
// Grounded on internal/reactor's own test helpers, duplicated here
// because this package only has access to the exported surface
// (internal/reactor, internal/httpserver, internal/dispatch, internal/config).
package e2e

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"kvwebserver/internal/config"
	"kvwebserver/internal/dispatch"
	"kvwebserver/internal/httpserver"
	"kvwebserver/internal/reactor"

	"go.uber.org/zap"
)

func startServer(t *testing.T) (addr string, shutdown func()) {
	t.Helper()

	engine := dispatch.NewEngine(0, 0, 0)
	handler := httpserver.NewRouter(engine, zap.NewNop())

	cfg := config.Config{
		Addr:        "127.0.0.1:0",
		Workers:     2,
		MaxConn:     100,
		TimeSlot:    50 * time.Millisecond,
		IdleTimeout: 150 * time.Millisecond,
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr = ln.Addr().String()
	ln.Close()
	cfg.Addr = addr

	r := reactor.New(cfg, handler, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	waitForListener(t, addr)

	return addr, func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("server did not shut down")
		}
	}
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			c.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server never started listening on %s", addr)
}

func postKV(t *testing.T, conn net.Conn, body string) map[string]any {
	t.Helper()
	req := "POST /api/kv HTTP/1.1\r\n" +
		"Host: x\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: " + itoa(len(body)) + "\r\n" +
		"\r\n" + body
	if _, err := conn.Write([]byte(req)); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func arrayCount(t *testing.T, reply map[string]any) float64 {
	t.Helper()
	data, ok := reply["data"].(map[string]any)
	if !ok {
		t.Fatalf("reply has no data field: %v", reply)
	}
	arr, ok := data["array"].(map[string]any)
	if !ok {
		t.Fatalf("data has no array field: %v", data)
	}
	return arr["count"].(float64)
}

func hashCount(t *testing.T, reply map[string]any) float64 {
	t.Helper()
	data := reply["data"].(map[string]any)
	h := data["hash"].(map[string]any)
	return h["count"].(float64)
}

// Scenario 1 & 2: SET then repeat SET.
func TestE2E_SetThenRepeatSetIsExist(t *testing.T) {
	addr, shutdown := startServer(t)
	defer shutdown()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := postKV(t, conn, `{"cmd":"SET","key":"a","value":"1"}`)
	if first["status"] != "OK" || first["message"] != "Set successfully" {
		t.Fatalf("first SET = %v", first)
	}
	if arrayCount(t, first) != 1 {
		t.Fatalf("array.count after first SET = %v", first)
	}

	second := postKV(t, conn, `{"cmd":"SET","key":"a","value":"2"}`)
	if second["status"] != "EXIST" {
		t.Fatalf("repeat SET = %v", second)
	}
	if arrayCount(t, second) != 1 {
		t.Fatalf("array.count after repeat SET = %v", second)
	}
}

// Scenario 3: GET returns the stored value as the message.
func TestE2E_GetReturnsStoredValueAsMessage(t *testing.T) {
	addr, shutdown := startServer(t)
	defer shutdown()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	postKV(t, conn, `{"cmd":"SET","key":"a","value":"1"}`)
	got := postKV(t, conn, `{"cmd":"GET","key":"a"}`)
	if got["status"] != "OK" || got["message"] != "1" {
		t.Fatalf("GET = %v", got)
	}
}

// Scenario 4: the hash family routes independently of the array family.
func TestE2E_HashFamilyIsIndependentOfArray(t *testing.T) {
	addr, shutdown := startServer(t)
	defer shutdown()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	postKV(t, conn, `{"cmd":"HSET","key":"x","value":"y"}`)
	got := postKV(t, conn, `{"cmd":"HGET","key":"x"}`)
	if got["message"] != "y" {
		t.Fatalf("HGET = %v", got)
	}
	if hashCount(t, got) != 1 {
		t.Fatalf("hash.count = %v", got)
	}
}

// Scenario 5: DEL then repeat DEL is idempotent and reports NO_EXIST.
func TestE2E_DelThenRepeatDelIsNoExist(t *testing.T) {
	addr, shutdown := startServer(t)
	defer shutdown()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	postKV(t, conn, `{"cmd":"SET","key":"a","value":"1"}`)

	first := postKV(t, conn, `{"cmd":"DEL","key":"a"}`)
	if first["status"] != "OK" {
		t.Fatalf("first DEL = %v", first)
	}
	second := postKV(t, conn, `{"cmd":"DEL","key":"a"}`)
	if second["status"] != "NO_EXIST" {
		t.Fatalf("second DEL = %v", second)
	}
}

// Scenario 6: an unrecognized command is a clean ERROR, not a crash.
func TestE2E_UnknownCommandIsError(t *testing.T) {
	addr, shutdown := startServer(t)
	defer shutdown()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	got := postKV(t, conn, `{"cmd":"BOGUS","key":"k"}`)
	if got["status"] != "ERROR" || got["message"] != "Unknown command" {
		t.Fatalf("BOGUS = %v", got)
	}
}

// Scenario 7: a connection that sends a valid header and then never
// completes the body is reaped once it has been idle past the timer
// wheel's deadline, freeing the listener from a stalled peer.
func TestE2E_IdleConnectionWithoutBodyIsReaped(t *testing.T) {
	addr, shutdown := startServer(t)
	defer shutdown()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	header := "POST /api/kv HTTP/1.1\r\n" +
		"Host: x\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: 100\r\n" +
		"\r\n"
	if _, err := conn.Write([]byte(header)); err != nil {
		t.Fatalf("write header: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err == nil {
		t.Fatalf("expected the idle connection to be closed by the timer wheel")
	}
}
