// Package connslot implements the per-connection state machine (C8):
// each accepted net.Conn gets one Slot tracking its current phase
// (reading the next request, processing it on the worker pool, or
// writing the reply) plus the timer-wheel record backing its idle
// reaper. Grounded on the teacher's HandleConn (internal/server/server.go),
// generalized from a single request-response call into an explicit
// state machine because the reactor now needs to adjust and cancel a
// per-connection timer around each phase.
package connslot

import (
	"bufio"
	"net"
	"sync"

	"kvwebserver/internal/timerwheel"

	"github.com/google/uuid"
)

// Phase is where a Slot currently is in its request lifecycle.
type Phase int

const (
	// Reading means the slot is blocked on ParseRequest.
	Reading Phase = iota
	// Processing means a request was parsed and its task is queued or
	// running on the worker pool.
	Processing
	// Writing means the dispatch result is being written back to Conn.
	Writing
	// Closed means the slot's connection has been torn down; no further
	// phase transitions are valid.
	Closed
)

func (p Phase) String() string {
	switch p {
	case Reading:
		return "READING"
	case Processing:
		return "PROCESSING"
	case Writing:
		return "WRITING"
	default:
		return "CLOSED"
	}
}

// Slot is one live connection's bookkeeping. A Slot is driven by a
// single goroutine (the reactor's per-connection loop); the mutex
// guards phase and timer because the idle timer's callback calls Close
// from the reactor's ticker goroutine.
type Slot struct {
	ID     uuid.UUID
	Conn   net.Conn
	Reader *bufio.Reader

	mu    sync.Mutex
	phase Phase
	timer *timerwheel.Record
}

// New wraps conn in a Slot with a fresh id and starts it in Reading.
func New(conn net.Conn) *Slot {
	return &Slot{
		ID:     uuid.New(),
		Conn:   conn,
		Reader: bufio.NewReader(conn),
		phase:  Reading,
	}
}

// SetPhase records the slot's current lifecycle phase. Exactly one
// task is ever in flight per slot: the reactor's connection loop is
// sequential, so this is bookkeeping for metrics/admin rather than a
// lock that arbitrates concurrent callers.
func (s *Slot) SetPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

// Phase returns the slot's current phase.
func (s *Slot) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// AttachTimer records the timer-wheel entry backing this slot's idle
// reaper, so it can be adjusted on every successful read.
func (s *Slot) AttachTimer(r *timerwheel.Record) {
	s.mu.Lock()
	s.timer = r
	s.mu.Unlock()
}

// Timer returns the slot's timer-wheel record, or nil if none attached.
func (s *Slot) Timer() *timerwheel.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer
}

// Close marks the slot Closed and closes the underlying connection.
// Safe to call more than once.
func (s *Slot) Close() error {
	s.mu.Lock()
	already := s.phase == Closed
	s.phase = Closed
	s.mu.Unlock()
	if already {
		return nil
	}
	return s.Conn.Close()
}
