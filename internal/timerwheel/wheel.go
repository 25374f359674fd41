// Package timerwheel implements the idle-connection timer wheel (C7):
// a sorted doubly linked list of expiry records, ticked periodically to
// reap connections that have gone quiet. Grounded on the original's
// lst_timer (a SortTimerLst of util_timer nodes, see src/main.cpp's
// `timer->expire = cur + 3 * TIMESLOT` re-arm pattern) and implemented
// with container/list, the idiomatic Go sorted-list building block.
package timerwheel

import (
	"container/list"
	"sync"
)

// Callback runs when a record's expiry has passed. In this system it
// is always "close this connection", but the type stays generic to
// match a generic "callback kind" field.
type Callback func()

// Record is one timer entry: an expiry (whole seconds on the caller's
// clock) and the callback to run when it elapses. The wheel only
// compares expiries with the value passed to Tick; the reactor uses
// time.Now().Unix(), a wall-clock reading rather than a monotonic one.
// The zero value is not usable; obtain one from Wheel.Add.
type Record struct {
	expiry int64
	cb     Callback
	elem   *list.Element
}

// Expiry returns the record's current expiry, in the caller's seconds.
func (r *Record) Expiry() int64 { return r.expiry }

// Wheel is a sorted-by-expiry-ascending list of live timer records.
// At most one live record per connection is expected of callers;
// the wheel itself does not enforce uniqueness.
type Wheel struct {
	mu  sync.Mutex
	lst *list.List
}

// New creates an empty timer wheel.
func New() *Wheel {
	return &Wheel{lst: list.New()}
}

// Add inserts a new record in expiry order and returns it so the
// caller can Adjust or Del it later.
func (w *Wheel) Add(expiry int64, cb Callback) *Record {
	w.mu.Lock()
	defer w.mu.Unlock()

	r := &Record{expiry: expiry, cb: cb}
	r.elem = w.insertLocked(r)
	return r
}

func (w *Wheel) insertLocked(r *Record) *list.Element {
	for e := w.lst.Front(); e != nil; e = e.Next() {
		if e.Value.(*Record).expiry > r.expiry {
			return w.lst.InsertBefore(r, e)
		}
	}
	return w.lst.PushBack(r)
}

// Adjust moves r to a new expiry, re-inserting it at the correct
// position. Typically called with a monotonically increasing expiry
// (re-arming on every successful read), but any value is accepted.
func (w *Wheel) Adjust(r *Record, newExpiry int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if r.elem != nil {
		w.lst.Remove(r.elem)
	}
	r.expiry = newExpiry
	r.elem = w.insertLocked(r)
}

// Del removes r from the wheel. Safe to call more than once.
func (w *Wheel) Del(r *Record) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if r.elem == nil {
		return
	}
	w.lst.Remove(r.elem)
	r.elem = nil
}

// Tick fires every record whose expiry is <= now, in ascending expiry
// order, unlinking each before invoking its callback, and stops at the
// first record that has not yet expired.
func (w *Wheel) Tick(now int64) {
	for {
		w.mu.Lock()
		front := w.lst.Front()
		if front == nil {
			w.mu.Unlock()
			return
		}
		r := front.Value.(*Record)
		if r.expiry > now {
			w.mu.Unlock()
			return
		}
		w.lst.Remove(front)
		r.elem = nil
		w.mu.Unlock()

		r.cb()
	}
}

// Len reports the number of live records. Intended for metrics.
func (w *Wheel) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lst.Len()
}
