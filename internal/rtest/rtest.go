// Package rtest contains helpers for tests across the module.
package rtest

import (
	"log/slog"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
)

// ScheduleTimeout is the default duration for the *Soon helpers.
// It is short enough to keep failing tests fast,
// and long enough that a loaded machine still schedules the other goroutine.
const ScheduleTimeout = 200 * time.Millisecond

// NewLogger returns a logger that writes through t.Log,
// so output is associated with the test that produced it.
func NewLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slogt.New(t)
}

// ReceiveSoon returns the value received from ch,
// failing the test if no value arrives within [ScheduleTimeout].
func ReceiveSoon[T any](t testing.TB, ch <-chan T) T {
	t.Helper()

	timer := time.NewTimer(ScheduleTimeout)
	defer timer.Stop()

	select {
	case v := <-ch:
		return v
	case <-timer.C:
		t.Fatalf("did not receive value within %s", ScheduleTimeout)
	}

	panic("unreachable")
}

// SendSoon sends v on ch,
// failing the test if the send does not complete within [ScheduleTimeout].
func SendSoon[T any](t testing.TB, ch chan<- T, v T) {
	t.Helper()

	timer := time.NewTimer(ScheduleTimeout)
	defer timer.Stop()

	select {
	case ch <- v:
		// Okay.
	case <-timer.C:
		t.Fatalf("could not send value within %s", ScheduleTimeout)
	}
}

// IsSending asserts that ch is immediately ready to be received from
// (which includes ch being closed).
func IsSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	select {
	case <-ch:
		// Okay.
	default:
		t.Fatal("channel was not ready to receive")
	}
}

// NotSending asserts that ch is not ready to be received from
// after a short pause to let other goroutines run.
func NotSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	select {
	case <-ch:
		t.Fatal("channel unexpectedly ready to receive")
	case <-time.After(10 * time.Millisecond):
		// Okay.
	}
}
