package rill

import (
	"errors"
	"fmt"
	"time"
)

// ErrConsumerClosed is returned from [*Consumer.Next]
// after [*Consumer.Close] has been called,
// including to a read that was waiting when Close was called.
var ErrConsumerClosed = errors.New("consumer closed")

// TimeoutError is returned from a read that did not observe a value in time.
//
// For [*Consumer.Next], the consumer's idle timeout elapsed
// before any new value was written,
// and the consumer has been removed from its stream.
//
// For [Consumable.Once] with a timeout,
// StreamEnded is set when the read observed a terminal result
// instead of a value. ID is not set in that case.
type TimeoutError struct {
	ID    ConsumerID
	After time.Duration

	StreamEnded bool
}

func (e TimeoutError) Error() string {
	if e.StreamEnded {
		return fmt.Sprintf("timed out early because stream ended (timeout %s)", e.After)
	}
	return fmt.Sprintf("consumer %d timed out after %s", e.ID, e.After)
}

// Timeout reports true, satisfying the informal timeout interface
// used by packages such as net.
func (e TimeoutError) Timeout() bool { return true }

// IsTimeout reports whether err is or wraps a [TimeoutError].
func IsTimeout(err error) bool {
	var te TimeoutError
	return errors.As(err, &te)
}
