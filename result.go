package rill

// Result is a single entry read from a [Stream].
//
// If Done is false, Value holds a written value.
// If Done is true, the stream (or this consumer) has terminated,
// and Return holds the value passed to the close or kill call.
type Result[T, R any] struct {
	Value  T
	Return R
	Done   bool
}

// ConsumerID uniquely identifies a consumer within a [Stream].
type ConsumerID uint64
