package rill

import (
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
)

// IDGenerator returns a new consumer ID on each call.
// It may be called concurrently.
type IDGenerator func() ConsumerID

// SequentialIDs returns an IDGenerator that yields start, start+1, start+2, and so on.
// This is the default strategy for a [Stream] with a nil
// [StreamConfig.GenerateConsumerID], using a start of 1.
func SequentialIDs(start ConsumerID) IDGenerator {
	var n atomic.Uint64
	n.Store(uint64(start))
	return func() ConsumerID {
		return ConsumerID(n.Add(1) - 1)
	}
}

// IDPool hands out the lowest unused consumer ID, starting at 1.
// IDs are returned to the pool with [*IDPool.Release].
//
// This keeps IDs dense for a long-lived stream with many short-lived consumers,
// which suits callers that index per-consumer state by ID.
// Wire it into a stream with:
//
//	rill.StreamConfig{
//		GenerateConsumerID: pool.Acquire,
//		OnConsumerRemoved:  pool.Release,
//	}
//
// A released ID may be handed to a new consumer immediately,
// so consumers must not be iterated again after termination
// when their stream uses an IDPool.
type IDPool struct {
	mu   sync.Mutex
	used *bitset.BitSet
}

// NewIDPool returns an empty IDPool.
func NewIDPool() *IDPool {
	return &IDPool{
		used: bitset.New(64),
	}
}

// Acquire returns the lowest ID not currently in use, and marks it used.
func (p *IDPool) Acquire() ConsumerID {
	p.mu.Lock()
	defer p.mu.Unlock()

	i, ok := p.used.NextClear(1)
	if !ok {
		// Every bit within the current length is set.
		// Setting the next index grows the set.
		i = max(p.used.Len(), 1)
	}
	p.used.Set(i)
	return ConsumerID(i)
}

// Release returns id to the pool.
// Releasing an ID that is not in use is a no-op.
func (p *IDPool) Release(id ConsumerID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.used.Clear(uint(id))
}

// InUse reports the number of acquired IDs that have not been released.
func (p *IDPool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return int(p.used.Count())
}
