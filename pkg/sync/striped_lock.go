package sync

import (
	base "sync"
)

// StripedLock maps a key space onto a fixed set of locks. Access across
// different keys stays mostly parallel while the memory footprint stays
// bounded by the stripe count.
type StripedLock struct {
	locks []base.RWMutex
	ring  *ring
}

// NewStripedLock returns a new StripedLock with a static number of stripes.
func NewStripedLock(stripes uint) *StripedLock {
	return &StripedLock{
		locks: make([]base.RWMutex, stripes),
		ring:  newRing(stripes),
	}
}

// Get gets the lock for a key.
func (l *StripedLock) Get(key []byte) *base.RWMutex {
	return &l.locks[l.ring.stripe(key)]
}
