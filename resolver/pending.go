package resolver

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	"sync"
)

// PendingSet is a FIFO of addresses waiting for resolution, with set
// semantics. Addresses handed out by Take stay known to the set as in-flight
// until Done is called for them, so they are not queued twice.
type PendingSet struct {
	sync.Mutex
	queue    []string
	queued   map[string]struct{}
	inFlight map[string]struct{}
}

// MakePendingSet returns a new, empty PendingSet.
func MakePendingSet() *PendingSet {
	return &PendingSet{
		queue:    make([]string, 0),
		queued:   make(map[string]struct{}),
		inFlight: make(map[string]struct{}),
	}
}

// Add appends the address unless it is already queued or in flight. It
// returns true if the address was added.
func (p *PendingSet) Add(address string) bool {
	p.Lock()
	defer p.Unlock()
	if _, ok := p.queued[address]; ok {
		return false
	}
	if _, ok := p.inFlight[address]; ok {
		return false
	}
	p.queued[address] = struct{}{}
	p.queue = append(p.queue, address)
	return true
}

// Take removes the oldest queued address and marks it as in flight.
func (p *PendingSet) Take() (string, bool) {
	p.Lock()
	defer p.Unlock()
	if len(p.queue) == 0 {
		return "", false
	}
	address := p.queue[0]
	p.queue[0] = ""
	p.queue = p.queue[1:]
	delete(p.queued, address)
	p.inFlight[address] = struct{}{}
	return address, true
}

// Done releases an in-flight address.
func (p *PendingSet) Done(address string) {
	p.Lock()
	delete(p.inFlight, address)
	p.Unlock()
}

// Clear drops all queued addresses. In-flight addresses are not affected.
// It returns the number of dropped addresses.
func (p *PendingSet) Clear() int {
	p.Lock()
	defer p.Unlock()
	n := len(p.queue)
	p.queue = make([]string, 0)
	p.queued = make(map[string]struct{})
	return n
}

// Contains returns true if the address is queued or in flight.
func (p *PendingSet) Contains(address string) bool {
	p.Lock()
	defer p.Unlock()
	if _, ok := p.queued[address]; ok {
		return true
	}
	_, ok := p.inFlight[address]
	return ok
}

// Len returns the number of queued addresses.
func (p *PendingSet) Len() int {
	p.Lock()
	defer p.Unlock()
	return len(p.queue)
}
