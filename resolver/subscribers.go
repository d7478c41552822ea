package resolver

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/DCSO/hostnamer/types"
)

// Subscriber is notified about completed resolutions.
type Subscriber interface {
	Resolved(types.Host)
}

// ErrNotComparable is returned when registering a Subscriber that cannot be
// told apart from others by identity, e.g. a struct value holding a slice.
var ErrNotComparable = errors.New("subscriber is not comparable")

// SubscriberRegistry holds the Subscribers to notify. Subscribers are kept
// by identity, so they should be pointers or other comparable values.
type SubscriberRegistry struct {
	sync.RWMutex
	subscribers []Subscriber
}

// MakeSubscriberRegistry returns a new, empty SubscriberRegistry.
func MakeSubscriberRegistry() *SubscriberRegistry {
	return &SubscriberRegistry{
		subscribers: make([]Subscriber, 0),
	}
}

func isComparable(s Subscriber) bool {
	return s != nil && reflect.ValueOf(s).Comparable()
}

// Add registers s. Returns false if it was already registered. Subscribers
// which cannot be compared with == are rejected with ErrNotComparable.
func (r *SubscriberRegistry) Add(s Subscriber) (bool, error) {
	if !isComparable(s) {
		return false, fmt.Errorf("%w: %T", ErrNotComparable, s)
	}
	r.Lock()
	defer r.Unlock()
	for _, v := range r.subscribers {
		if v == s {
			return false, nil
		}
	}
	r.subscribers = append(r.subscribers, s)
	return true, nil
}

// Remove unregisters s. Returns false if it was not registered.
func (r *SubscriberRegistry) Remove(s Subscriber) bool {
	if !isComparable(s) {
		return false
	}
	r.Lock()
	defer r.Unlock()
	for i, v := range r.subscribers {
		if v == s {
			r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
			return true
		}
	}
	return false
}

// Clear unregisters all subscribers.
func (r *SubscriberRegistry) Clear() {
	r.Lock()
	r.subscribers = make([]Subscriber, 0)
	r.Unlock()
}

// Snapshot returns the currently registered subscribers. The returned slice
// is not affected by later registry changes.
func (r *SubscriberRegistry) Snapshot() []Subscriber {
	r.RLock()
	defer r.RUnlock()
	out := make([]Subscriber, len(r.subscribers))
	copy(out, r.subscribers)
	return out
}

// Contains returns true if s is registered.
func (r *SubscriberRegistry) Contains(s Subscriber) bool {
	if !isComparable(s) {
		return false
	}
	r.RLock()
	defer r.RUnlock()
	for _, v := range r.subscribers {
		if v == s {
			return true
		}
	}
	return false
}

// Len returns the number of registered subscribers.
func (r *SubscriberRegistry) Len() int {
	r.RLock()
	defer r.RUnlock()
	return len(r.subscribers)
}
