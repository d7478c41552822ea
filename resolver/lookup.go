package resolver

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	"github.com/DCSO/hostnamer/util"
)

// LookupFunc returns the name for an address, or false if none could be
// found. It may block.
type LookupFunc func(address string) (string, bool)

// DispatchFunc runs the given closure in the notification context chosen by
// the owner of the Resolver. It must not be assumed to run synchronously.
type DispatchFunc func(func())

// DirectDispatch runs closures right away on the calling goroutine.
func DirectDispatch(f func()) {
	f()
}

// LookupFromHostNamer uses the first name returned by the given HostNamer.
func LookupFromHostNamer(hn util.HostNamer) LookupFunc {
	return func(address string) (string, bool) {
		names, err := hn.GetHostname(address)
		if err != nil || len(names) == 0 || names[0] == "" {
			return "", false
		}
		return names[0], true
	}
}
