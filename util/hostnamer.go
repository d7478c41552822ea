package util

// DCSO HOSTNAMER
// Copyright (c) 2019, 2021, DCSO GmbH

import (
	"errors"
)

// ErrNoName is returned by HostNamers if an address has no name.
var ErrNoName = errors.New("no name found")

// HostNamer is an interface specifying a component that provides
// hostnames for IP addresses passed as strings. Implementations may block.
type HostNamer interface {
	GetHostname(ipAddr string) ([]string, error)
	Flush()
}
