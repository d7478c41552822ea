package util

// DCSO HOSTNAMER
// Copyright (c) 2019, 2021, DCSO GmbH

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// HostNamerRDNS is a component that provides hostnames for IP addresses
// passed as strings, determined via reverse DNS lookups using the system
// resolver. Failed lookups are remembered for a short time so that bursts
// of requests for unresolvable addresses do not all reach the resolver.
type HostNamerRDNS struct {
	Resolver *net.Resolver
	Timeout  time.Duration
	failed   *cache.Cache
}

// NewHostNamerRDNS returns a new HostNamerRDNS. Each lookup is bounded by
// timeout; failures are cached for negativeTTL (zero disables this).
func NewHostNamerRDNS(timeout, negativeTTL time.Duration) *HostNamerRDNS {
	n := &HostNamerRDNS{
		Resolver: net.DefaultResolver,
		Timeout:  timeout,
	}
	if negativeTTL > 0 {
		n.failed = cache.New(negativeTTL, 2*negativeTTL)
	}
	return n
}

// GetHostname returns a list of host names for a given IP address.
func (n *HostNamerRDNS) GetHostname(ipAddr string) ([]string, error) {
	if n.failed != nil {
		if val, found := n.failed.Get(ipAddr); found {
			return nil, val.(error)
		}
	}
	ctx := context.Background()
	if n.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}
	hns, err := n.Resolver.LookupAddr(ctx, ipAddr)
	if err == nil && len(hns) == 0 {
		err = fmt.Errorf("%w: %s", ErrNoName, ipAddr)
	}
	if err != nil {
		if n.failed != nil {
			n.failed.Set(ipAddr, err, cache.DefaultExpiration)
		}
		return nil, err
	}
	for i, hn := range hns {
		hns[i] = strings.TrimRight(hn, ".")
	}
	return hns, nil
}

// Flush clears the negative cache of a HostNamerRDNS.
func (n *HostNamerRDNS) Flush() {
	if n.failed != nil {
		n.failed.Flush()
	}
}
