package util

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// HostNamerDNS is a HostNamer that sends PTR queries directly to a given
// DNS server instead of going through the system resolver.
type HostNamerDNS struct {
	Server  string
	Client  *dns.Client
	Timeout time.Duration
}

// NewHostNamerDNS returns a new HostNamerDNS querying the server given as
// host:port, via the given network ("udp" or "tcp").
func NewHostNamerDNS(server string, network string, timeout time.Duration) *HostNamerDNS {
	return &HostNamerDNS{
		Server: server,
		Client: &dns.Client{
			Net:     network,
			Timeout: timeout,
		},
		Timeout: timeout,
	}
}

// GetHostname returns the PTR names for a given IP address.
func (n *HostNamerDNS) GetHostname(ipAddr string) ([]string, error) {
	question, err := dns.ReverseAddr(ipAddr)
	if err != nil {
		return nil, err
	}
	msg := new(dns.Msg)
	msg.SetQuestion(question, dns.TypePTR)
	msg.RecursionDesired = true

	ctx := context.Background()
	if n.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}
	resp, _, err := n.Client.ExchangeContext(ctx, msg, n.Server)
	if err != nil {
		return nil, err
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNoName, ipAddr, dns.RcodeToString[resp.Rcode])
	}
	names := make([]string, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			name := strings.TrimRight(ptr.Ptr, ".")
			if name != "" {
				names = append(names, name)
			}
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoName, ipAddr)
	}
	return names, nil
}

// Flush is a no-op, HostNamerDNS does not cache.
func (n *HostNamerDNS) Flush() {}
