package util

// DCSO HOSTNAMER
// Copyright (c) 2020, 2021, DCSO GmbH

import (
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/DCSO/bloom"
	log "github.com/sirupsen/logrus"
	"github.com/yl2chen/cidranger"
)

// PrivateRanges are the RFC1918 and ULA ranges used in private-only mode.
var PrivateRanges = []string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"fc00::/7",
}

// HostNamerFiltered is a HostNamer that only passes lookups for addresses
// it is allowed to look up on to another HostNamer. Addresses can be
// restricted to a set of ranges and excluded via a Bloom filter.
type HostNamerFiltered struct {
	Next          HostNamer
	AllowedRanges cidranger.Ranger
	RangesOnly    bool
	Excluded      *bloom.BloomFilter
	Logger        *log.Entry
}

// ErrFiltered is returned for addresses that are not to be looked up.
var ErrFiltered = fmt.Errorf("%w: address filtered", ErrNoName)

// MakeHostNamerFiltered returns a new HostNamerFiltered wrapping next. It
// does not filter anything until ranges or exclusions are configured.
func MakeHostNamerFiltered(next HostNamer) *HostNamerFiltered {
	return &HostNamerFiltered{
		Next:          next,
		AllowedRanges: cidranger.NewPCTrieRanger(),
		Logger: log.WithFields(log.Fields{
			"domain": "rdns-filter",
		}),
	}
}

// AllowRanges restricts lookups to the given CIDR ranges.
func (n *HostNamerFiltered) AllowRanges(cidrs []string) error {
	for _, cidr := range cidrs {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			return fmt.Errorf("cannot parse IP range %v: %w", cidr, err)
		}
		if err = n.AllowedRanges.Insert(cidranger.NewBasicRangerEntry(*block)); err != nil {
			return err
		}
	}
	n.RangesOnly = true
	return nil
}

// ExcludeFromBloom prevents lookups for all addresses contained in the given
// Bloom filter.
func (n *HostNamerFiltered) ExcludeFromBloom(bf *bloom.BloomFilter) {
	n.Excluded = bf
}

// ExcludeFromBloomFile loads a Bloom filter from disk and uses it for
// exclusion. An empty file results in an empty filter.
func (n *HostNamerFiltered) ExcludeFromBloomFile(filename string, compressed bool) error {
	bf, err := bloom.LoadFilter(filename, compressed)
	if err != nil {
		if err == io.EOF {
			n.Logger.Warnf("file is empty, using empty default one")
			myBloom := bloom.Initialize(100, 0.00000001)
			bf = &myBloom
		} else if strings.Contains(err.Error(), "value of k (number of hash functions) is too high") {
			n.Logger.Warnf("malformed Bloom filter file, using empty default one")
			myBloom := bloom.Initialize(100, 0.00000001)
			bf = &myBloom
		} else {
			return err
		}
	}
	n.Logger.WithFields(log.Fields{
		"N": bf.N,
	}).Info("exclusion Bloom filter loaded")
	n.Excluded = bf
	return nil
}

// Allowed returns true if the address may be looked up.
func (n *HostNamerFiltered) Allowed(ipAddr string) (bool, error) {
	ip := net.ParseIP(ipAddr)
	if ip == nil {
		return false, fmt.Errorf("invalid IP address: %s", ipAddr)
	}
	if n.RangesOnly {
		inRange, err := n.AllowedRanges.Contains(ip)
		if err != nil {
			return false, err
		}
		if !inRange {
			return false, nil
		}
	}
	if n.Excluded != nil && n.Excluded.Check([]byte(ipAddr)) {
		return false, nil
	}
	return true, nil
}

// GetHostname returns the names found by the wrapped HostNamer, or
// ErrFiltered if the address is not to be looked up.
func (n *HostNamerFiltered) GetHostname(ipAddr string) ([]string, error) {
	ok, err := n.Allowed(ipAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrFiltered
	}
	return n.Next.GetHostname(ipAddr)
}

// Flush flushes the wrapped HostNamer.
func (n *HostNamerFiltered) Flush() {
	n.Next.Flush()
}
