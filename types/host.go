package types

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	"encoding/json"
	"net"
	"time"
)

const (
	// LoopbackName is the name displayed for loopback addresses.
	LoopbackName = "localhost"
	// PlaceholderName is the name displayed for addresses whose name is
	// not known yet.
	PlaceholderName = "resolving …"
)

// Host is a presentation value combining an address with the best known
// name for it.
type Host struct {
	Address  string
	Name     string
	Resolved bool
}

// MakeHost builds a Host for the given address. name is only considered if
// known is set.
func MakeHost(address string, name string, known bool) Host {
	h := Host{
		Address:  address,
		Resolved: known,
	}
	switch {
	case IsLoopback(address):
		h.Name = LoopbackName
	case !known:
		h.Name = PlaceholderName
	case name == address:
		h.Name = ""
	default:
		h.Name = name
	}
	return h
}

// IsLoopback returns true if the address string denotes a loopback IP.
func IsLoopback(address string) bool {
	ip := net.ParseIP(address)
	return ip != nil && ip.IsLoopback()
}

// String renders the Host as "name (address)", or just the address if
// there is no name to show.
func (h Host) String() string {
	if h.Name == "" {
		return h.Address
	}
	return h.Name + " (" + h.Address + ")"
}

// HostEvent is the serialized form of a completed resolution as shipped to
// forwarding and submission targets.
type HostEvent struct {
	Timestamp string `json:"timestamp"`
	Address   string `json:"address"`
	Name      string `json:"name"`
	Display   string `json:"display"`
	SensorID  string `json:"sensor_id,omitempty"`
}

const (
	// HostEventTimestampFormat is the timestamp layout used in HostEvents.
	HostEventTimestampFormat = "2006-01-02T15:04:05.999999-0700"
	// HostEventContentType is the content type of encoded HostEvents.
	HostEventContentType = "application/json"
	// HostEventType is the event type announced in message headers.
	HostEventType = "rdns"
)

// MakeHostEvent creates a HostEvent for the given Host at the given time.
func MakeHostEvent(h Host, t time.Time) HostEvent {
	return HostEvent{
		Timestamp: t.Format(HostEventTimestampFormat),
		Address:   h.Address,
		Name:      h.Name,
		Display:   h.String(),
	}
}

// Family returns "ipv4" or "ipv6" depending on the event's address.
func (e HostEvent) Family() string {
	if ip := net.ParseIP(e.Address); ip != nil && ip.To4() == nil {
		return "ipv6"
	}
	return "ipv4"
}

// RoutingKey returns the key used to route the event, e.g. "rdns.ipv4", so
// consumers can bind to a single address family.
func (e HostEvent) RoutingKey() string {
	return HostEventType + "." + e.Family()
}

// Headers returns the message headers to ship along with the encoded event.
func (e HostEvent) Headers() map[string]string {
	named := "true"
	if e.Name == "" {
		named = "false"
	}
	return map[string]string{
		"event_type": HostEventType,
		"family":     e.Family(),
		"named":      named,
	}
}

// JSON returns the JSON encoding of the HostEvent.
func (e HostEvent) JSON() ([]byte, error) {
	return json.Marshal(e)
}
