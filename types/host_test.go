package types

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeHost(t *testing.T) {
	for _, tc := range []struct {
		desc    string
		address string
		name    string
		known   bool
		want    Host
	}{
		{"placeholder", "10.0.0.1", "", false,
			Host{Address: "10.0.0.1", Name: PlaceholderName}},
		{"resolved", "10.0.0.1", "db1.internal", true,
			Host{Address: "10.0.0.1", Name: "db1.internal", Resolved: true}},
		{"name equals address", "10.0.0.2", "10.0.0.2", true,
			Host{Address: "10.0.0.2", Name: "", Resolved: true}},
		{"loopback unresolved", "127.0.0.1", "", false,
			Host{Address: "127.0.0.1", Name: LoopbackName}},
		{"loopback resolved elsewhere", "127.0.0.1", "foo.example", true,
			Host{Address: "127.0.0.1", Name: LoopbackName, Resolved: true}},
		{"loopback v6", "::1", "ip6-localhost", true,
			Host{Address: "::1", Name: LoopbackName, Resolved: true}},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, MakeHost(tc.address, tc.name, tc.known))
		})
	}
}

func TestHostString(t *testing.T) {
	assert.Equal(t, "db1.internal (10.0.0.1)", MakeHost("10.0.0.1", "db1.internal", true).String())
	assert.Equal(t, "10.0.0.2", MakeHost("10.0.0.2", "10.0.0.2", true).String())
	assert.Equal(t, "localhost (127.0.0.1)", MakeHost("127.0.0.1", "", false).String())
}

func TestHostEventJSON(t *testing.T) {
	ts := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	ev := MakeHostEvent(MakeHost("10.0.0.1", "db1.internal", true), ts)
	out, err := ev.JSON()
	require.NoError(t, err)

	var back map[string]string
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, "10.0.0.1", back["address"])
	assert.Equal(t, "db1.internal", back["name"])
	assert.Equal(t, "db1.internal (10.0.0.1)", back["display"])
	assert.Equal(t, "2021-03-04T05:06:07+0000", back["timestamp"])
	_, hasSensor := back["sensor_id"]
	assert.False(t, hasSensor)
}

func TestHostEventRouting(t *testing.T) {
	ts := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)

	ev := MakeHostEvent(MakeHost("10.0.0.1", "db1.internal", true), ts)
	assert.Equal(t, "rdns.ipv4", ev.RoutingKey())
	assert.Equal(t, map[string]string{
		"event_type": "rdns",
		"family":     "ipv4",
		"named":      "true",
	}, ev.Headers())

	ev = MakeHostEvent(MakeHost("2001:db8::1", "2001:db8::1", true), ts)
	assert.Equal(t, "rdns.ipv6", ev.RoutingKey())
	assert.Equal(t, "false", ev.Headers()["named"])

	ev = MakeHostEvent(MakeHost("::ffff:10.0.0.1", "v4mapped.internal", true), ts)
	assert.Equal(t, "ipv4", ev.Family())
}
