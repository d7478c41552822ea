package cmd

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DCSO/hostnamer/db"
	"github.com/DCSO/hostnamer/input"
	"github.com/DCSO/hostnamer/util"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestMakeHostNamerSystem(t *testing.T) {
	resetViper(t)
	viper.Set("lookup.timeout", time.Second)

	hn, err := makeHostNamer()
	require.NoError(t, err)
	_, ok := hn.(*util.HostNamerRDNS)
	assert.True(t, ok)
}

func TestMakeHostNamerDirect(t *testing.T) {
	resetViper(t)
	viper.Set("lookup.server", "127.0.0.1:53")
	viper.Set("lookup.network", "udp")

	hn, err := makeHostNamer()
	require.NoError(t, err)
	_, ok := hn.(*util.HostNamerDNS)
	assert.True(t, ok)
}

func TestMakeHostNamerFiltered(t *testing.T) {
	resetViper(t)
	viper.Set("lookup.private-only", true)

	hn, err := makeHostNamer()
	require.NoError(t, err)
	fhn, ok := hn.(*util.HostNamerFiltered)
	require.True(t, ok)

	allowed, err := fhn.Allowed("10.1.2.3")
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, err = fhn.Allowed("8.8.8.8")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestMakeHostNamerBadRange(t *testing.T) {
	resetViper(t)
	viper.Set("lookup.allow-ranges", []string{"not-a-range"})

	_, err := makeHostNamer()
	assert.Error(t, err)
}

func TestMakeSlurperDisabled(t *testing.T) {
	resetViper(t)

	s, err := makeSlurper(context.Background())
	require.NoError(t, err)
	_, ok := s.(*db.DummySlurper)
	assert.True(t, ok)
}

func TestMakeInputs(t *testing.T) {
	resetViper(t)
	addrChan := make(chan string, 10)

	_, _, err := makeInputs(addrChan, nil)
	assert.Error(t, err)

	viper.Set("input.socket", filepath.Join(t.TempDir(), "in.sock"))
	viper.Set("input.stdin", true)
	inputs, stdin, err := makeInputs(addrChan, nil)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.NotNil(t, stdin)
	si, ok := inputs[0].(*input.SocketInput)
	require.True(t, ok)
	si.InputListener.Close()
}

func TestMakeSubmitterDummy(t *testing.T) {
	s, err := makeSubmitter("", "", true, false)
	require.NoError(t, err)
	_, ok := s.(*util.DummySubmitter)
	assert.True(t, ok)
	s.Finish()
}

func TestVersionLookupBackend(t *testing.T) {
	resetViper(t)
	assert.Equal(t, "system resolver", lookupBackend())

	viper.Set("lookup.negative-ttl", time.Minute)
	assert.Equal(t, "system resolver (negative TTL 1m0s)", lookupBackend())

	viper.Set("lookup.server", "192.0.2.53:53")
	viper.Set("lookup.private-only", true)
	viper.Set("lookup.exclude-bloom", "/etc/hostnamer/skip.bloom")
	assert.Equal(t, "PTR queries to 192.0.2.53:53/udp, private ranges only, excluding /etc/hostnamer/skip.bloom",
		lookupBackend())

	var buf bytes.Buffer
	printVersion(&buf)
	assert.True(t, strings.HasPrefix(buf.String(), "hostnamer "+version+", asynchronous reverse name resolver\n"))
	assert.Contains(t, buf.String(), "lookup: PTR queries to 192.0.2.53:53/udp")
}

func TestWriteDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeDocs(dir, "markdown"))
	_, err := os.Stat(filepath.Join(dir, "hostnamer_resolve.md"))
	assert.NoError(t, err)
	assert.Error(t, writeDocs(dir, "pdf"))
}
