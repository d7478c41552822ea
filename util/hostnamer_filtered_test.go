package util

// DCSO HOSTNAMER
// Copyright (c) 2020, 2021, DCSO GmbH

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DCSO/bloom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticHostNamer struct {
	calls   int
	flushed bool
}

func (s *staticHostNamer) GetHostname(ipAddr string) ([]string, error) {
	s.calls++
	return []string{"foo.bar", "foo.baz"}, nil
}

func (s *staticHostNamer) Flush() {
	s.flushed = true
}

func TestHostNamerFilteredPassThrough(t *testing.T) {
	next := &staticHostNamer{}
	hn := MakeHostNamerFiltered(next)

	names, err := hn.GetHostname("8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, []string{"foo.bar", "foo.baz"}, names)

	_, err = hn.GetHostname("not-an-ip")
	assert.Error(t, err)
	assert.Equal(t, 1, next.calls)

	hn.Flush()
	assert.True(t, next.flushed)
}

func TestHostNamerFilteredPrivateOnly(t *testing.T) {
	next := &staticHostNamer{}
	hn := MakeHostNamerFiltered(next)
	require.NoError(t, hn.AllowRanges(PrivateRanges))

	for _, ip := range []string{"10.1.2.3", "172.16.0.1", "192.168.178.1", "fd00::1"} {
		_, err := hn.GetHostname(ip)
		assert.NoError(t, err, ip)
	}
	for _, ip := range []string{"8.8.8.8", "172.32.0.1", "2001:4860:4860::8888"} {
		_, err := hn.GetHostname(ip)
		assert.True(t, errors.Is(err, ErrFiltered), ip)
		assert.True(t, errors.Is(err, ErrNoName), ip)
	}
	assert.Equal(t, 4, next.calls)

	assert.Error(t, hn.AllowRanges([]string{"10.0.0.0/33"}))
}

func TestHostNamerFilteredBloom(t *testing.T) {
	bf := bloom.Initialize(1000, 0.0000001)
	bf.Add([]byte("10.0.0.1"))

	dir := t.TempDir()
	fn := filepath.Join(dir, "exclude.bloom")
	require.NoError(t, bloom.WriteFilter(&bf, fn, false))

	next := &staticHostNamer{}
	hn := MakeHostNamerFiltered(next)
	require.NoError(t, hn.ExcludeFromBloomFile(fn, false))

	_, err := hn.GetHostname("10.0.0.1")
	assert.True(t, errors.Is(err, ErrFiltered))
	_, err = hn.GetHostname("10.0.0.2")
	assert.NoError(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestHostNamerFilteredEmptyBloomFile(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "empty.bloom")
	require.NoError(t, os.WriteFile(fn, []byte{}, 0644))

	hn := MakeHostNamerFiltered(&staticHostNamer{})
	require.NoError(t, hn.ExcludeFromBloomFile(fn, false))
	ok, err := hn.Allowed("10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Error(t, hn.ExcludeFromBloomFile(filepath.Join(dir, "missing.bloom"), false))
}
