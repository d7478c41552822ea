package input

// DCSO HOSTNAMER
// Copyright (c) 2017, 2019, 2021, DCSO GmbH

import (
	"fmt"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stvp/tempredis"
)

const nofRedisTests = 2000

func pushAddresses(t *testing.T, client redis.Conn, n int) []string {
	want := make([]string, 0, n)
	for i := 0; i < n; i++ {
		a := fmt.Sprintf("10.%d.%d.%d", i/65536, (i/256)%256, i%256)
		var err error
		if i%2 == 0 {
			_, err = client.Do("LPUSH", DefaultRedisKey, a)
		} else {
			_, err = client.Do("LPUSH", DefaultRedisKey, fmt.Sprintf(`{"src_ip":"%s"}`, a))
		}
		require.NoError(t, err)
		want = append(want, a)
	}
	sort.Strings(want)
	return want
}

func _TestRedisInput(t *testing.T, usePipelining bool, sock string) {
	s, err := tempredis.Start(tempredis.Config{
		"unixsocket": sock,
	})
	if err != nil {
		t.Skipf("cannot start redis: %s", err)
	}
	defer s.Term()

	client, err := redis.Dial("unix", s.Socket())
	require.NoError(t, err)
	defer client.Close()

	// popped from the tail, so this is the first line read
	_, err = client.Do("LPUSH", DefaultRedisKey, "invalid")
	require.NoError(t, err)
	want := pushAddresses(t, client, nofRedisTests)

	addrChan := make(chan string)
	ri, err := MakeRedisInputSocket(s.Socket(), addrChan, 500)
	require.NoError(t, err)
	ri.UsePipelining = usePipelining
	ri.Run()

	coll := collect(t, addrChan, nofRedisTests)

	stopChan := make(chan bool)
	ri.Stop(stopChan)
	select {
	case <-stopChan:
	case <-time.After(10 * time.Second):
		t.Fatal("timeout stopping Redis input")
	}

	sort.Strings(coll)
	assert.Equal(t, want, coll)
	ri.Lock()
	assert.Equal(t, uint64(1), ri.PerfStats.InvalidLines)
	ri.Unlock()
}

func TestRedisInputWithPipelining(t *testing.T) {
	_TestRedisInput(t, true, filepath.Join(t.TempDir(), "withPipe.sock"))
}

func TestRedisInputNoPipelining(t *testing.T) {
	_TestRedisInput(t, false, filepath.Join(t.TempDir(), "noPipe.sock"))
}

func _TestRedisGone(t *testing.T, usePipelining bool, sock string) {
	s, err := tempredis.Start(tempredis.Config{
		"unixsocket": sock,
	})
	if err != nil {
		t.Skipf("cannot start redis: %s", err)
	}

	addrChan := make(chan string)
	ri, err := MakeRedisInputSocket(s.Socket(), addrChan, 100)
	require.NoError(t, err)
	ri.UsePipelining = usePipelining
	ri.Run()

	time.Sleep(1 * time.Second)
	s.Term()

	s, err = tempredis.Start(tempredis.Config{
		"unixsocket": sock,
	})
	require.NoError(t, err)
	defer s.Term()

	client, err := redis.Dial("unix", s.Socket())
	require.NoError(t, err)
	defer client.Close()

	want := pushAddresses(t, client, 200)
	coll := collect(t, addrChan, 200)

	stopChan := make(chan bool)
	ri.Stop(stopChan)
	<-stopChan

	sort.Strings(coll)
	assert.Equal(t, want, coll)
}

func TestRedisGoneWithPipelining(t *testing.T) {
	_TestRedisGone(t, true, filepath.Join(t.TempDir(), "gonePipe.sock"))
}

func TestRedisGoneNoPipelining(t *testing.T) {
	_TestRedisGone(t, false, filepath.Join(t.TempDir(), "goneNoPipe.sock"))
}
