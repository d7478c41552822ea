package input

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

import (
	"fmt"
	"net"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeEveLine(number int) string {
	return fmt.Sprintf(`{"timestamp":"2021-03-04T05:06:07.000000+0000","event_type":"flow","src_ip":"10.0.%d.%d","src_port":%d,"dest_ip":"10.1.%d.%d","dest_port":53,"proto":"UDP"}`,
		number/256, number%256, 1024+number, number/256, number%256)
}

func collect(t *testing.T, ch chan string, n int) []string {
	out := make([]string, 0, n)
	for len(out) < n {
		select {
		case a := <-ch:
			out = append(out, a)
		case <-time.After(10 * time.Second):
			t.Fatalf("timeout after %d of %d addresses", len(out), n)
		}
	}
	return out
}

func TestSocketInput(t *testing.T) {
	tmpfn := filepath.Join(t.TempDir(), "in.sock")
	addrChan := make(chan string)

	is, err := MakeSocketInput(tmpfn, addrChan, false)
	require.NoError(t, err)
	is.Run()

	go func() {
		c, err := net.Dial("unix", tmpfn)
		if err != nil {
			t.Log(err)
			return
		}
		defer c.Close()
		for i := 0; i < 500; i++ {
			c.Write([]byte(makeEveLine(i) + "\n"))
		}
		c.Write([]byte("192.168.1.1\n"))
		c.Write([]byte("not an address\n"))
		c.Write([]byte("fe80::1\n"))
	}()

	coll := collect(t, addrChan, 1002)
	ch := make(chan bool)
	is.Stop(ch)
	<-ch

	assert.Equal(t, "10.0.0.0", coll[0])
	assert.Equal(t, "10.1.0.0", coll[1])
	assert.Equal(t, "10.0.1.243", coll[998])
	assert.Equal(t, "192.168.1.1", coll[1000])
	assert.Equal(t, "fe80::1", coll[1001])

	is.Lock()
	assert.Equal(t, uint64(1), is.PerfStats.InvalidLines)
	is.Unlock()
}

func TestSocketInputDropIfFull(t *testing.T) {
	tmpfn := filepath.Join(t.TempDir(), "drop.sock")
	addrChan := make(chan string, 1)

	is, err := MakeSocketInput(tmpfn, addrChan, true)
	require.NoError(t, err)
	is.Run()

	c, err := net.Dial("unix", tmpfn)
	require.NoError(t, err)
	c.Write([]byte("10.0.0.1\n10.0.0.2\n10.0.0.3\n"))
	c.Close()

	require.Eventually(t, func() bool {
		is.Lock()
		defer is.Unlock()
		return is.PerfStats.SocketQueueDropped == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "10.0.0.1", <-addrChan)

	ch := make(chan bool)
	is.Stop(ch)
	<-ch
}

func TestStdinInput(t *testing.T) {
	addrChan := make(chan string, 10)
	lines := []string{
		"10.0.0.1",
		`{"src_ip":"10.0.0.2","dest_ip":"10.0.0.1"}`,
		"",
		"garbage",
		"::1",
	}
	si := MakeReaderInput(strings.NewReader(strings.Join(lines, "\n")), addrChan)
	var _ Input = si
	si.Run()

	select {
	case <-si.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for end of input")
	}
	ch := make(chan bool)
	si.Stop(ch)
	<-ch
	close(addrChan)

	got := make([]string, 0)
	for a := range addrChan {
		got = append(got, a)
	}
	sort.Strings(got)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.1", "10.0.0.2", "::1"}, got)
}
