package util

// DCSO HOSTNAMER
// Copyright (c) 2019, 2021, DCSO GmbH

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func _TestHostNamerQuad8(t *testing.T, ip string) {
	hn := NewHostNamerRDNS(5*time.Second, 5*time.Second)
	v, err := hn.GetHostname(ip)
	if err != nil {
		log.Info(err)
		t.Skip()
	}
	if len(v) == 0 {
		t.Fatal("no response")
	} else {
		log.Infof("got response %v", v)
	}
	for _, name := range v {
		if name[len(name)-1] == '.' {
			t.Fatalf("trailing dot not removed: %s", name)
		}
	}
}

func TestHostNamerQuad8v4(t *testing.T) {
	_TestHostNamerQuad8(t, "8.8.8.8")
}

func TestHostNamerQuad8v6(t *testing.T) {
	_TestHostNamerQuad8(t, "2001:4860:4860::8888")
}

func TestHostNamerInvalid(t *testing.T) {
	hn := NewHostNamerRDNS(5*time.Second, 5*time.Second)
	_, err := hn.GetHostname("8.")
	if err == nil {
		t.Fatal("missed error")
	}
	// second attempt is answered from the negative cache
	_, err2 := hn.GetHostname("8.")
	if err2 == nil || err2.Error() != err.Error() {
		t.Fatalf("unexpected error from negative cache: %v", err2)
	}
	hn.Flush()
	if hn.failed.ItemCount() != 0 {
		t.Fatal("negative cache not flushed")
	}
}

func TestHostNamerNoNegativeCache(t *testing.T) {
	hn := NewHostNamerRDNS(5*time.Second, 0)
	_, err := hn.GetHostname("8.")
	if err == nil {
		t.Fatal("missed error")
	}
	hn.Flush()
}
