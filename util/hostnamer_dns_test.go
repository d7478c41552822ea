package util

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestDNSServer(t *testing.T, records map[string]string) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]
		if name, ok := records[q.Name]; ok && q.Qtype == dns.TypePTR {
			m.Answer = append(m.Answer, &dns.PTR{
				Hdr: dns.RR_Header{
					Name:   q.Name,
					Rrtype: dns.TypePTR,
					Class:  dns.ClassINET,
					Ttl:    60,
				},
				Ptr: name,
			})
		} else {
			m.SetRcode(r, dns.RcodeNameError)
		}
		w.WriteMsg(m)
	})

	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		Handler:           mux,
		NotifyStartedFunc: func() { close(started) },
	}
	go srv.ActivateAndServe()
	<-started
	t.Cleanup(func() {
		srv.Shutdown()
	})
	return pc.LocalAddr().String()
}

func TestHostNamerDNS(t *testing.T) {
	addr := startTestDNSServer(t, map[string]string{
		"1.0.0.10.in-addr.arpa.": "db1.internal.",
	})
	hn := NewHostNamerDNS(addr, "udp", 2*time.Second)

	names, err := hn.GetHostname("10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"db1.internal"}, names)

	_, err = hn.GetHostname("10.0.0.2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoName))

	_, err = hn.GetHostname("not-an-ip")
	assert.Error(t, err)
	hn.Flush()
}
