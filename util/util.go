package util

// DCSO HOSTNAMER
// Copyright (c) 2017, 2018, 2020, 2021, DCSO GmbH

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"os"
	"strings"

	"github.com/buger/jsonparser"
)

// ToolName is a string containing the name of this software, lowercase.
var ToolName = "hostnamer"

// ToolNameUpper is a string containing the name of this software, uppercase.
var ToolNameUpper = "HOSTNAMER"

var evekeys = [][]string{
	[]string{"src_ip"},  // 0
	[]string{"dest_ip"}, // 1
	[]string{"address"}, // 2
}

// IsValidAddress returns true if the string is an IPv4 or IPv6 literal.
func IsValidAddress(s string) bool {
	return net.ParseIP(s) != nil
}

// ExtractAddresses returns the addresses to resolve from a single line of
// input. A line can either be a bare IP address or a JSON object, in which
// case the values of the "src_ip", "dest_ip" and "address" keys are used
// (e.g. Suricata EVE JSON). Invalid addresses are skipped.
func ExtractAddresses(line []byte) (addrs []string, parseerr error) {
	trimmed := strings.TrimSpace(string(line))
	if trimmed == "" {
		return nil, nil
	}
	if trimmed[0] != '{' {
		if IsValidAddress(trimmed) {
			return []string{trimmed}, nil
		}
		return nil, nil
	}
	addrs = make([]string, 0, 2)
	jsonparser.EachKey([]byte(trimmed), func(idx int, value []byte, vt jsonparser.ValueType,
		err error) {
		if parseerr != nil {
			return
		}
		if err != nil {
			parseerr = err
			return
		}
		if vt != jsonparser.String {
			return
		}
		addr, err := jsonparser.ParseString(value)
		if err != nil {
			parseerr = err
			return
		}
		if !IsValidAddress(addr) {
			return
		}
		for _, v := range addrs {
			if v == addr {
				return
			}
		}
		addrs = append(addrs, addr)
	}, evekeys...)
	return addrs, parseerr
}

// GetSensorID returns the machine ID of the system it is being run on, or
// the string "<no_machine_id>"" if the ID cannot be determined.
func GetSensorID() (string, error) {
	if _, err := os.Stat("/etc/machine-id"); os.IsNotExist(err) {
		return "<no_machine_id>", nil
	}
	b, err := os.ReadFile("/etc/machine-id")
	if err != nil {
		return "<no_machine_id>", nil
	}
	return strings.TrimSpace(string(b)), nil
}

// MakeTLSConfig returns a TLS configuration suitable for an endpoint with private
// key stored in keyFile and corresponding certificate stored in certFile. rcas
// defines a list of root CA filenames.
// If certFile and keyFile are empty, e.g., when configuring a tls-client
// endpoint w/o mutual authentication, only the RootCA pool is populated.
func MakeTLSConfig(certFile, keyFile string, rcas []string, skipVerify bool) (*tls.Config, error) {
	certs := make([]tls.Certificate, 0, 1)

	if certFile != "" || keyFile != "" {
		c, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, err
		}
		certs = append(certs, c)
	}
	rcaPool := x509.NewCertPool()
	for _, filename := range rcas {
		rca, err := os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		rcaPool.AppendCertsFromPEM(rca)
	}

	return &tls.Config{
		Certificates:       certs,
		RootCAs:            rcaPool,
		InsecureSkipVerify: skipVerify,
	}, nil
}
