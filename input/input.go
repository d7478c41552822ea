package input

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

import (
	"bytes"
	"time"

	"github.com/DCSO/hostnamer/util"

	log "github.com/sirupsen/logrus"
)

var perfStatsSendInterval = 10 * time.Second
var backOffTime = 500 * time.Millisecond

// Input is an interface describing the behaviour for a component to
// read addresses to be resolved from an external source.
type Input interface {
	GetName() string
	Run()
	SetVerbose(bool)
	Stop(chan bool)
}

// lineResult describes what happened to the addresses in a single line.
type lineResult struct {
	Sent    int
	Dropped int
	Invalid bool
}

// emitLine extracts addresses from a single input line and sends them to
// out. If drop is set, addresses are dropped instead of blocking when out is
// full.
func emitLine(line []byte, out chan string, drop bool, logger *log.Entry) lineResult {
	var res lineResult
	addrs, err := util.ExtractAddresses(line)
	if err != nil {
		logger.Warnf("could not parse input line: %s", err)
		res.Invalid = true
		return res
	}
	if len(addrs) == 0 {
		if len(bytes.TrimSpace(line)) > 0 {
			logger.Warnf("no valid address in input line: %s", string(line))
			res.Invalid = true
		}
		return res
	}
	for _, a := range addrs {
		if !drop {
			out <- a
			res.Sent++
			continue
		}
		select {
		case out <- a:
			res.Sent++
		default:
			res.Dropped++
		}
	}
	return res
}
