package db

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

import (
	"github.com/DCSO/hostnamer/types"
)

// DummySlurper is a slurper that just consumes resolutions with no action.
type DummySlurper struct{}

// Run starts a DummySlurper.
func (s *DummySlurper) Run(hostchan chan types.Host) {
	go func() {
		for range hostchan {
		}
	}()
}

// Finish is a null operation in the DummySlurper implementation.
func (s *DummySlurper) Finish() {
}
