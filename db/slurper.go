package db

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

import (
	"github.com/DCSO/hostnamer/types"
)

// Slurper is an interface for a worker that can be started (Run()) with a
// given channel delivering resolved Hosts, storing them in an associated
// data store. Finish() writes out pending state and stops the worker.
type Slurper interface {
	Run(chan types.Host)
	Finish()
}
