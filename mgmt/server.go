package mgmt

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

// Server is a management endpoint that can be started and stopped.
type Server interface {
	// ListenAndServe is expected to create a listener and to block until a
	// shutdown is invoked.
	ListenAndServe() error
	Stop()
}
