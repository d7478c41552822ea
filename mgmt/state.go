package mgmt

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import "github.com/DCSO/hostnamer/resolver"

// State contains references to components to be affected by RPC calls.
type State struct {
	Resolver *resolver.Resolver
}
