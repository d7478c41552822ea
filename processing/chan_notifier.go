package processing

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

import (
	"github.com/DCSO/hostnamer/types"
)

// ChanNotifier emits completed resolutions on a channel, for example to be
// written to a database.
type ChanNotifier struct {
	OutChan chan types.Host
}

// MakeChanNotifier returns a ChanNotifier writing to out.
func MakeChanNotifier(out chan types.Host) *ChanNotifier {
	return &ChanNotifier{
		OutChan: out,
	}
}

// Resolved simply emits the Host on the output channel.
func (n *ChanNotifier) Resolved(h types.Host) {
	n.OutChan <- h
}

// GetName returns the name of the notifier
func (n *ChanNotifier) GetName() string {
	return "Channel notifier"
}
