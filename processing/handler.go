package processing

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

import (
	"github.com/DCSO/hostnamer/resolver"
	"github.com/DCSO/hostnamer/util"
)

// Notifier is a resolver.Subscriber with a name, to be registered with a
// Resolver to act on completed resolutions.
type Notifier interface {
	resolver.Subscriber
	GetName() string
}

// ConcurrentNotifier is a Notifier which also performs work in the
// background, such as forwarding or shipping data.
type ConcurrentNotifier interface {
	Notifier
	Run()
	Stop(chan bool)
}

// StatsGeneratingNotifier is a Notifier which also periodically outputs
// performance statistics using the provided PerformanceStatsEncoder.
type StatsGeneratingNotifier interface {
	Notifier
	SubmitStats(*util.PerformanceStatsEncoder)
}
