package processing

// DCSO HOSTNAMER
// Copyright (c) 2019, 2021, DCSO GmbH

import (
	"sync"

	"github.com/DCSO/hostnamer/types"
	"github.com/DCSO/hostnamer/util"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

// SubmitQueueLength is the length of the queue buffering resolution
// events to balance out potential transmission delays.
const SubmitQueueLength = 1000

// SubmitNotifierPerfStats contains performance stats written to InfluxDB
// for monitoring.
type SubmitNotifierPerfStats struct {
	Submitted uint64 `influx:"submit_events"`
	Dropped   uint64 `influx:"submit_dropped"`
}

// SubmitNotifier is a notifier that sends resolution events as JSON to a
// StatsSubmitter, e.g. an AMQP exchange.
type SubmitNotifier struct {
	Lock         sync.Mutex
	Submitter    util.StatsSubmitter
	SensorID     string
	InChan       chan types.Host
	Clock        clockwork.Clock
	Logger       *log.Entry
	PerfStats    SubmitNotifierPerfStats
	StatsEncoder *util.PerformanceStatsEncoder
	StopChan     chan bool
	StoppedChan  chan bool
	Running      bool
}

// MakeSubmitNotifier returns a new SubmitNotifier shipping to s.
func MakeSubmitNotifier(s util.StatsSubmitter) (*SubmitNotifier, error) {
	sensorID, err := util.GetSensorID()
	if err != nil {
		return nil, err
	}
	return &SubmitNotifier{
		Submitter: s,
		SensorID:  sensorID,
		InChan:    make(chan types.Host, SubmitQueueLength),
		Clock:     clockwork.NewRealClock(),
		Logger: log.WithFields(log.Fields{
			"domain": "submit",
		}),
	}, nil
}

// Resolved queues the Host for submission. If the queue is full the event is
// dropped.
func (n *SubmitNotifier) Resolved(h types.Host) {
	select {
	case n.InChan <- h:
	default:
		n.Lock.Lock()
		n.PerfStats.Dropped++
		n.Lock.Unlock()
	}
}

func (n *SubmitNotifier) submit(h types.Host) {
	ev := types.MakeHostEvent(h, n.Clock.Now())
	ev.SensorID = n.SensorID
	out, err := ev.JSON()
	if err != nil {
		n.Logger.Warn(err)
		return
	}
	n.Submitter.SubmitWithHeaders(out, ev.RoutingKey(), types.HostEventContentType, ev.Headers())
	n.Lock.Lock()
	n.PerfStats.Submitted++
	n.Lock.Unlock()
}

func (n *SubmitNotifier) run() {
	for {
		select {
		case <-n.StopChan:
			close(n.StoppedChan)
			return
		case h := <-n.InChan:
			n.submit(h)
		}
	}
}

// GetName returns the name of the notifier
func (n *SubmitNotifier) GetName() string {
	return "Submission notifier"
}

// SubmitStats registers a PerformanceStatsEncoder for runtime stats submission.
func (n *SubmitNotifier) SubmitStats(sc *util.PerformanceStatsEncoder) {
	n.StatsEncoder = sc
}

// FlushStats submits and resets the current counters, if an encoder is set.
func (n *SubmitNotifier) FlushStats() {
	if n.StatsEncoder == nil {
		return
	}
	n.Lock.Lock()
	myStats := n.PerfStats
	n.PerfStats = SubmitNotifierPerfStats{}
	n.Lock.Unlock()
	n.StatsEncoder.Submit(myStats)
}

// Run starts the background submission of queued events.
func (n *SubmitNotifier) Run() {
	if n.Running {
		return
	}
	n.StopChan = make(chan bool)
	n.StoppedChan = make(chan bool)
	n.Running = true
	go n.run()
}

// Stop ceases submission and closes the passed channel when done. Events
// still queued are discarded.
func (n *SubmitNotifier) Stop(stopChan chan bool) {
	if n.Running {
		close(n.StopChan)
		<-n.StoppedChan
		n.Running = false
		n.FlushStats()
	}
	close(stopChan)
}
