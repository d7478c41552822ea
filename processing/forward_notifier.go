package processing

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	"net"
	"sync"
	"time"

	"github.com/DCSO/hostnamer/types"
	"github.com/DCSO/hostnamer/util"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

const (
	// ForwardQueueLength is the number of events buffered per output socket.
	ForwardQueueLength = 10000
	// DefaultReconnectDelay is the time to wait between connection attempts.
	DefaultReconnectDelay = 10 * time.Second
)

// ForwardNotifierPerfStats contains performance stats written to InfluxDB
// for monitoring.
type ForwardNotifierPerfStats struct {
	Received     uint64 `influx:"output_received_per_sec"`
	Dropped      uint64 `influx:"output_dropped"`
	BufferLength uint64 `influx:"output_buffer_length"`
}

// ForwardNotifier is a concurrent, self-contained component that writes
// resolution events as JSON lines to a unix socket. It handles reconnection
// and drops events while no connection is available.
type ForwardNotifier struct {
	OutputName          string
	OutputSocket        string
	OutputConn          net.Conn
	Logger              *log.Entry
	InChan              chan types.Host
	Clock               clockwork.Clock
	Reconnecting        bool
	ReconnLock          sync.Mutex
	ReconnectNotifyChan chan bool
	StopReconnectChan   chan bool
	StoppedReconnChan   chan bool
	ReconnectTimes      int
	ReconnectDelay      time.Duration
	SensorID            string
	PerfStats           ForwardNotifierPerfStats
	StatsEncoder        *util.PerformanceStatsEncoder
	StopChan            chan bool
	StoppedChan         chan bool
	Running             bool
	Lock                sync.Mutex
}

// MakeForwardNotifier returns a new ForwardNotifier writing to the given
// socket. A reconnectTimes of 0 retries forever.
func MakeForwardNotifier(name, socket string, reconnectTimes int) *ForwardNotifier {
	return &ForwardNotifier{
		OutputName:     name,
		OutputSocket:   socket,
		ReconnectTimes: reconnectTimes,
		ReconnectDelay: DefaultReconnectDelay,
		InChan:         make(chan types.Host, ForwardQueueLength),
		Clock:          clockwork.NewRealClock(),
		Logger: log.WithFields(log.Fields{
			"domain": "forward",
			"output": name,
		}),
	}
}

func (fn *ForwardNotifier) dial() (net.Conn, error) {
	return net.Dial("unix", fn.OutputSocket)
}

func (fn *ForwardNotifier) requestReconnect() {
	select {
	case fn.ReconnectNotifyChan <- true:
	default:
	}
}

func (fn *ForwardNotifier) reconnect() {
	defer close(fn.StoppedReconnChan)
	for {
		select {
		case <-fn.StopReconnectChan:
			return
		case <-fn.ReconnectNotifyChan:
		}

		fn.ReconnLock.Lock()
		if fn.Reconnecting {
			fn.ReconnLock.Unlock()
			continue
		}
		fn.Reconnecting = true
		fn.ReconnLock.Unlock()

		fn.Logger.Infof("connecting to forwarding socket (%s)", fn.OutputSocket)
		outputConn, err := fn.dial()
		var i int
		for i = 0; (fn.ReconnectTimes == 0 || i < fn.ReconnectTimes) && err != nil; i++ {
			fn.Logger.WithFields(log.Fields{
				"retry":      i + 1,
				"maxretries": fn.ReconnectTimes,
			}).Warnf("error connecting to output socket, retrying: %s", err)
			select {
			case <-fn.StopReconnectChan:
				return
			case <-fn.Clock.After(fn.ReconnectDelay):
			}
			outputConn, err = fn.dial()
		}
		if err != nil {
			fn.Logger.WithFields(log.Fields{
				"retries": i,
			}).Errorf("permanent error connecting to output socket: %s", err)
		} else {
			if i > 0 {
				fn.Logger.WithFields(log.Fields{
					"retry_attempts": i,
				}).Info("connection to output socket successful")
			}
			fn.Lock.Lock()
			fn.OutputConn = outputConn
			fn.Lock.Unlock()
		}
		fn.ReconnLock.Lock()
		fn.Reconnecting = false
		fn.ReconnLock.Unlock()
	}
}

func (fn *ForwardNotifier) forward(h types.Host) {
	ev := types.MakeHostEvent(h, fn.Clock.Now())
	ev.SensorID = fn.SensorID
	out, err := ev.JSON()
	if err != nil {
		fn.Logger.Warn(err)
		return
	}
	out = append(out, '\n')

	fn.ReconnLock.Lock()
	reconnecting := fn.Reconnecting
	fn.ReconnLock.Unlock()

	fn.Lock.Lock()
	defer fn.Lock.Unlock()
	if reconnecting || fn.OutputConn == nil {
		fn.PerfStats.Dropped++
		return
	}
	if _, err = fn.OutputConn.Write(out); err != nil {
		fn.Logger.Warn(err)
		fn.OutputConn.Close()
		fn.OutputConn = nil
		fn.PerfStats.Dropped++
		fn.requestReconnect()
	}
}

func (fn *ForwardNotifier) runForward() {
	for {
		select {
		case <-fn.StopChan:
			close(fn.StoppedChan)
			return
		case h := <-fn.InChan:
			fn.forward(h)
		}
	}
}

// Resolved queues the Host for forwarding. If the queue is full the event is
// dropped.
func (fn *ForwardNotifier) Resolved(h types.Host) {
	select {
	case fn.InChan <- h:
		fn.Lock.Lock()
		fn.PerfStats.Received++
		fn.Lock.Unlock()
	default:
		fn.Lock.Lock()
		fn.PerfStats.Dropped++
		fn.Lock.Unlock()
	}
}

// Connected returns true if there currently is a connection to the output
// socket.
func (fn *ForwardNotifier) Connected() bool {
	fn.Lock.Lock()
	defer fn.Lock.Unlock()
	return fn.OutputConn != nil
}

// GetName returns the name of the notifier
func (fn *ForwardNotifier) GetName() string {
	return "Forwarding notifier (" + fn.OutputName + ")"
}

// SubmitStats registers a PerformanceStatsEncoder for runtime stats submission.
func (fn *ForwardNotifier) SubmitStats(sc *util.PerformanceStatsEncoder) {
	fn.StatsEncoder = sc
}

// FlushStats submits and resets the current counters, if an encoder is set.
func (fn *ForwardNotifier) FlushStats() {
	if fn.StatsEncoder == nil {
		return
	}
	secs := uint64(fn.StatsEncoder.SubmitPeriod.Seconds())
	if secs == 0 {
		secs = 1
	}
	fn.Lock.Lock()
	myStats := ForwardNotifierPerfStats{
		Dropped:      fn.PerfStats.Dropped,
		Received:     fn.PerfStats.Received / secs,
		BufferLength: uint64(len(fn.InChan)),
	}
	fn.PerfStats.Received = 0
	fn.Lock.Unlock()
	fn.StatsEncoder.SubmitWithTags(myStats, map[string]string{
		"output": fn.OutputName,
	})
}

// Run connects to the output socket and starts forwarding queued events.
func (fn *ForwardNotifier) Run() {
	if fn.Running {
		return
	}
	fn.StopChan = make(chan bool)
	fn.StoppedChan = make(chan bool)
	fn.ReconnectNotifyChan = make(chan bool, 1)
	fn.StopReconnectChan = make(chan bool)
	fn.StoppedReconnChan = make(chan bool)
	fn.Running = true
	go fn.reconnect()
	fn.requestReconnect()
	go fn.runForward()
}

// Stop ceases forwarding, closes the output connection and closes the passed
// channel when done.
func (fn *ForwardNotifier) Stop(stopChan chan bool) {
	if fn.Running {
		close(fn.StopChan)
		<-fn.StoppedChan
		close(fn.StopReconnectChan)
		<-fn.StoppedReconnChan
		fn.Lock.Lock()
		if fn.OutputConn != nil {
			fn.OutputConn.Close()
			fn.OutputConn = nil
		}
		fn.Lock.Unlock()
		fn.Running = false
	}
	close(stopChan)
}
