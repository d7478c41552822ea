package processing

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

import (
	"sync"
	"time"

	"github.com/DCSO/hostnamer/util"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

// DefaultEventLoopQueueLength is the number of closures an EventLoop buffers
// before Post blocks.
const DefaultEventLoopQueueLength = 10000

// EventLoopPerfStats contains performance stats written to InfluxDB
// for monitoring.
type EventLoopPerfStats struct {
	ExecutedPerSec uint64 `influx:"loop_executed_per_sec"`
	Failed         uint64 `influx:"loop_failed"`
	Dropped        uint64 `influx:"loop_dropped"`
	QueueLength    uint64 `influx:"loop_queue_length"`
}

// EventLoop runs posted closures one after another on a single goroutine, in
// the order they were posted. Its Post method can be used as a
// resolver.DispatchFunc, so that all notifications are delivered from the
// same context.
type EventLoop struct {
	Lock               sync.Mutex
	Queue              chan func()
	PerfStats          EventLoopPerfStats
	Logger             *log.Entry
	StatsEncoder       *util.PerformanceStatsEncoder
	Clock              clockwork.Clock
	StopChan           chan bool
	StoppedChan        chan bool
	StopCounterChan    chan bool
	StoppedCounterChan chan bool
	Running            bool
}

// MakeEventLoop returns a new EventLoop buffering up to queueLen closures.
func MakeEventLoop(queueLen int) *EventLoop {
	if queueLen <= 0 {
		queueLen = DefaultEventLoopQueueLength
	}
	return &EventLoop{
		Queue:    make(chan func(), queueLen),
		StopChan: make(chan bool),
		Clock:    clockwork.NewRealClock(),
		Logger: log.WithFields(log.Fields{
			"domain": "loop",
		}),
	}
}

// Post schedules f for execution on the loop. It blocks while the queue is
// full. Closures posted after Stop are dropped.
func (l *EventLoop) Post(f func()) {
	select {
	case <-l.StopChan:
		l.Lock.Lock()
		l.PerfStats.Dropped++
		l.Lock.Unlock()
		return
	default:
	}
	select {
	case l.Queue <- f:
	case <-l.StopChan:
		l.Lock.Lock()
		l.PerfStats.Dropped++
		l.Lock.Unlock()
	}
}

func (l *EventLoop) execute(f func()) {
	defer func() {
		if rec := recover(); rec != nil {
			l.Logger.Errorf("posted function failed: %v", rec)
			l.Lock.Lock()
			l.PerfStats.Failed++
			l.Lock.Unlock()
		}
	}()
	f()
	l.Lock.Lock()
	l.PerfStats.ExecutedPerSec++
	l.Lock.Unlock()
}

func (l *EventLoop) runLoop() {
	for {
		select {
		case <-l.StopChan:
			close(l.StoppedChan)
			return
		case f := <-l.Queue:
			l.execute(f)
		}
	}
}

func (l *EventLoop) runCounter(ticker clockwork.Ticker) {
	for {
		select {
		case <-l.StopCounterChan:
			ticker.Stop()
			close(l.StoppedCounterChan)
			return
		case <-ticker.Chan():
			if l.StatsEncoder == nil {
				continue
			}
			secs := uint64(l.StatsEncoder.SubmitPeriod.Seconds())
			if secs == 0 {
				secs = 1
			}
			l.Lock.Lock()
			myStats := l.PerfStats
			myStats.ExecutedPerSec /= secs
			l.PerfStats.ExecutedPerSec = 0
			l.Lock.Unlock()
			myStats.QueueLength = uint64(len(l.Queue))
			l.StatsEncoder.Submit(myStats)
		}
	}
}

// SubmitStats registers a PerformanceStatsEncoder for runtime stats submission.
func (l *EventLoop) SubmitStats(sc *util.PerformanceStatsEncoder) {
	l.StatsEncoder = sc
}

// Run starts executing posted closures.
func (l *EventLoop) Run() {
	if l.Running {
		return
	}
	period := 10 * time.Second
	if l.StatsEncoder != nil && l.StatsEncoder.SubmitPeriod > 0 {
		period = l.StatsEncoder.SubmitPeriod
	}
	l.StoppedChan = make(chan bool)
	l.StopCounterChan = make(chan bool)
	l.StoppedCounterChan = make(chan bool)
	l.Running = true
	go l.runLoop()
	go l.runCounter(l.Clock.NewTicker(period))
}

// Stop ceases execution of posted closures. Closures still queued are not
// run. The passed channel is closed when done.
func (l *EventLoop) Stop(stopChan chan bool) {
	if l.Running {
		close(l.StopChan)
		<-l.StoppedChan
		close(l.StopCounterChan)
		<-l.StoppedCounterChan
		l.Running = false
	}
	close(stopChan)
}
