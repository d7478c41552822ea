package resolver

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DCSO/hostnamer/types"
	"github.com/DCSO/hostnamer/util"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

const defaultCounterPeriod = 10 * time.Second

// ResolverPerfStats contains performance stats written to InfluxDB
// for monitoring.
type ResolverPerfStats struct {
	Lookups        uint64 `influx:"rdns_lookups"`
	LookupFailures uint64 `influx:"rdns_lookup_failures"`
	Notifications  uint64 `influx:"rdns_notifications"`
	PendingLength  uint64 `influx:"rdns_pending_length"`
	CacheSize      uint64 `influx:"rdns_cache_size"`
}

// Resolver turns addresses into host names in the background. Resolve never
// blocks on a lookup: it answers from the cache or returns a placeholder and
// queues the address for a single worker goroutine, which notifies all
// Subscribers once a name is known.
type Resolver struct {
	// Lock orders the cache-miss/enqueue step against the cache-write/release
	// step, so that a cached address is never queued again.
	Lock               sync.Mutex
	Cache              *Cache
	Pending            *PendingSet
	Subscribers        *SubscriberRegistry
	Lookup             LookupFunc
	Dispatch           DispatchFunc
	Logger             *log.Entry
	StatsLock          sync.Mutex
	PerfStats          ResolverPerfStats
	StatsEncoder       *util.PerformanceStatsEncoder
	Clock              clockwork.Clock
	StopCounterChan    chan bool
	StoppedCounterChan chan bool
	running            atomic.Bool
	countersRunning    bool

	// called by the worker around clearing the running flag, for tests
	beforeIdle func()
	afterIdle  func()
}

// MakeResolver returns a new Resolver using lookup to find names and
// dispatch to deliver notifications. A nil dispatch delivers directly from
// the worker goroutine.
func MakeResolver(lookup LookupFunc, dispatch DispatchFunc) *Resolver {
	if dispatch == nil {
		dispatch = DirectDispatch
	}
	return &Resolver{
		Cache:       MakeCache(),
		Pending:     MakePendingSet(),
		Subscribers: MakeSubscriberRegistry(),
		Lookup:      lookup,
		Dispatch:    dispatch,
		Clock:       clockwork.NewRealClock(),
		Logger: log.WithFields(log.Fields{
			"domain": "resolver",
		}),
	}
}

// Resolve returns the best currently known Host for the address. If the
// name is not cached yet, the address is queued for resolution and a
// placeholder Host is returned.
func (r *Resolver) Resolve(address string) types.Host {
	if name, ok := r.Cache.Get(address); ok {
		return types.MakeHost(address, name, true)
	}

	r.Lock.Lock()
	name, ok := r.Cache.Get(address)
	added := false
	if !ok {
		added = r.Pending.Add(address)
	}
	r.Lock.Unlock()

	if ok {
		return types.MakeHost(address, name, true)
	}
	if added {
		r.Logger.WithFields(log.Fields{
			"address": address,
		}).Debug("queued for resolution")
		r.ensureWorker()
	}
	return types.MakeHost(address, "", false)
}

// Peek returns the cached Host for the address without queueing it.
func (r *Resolver) Peek(address string) (types.Host, bool) {
	name, ok := r.Cache.Get(address)
	if !ok {
		return types.Host{}, false
	}
	return types.MakeHost(address, name, true), true
}

// Subscribe registers s to be notified about resolutions completed from now
// on. Subscribers that cannot be compared by identity are not registered.
func (r *Resolver) Subscribe(s Subscriber) {
	added, err := r.Subscribers.Add(s)
	if err != nil {
		r.Logger.Warn(err)
		return
	}
	if added {
		r.Logger.Debug("subscriber added")
	}
}

// Unsubscribe removes s from the set of notified subscribers.
func (r *Resolver) Unsubscribe(s Subscriber) {
	if r.Subscribers.Remove(s) {
		r.Logger.Debug("subscriber removed")
	}
}

// UnsubscribeAll removes all subscribers.
func (r *Resolver) UnsubscribeAll() {
	r.Subscribers.Clear()
	r.Logger.Debug("all subscribers removed")
}

// CancelAllPendingRequests drops all addresses that are still waiting for
// resolution. A lookup that is already running is not interrupted.
func (r *Resolver) CancelAllPendingRequests() {
	n := r.Pending.Clear()
	r.Logger.WithFields(log.Fields{
		"dropped": n,
	}).Debug("pending requests cancelled")
}

// CacheSize returns the number of resolved addresses.
func (r *Resolver) CacheSize() int {
	return r.Cache.Len()
}

// PendingCount returns the number of addresses waiting for resolution.
func (r *Resolver) PendingCount() int {
	return r.Pending.Len()
}

// Busy returns true while the worker is active.
func (r *Resolver) Busy() bool {
	return r.running.Load()
}

func (r *Resolver) ensureWorker() {
	if r.running.CompareAndSwap(false, true) {
		go r.work()
	}
}

func (r *Resolver) work() {
	r.Logger.Debug("worker started")
	for {
		address, ok := r.Pending.Take()
		if !ok {
			if r.beforeIdle != nil {
				r.beforeIdle()
			}
			r.running.Store(false)
			if r.afterIdle != nil {
				r.afterIdle()
			}
			// An address may have been queued after Take() but before the
			// flag was cleared, with its Resolve() call seeing us as running.
			if r.Pending.Len() == 0 || !r.running.CompareAndSwap(false, true) {
				r.Logger.Debug("worker idle")
				return
			}
			continue
		}
		r.process(address)
	}
}

func (r *Resolver) lookup(address string) (name string, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Logger.WithFields(log.Fields{
				"address": address,
			}).Warnf("lookup failed: %v", rec)
			name, ok = "", false
		}
	}()
	return r.Lookup(address)
}

func (r *Resolver) process(address string) {
	name, ok := r.lookup(address)

	r.Lock.Lock()
	stored := ok && r.Cache.Add(address, name)
	r.Pending.Done(address)
	r.Lock.Unlock()

	r.StatsLock.Lock()
	r.PerfStats.Lookups++
	if !ok {
		r.PerfStats.LookupFailures++
	}
	r.StatsLock.Unlock()

	if !ok {
		r.Logger.WithFields(log.Fields{
			"address": address,
		}).Debug("no name found")
		return
	}
	if !stored {
		return
	}
	r.notify(types.MakeHost(address, name, true))
}

func (r *Resolver) notify(h types.Host) {
	for _, s := range r.Subscribers.Snapshot() {
		sub := s
		r.Dispatch(func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.Logger.WithFields(log.Fields{
						"address":    h.Address,
						"subscriber": fmt.Sprintf("%T", sub),
					}).Errorf("subscriber failed: %v", rec)
				}
			}()
			// dispatch may be deferred, skip subscribers gone in the meantime
			if !r.Subscribers.Contains(sub) {
				return
			}
			sub.Resolved(h)
			r.StatsLock.Lock()
			r.PerfStats.Notifications++
			r.StatsLock.Unlock()
		})
	}
}

func (r *Resolver) submitStats() {
	r.StatsLock.Lock()
	myStats := r.PerfStats
	r.PerfStats = ResolverPerfStats{}
	r.StatsLock.Unlock()

	myStats.PendingLength = uint64(r.Pending.Len())
	myStats.CacheSize = uint64(r.Cache.Len())
	r.StatsEncoder.Submit(myStats)
}

func (r *Resolver) runCounter(ticker clockwork.Ticker) {
	for {
		select {
		case <-r.StopCounterChan:
			ticker.Stop()
			close(r.StoppedCounterChan)
			return
		case <-ticker.Chan():
			if r.StatsEncoder != nil {
				r.submitStats()
			}
		}
	}
}

// SubmitStats registers a PerformanceStatsEncoder for runtime stats submission.
func (r *Resolver) SubmitStats(sc *util.PerformanceStatsEncoder) {
	r.StatsEncoder = sc
}

// Run starts the periodic submission of performance stats. Resolution itself
// does not need Run to be called.
func (r *Resolver) Run() {
	if r.countersRunning {
		return
	}
	period := defaultCounterPeriod
	if r.StatsEncoder != nil && r.StatsEncoder.SubmitPeriod > 0 {
		period = r.StatsEncoder.SubmitPeriod
	}
	r.StopCounterChan = make(chan bool)
	r.StoppedCounterChan = make(chan bool)
	r.countersRunning = true
	go r.runCounter(r.Clock.NewTicker(period))
}

// Stop ceases stats submission and closes the passed channel when done.
func (r *Resolver) Stop(stopChan chan bool) {
	if r.countersRunning {
		close(r.StopCounterChan)
		<-r.StoppedCounterChan
		r.countersRunning = false
	}
	close(stopChan)
}
