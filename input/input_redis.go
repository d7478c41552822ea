package input

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

import (
	"sync"
	"time"

	"github.com/DCSO/hostnamer/util"

	"github.com/gomodule/redigo/redis"
	log "github.com/sirupsen/logrus"
)

// DefaultRedisKey is the name of the Redis list addresses are popped from.
const DefaultRedisKey = "addresses"

// RedisInputPerfStats contains performance stats written to InfluxDB
// for monitoring.
type RedisInputPerfStats struct {
	RedisQueueLength uint64 `influx:"redis_queue_length"`
	InvalidLines     uint64 `influx:"redis_invalid_lines"`
}

// RedisInput is an Input reading addresses or JSON lines from a Redis list.
type RedisInput struct {
	sync.Mutex
	AddressChan   chan string
	Verbose       bool
	Running       bool
	Pool          *redis.Pool
	Logger        *log.Entry
	StopChan      chan bool
	StoppedChan   chan bool
	Addr          string
	Proto         string
	Key           string
	ParseWorkers  int
	BatchSize     int
	PerfStats     RedisInputPerfStats
	StatsEncoder  *util.PerformanceStatsEncoder
	UsePipelining bool
}

// GetName returns a printable name for the input
func (ri *RedisInput) GetName() string {
	return "Redis input"
}

func (ri *RedisInput) doParse(inchan chan []byte, wg *sync.WaitGroup) {
	defer wg.Done()
	ri.Logger.Debug("started parse worker")
	for v := range inchan {
		res := emitLine(v, ri.AddressChan, false, ri.Logger)
		if res.Invalid {
			ri.Lock()
			ri.PerfStats.InvalidLines++
			ri.Unlock()
		}
	}
}

func (ri *RedisInput) backOff(stopChan chan bool) bool {
	select {
	case <-stopChan:
		return false
	case <-time.After(backOffTime):
		return true
	}
}

func (ri *RedisInput) popPipeline(wg *sync.WaitGroup, stopChan chan bool,
	parseChan chan []byte) {
	defer wg.Done()
	var skipLogs = false
	warn := func(op string, err error) {
		if !skipLogs {
			ri.Logger.Warnf("%s error %s, backing off (%v) and disabling further warnings",
				op, err.Error(), backOffTime)
			skipLogs = true
		}
	}
	for {
		select {
		case <-stopChan:
			return
		default:
		}
		conn := ri.Pool.Get()
		err := conn.Send("MULTI")
		for i := 0; err == nil && i < ri.BatchSize; i++ {
			err = conn.Send("RPOP", ri.Key)
		}
		if err != nil {
			warn("MULTI/RPOP", err)
			conn.Close()
			if !ri.backOff(stopChan) {
				return
			}
			continue
		}
		r, err := redis.Values(conn.Do("EXEC"))
		conn.Close()
		if err != nil {
			warn("EXEC", err)
			if !ri.backOff(stopChan) {
				return
			}
			continue
		}
		if skipLogs {
			skipLogs = false
			ri.Logger.Warn("Redis transaction succeeded, showing warnings again")
		}
		got := 0
		for _, v := range r {
			b, ok := v.([]byte)
			if !ok {
				break
			}
			parseChan <- b
			got++
		}
		if got == 0 {
			ri.Logger.Debugf("empty result received, backing off (%v)", backOffTime)
			if !ri.backOff(stopChan) {
				return
			}
		}
	}
}

func (ri *RedisInput) noPipePop(wg *sync.WaitGroup, stopChan chan bool,
	parseChan chan []byte) {
	defer wg.Done()
	conn := ri.Pool.Get()
	defer func() {
		conn.Close()
	}()
	for {
		select {
		case <-stopChan:
			return
		default:
		}
		vals, err := redis.ByteSlices(conn.Do("BRPOP", ri.Key, "1"))
		if err == nil && len(vals) == 2 {
			parseChan <- vals[1]
			continue
		}
		if err == redis.ErrNil {
			continue
		}
		if err != nil {
			ri.Logger.Warn(err)
		}
		conn.Close()
		if !ri.backOff(stopChan) {
			return
		}
		conn = ri.Pool.Get()
	}
}

func (ri *RedisInput) handleServerConnection() {
	var wg sync.WaitGroup
	var parsewg sync.WaitGroup
	parseChan := make(chan []byte)
	pipelineStopChan := make(chan bool)

	for i := 0; i < ri.ParseWorkers; i++ {
		parsewg.Add(1)
		go ri.doParse(parseChan, &parsewg)
	}

	if ri.UsePipelining {
		wg.Add(1)
		go ri.popPipeline(&wg, pipelineStopChan, parseChan)
	} else {
		ri.Logger.Info("not using Redis pipelining")
		wg.Add(3)
		go ri.noPipePop(&wg, pipelineStopChan, parseChan)
		go ri.noPipePop(&wg, pipelineStopChan, parseChan)
		go ri.noPipePop(&wg, pipelineStopChan, parseChan)
	}
	wg.Add(1)
	go ri.sendPerfStats(&wg)

	<-ri.StopChan
	close(pipelineStopChan)
	wg.Wait()
	close(parseChan)
	parsewg.Wait()
	ri.Pool.Close()
	close(ri.StoppedChan)
}

func (ri *RedisInput) sendPerfStats(wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(perfStatsSendInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ri.StopChan:
			return
		case <-ticker.C:
			if ri.StatsEncoder == nil {
				continue
			}
			conn := ri.Pool.Get()
			length, err := redis.Uint64(conn.Do("LLEN", ri.Key))
			conn.Close()
			if err != nil {
				ri.Logger.Warnf("error retrieving Redis list length: %s", err.Error())
				continue
			}
			ri.Lock()
			myStats := ri.PerfStats
			ri.PerfStats.InvalidLines = 0
			ri.Unlock()
			myStats.RedisQueueLength = length
			ri.StatsEncoder.Submit(myStats)
		}
	}
}

func makeRedisInput(proto, addr string, outChan chan string, batchSize int) *RedisInput {
	ri := &RedisInput{
		AddressChan:  outChan,
		Verbose:      false,
		StopChan:     make(chan bool),
		Addr:         addr,
		Proto:        proto,
		Key:          DefaultRedisKey,
		ParseWorkers: 3,
		BatchSize:    batchSize,
		Logger: log.WithFields(log.Fields{
			"domain": "input",
			"input":  "redis",
		}),
	}
	ri.Pool = &redis.Pool{
		MaxIdle:     5,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			c, err := redis.Dial(proto, addr)
			if err != nil {
				return nil, err
			}
			ri.Logger.Debugf("dialed %s", addr)
			return c, err
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			_, err := c.Do("PING")
			return err
		},
	}
	return ri
}

// MakeRedisInput returns a new RedisInput, where the string parameter denotes a
// hostname:port combination.
func MakeRedisInput(addr string, outChan chan string, batchSize int) (*RedisInput, error) {
	return makeRedisInput("tcp", addr, outChan, batchSize), nil
}

// MakeRedisInputSocket returns a new RedisInput, where string parameter
// denotes a socket.
func MakeRedisInputSocket(addr string, outChan chan string, batchSize int) (*RedisInput, error) {
	return makeRedisInput("unix", addr, outChan, batchSize), nil
}

// SubmitStats registers a PerformanceStatsEncoder for runtime stats submission.
func (ri *RedisInput) SubmitStats(sc *util.PerformanceStatsEncoder) {
	ri.StatsEncoder = sc
}

// Run starts the RedisInput
func (ri *RedisInput) Run() {
	if !ri.Running {
		ri.Running = true
		ri.StopChan = make(chan bool)
		go ri.handleServerConnection()
	}
}

// Stop causes the RedisInput to stop reading from the Redis list and close all
// associated channels, including the passed notification channel.
func (ri *RedisInput) Stop(stoppedChan chan bool) {
	if ri.Running {
		ri.StoppedChan = stoppedChan
		close(ri.StopChan)
		ri.Running = false
	}
}

// SetVerbose sets the input's verbosity level
func (ri *RedisInput) SetVerbose(verbose bool) {
	ri.Verbose = verbose
}
