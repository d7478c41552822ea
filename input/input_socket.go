package input

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/DCSO/hostnamer/util"

	log "github.com/sirupsen/logrus"
)

const maxLineSize = 1024 * 1024

// SocketInputPerfStats contains performance stats written to InfluxDB
// for monitoring.
type SocketInputPerfStats struct {
	SocketQueueLength  uint64 `influx:"input_queue_length"`
	SocketQueueDropped uint64 `influx:"input_queue_dropped"`
	InvalidLines       uint64 `influx:"input_invalid_lines"`
}

// SocketInput is an Input reading lines from a Unix socket. Each line is
// either a bare IP address or a JSON object such as Suricata EVE output.
type SocketInput struct {
	sync.Mutex
	AddressChan       chan string
	Verbose           bool
	Running           bool
	InputListener     net.Listener
	Logger            *log.Entry
	StopChan          chan bool
	StoppedChan       chan bool
	DropIfChannelFull bool
	PerfStats         SocketInputPerfStats
	StatsEncoder      *util.PerformanceStatsEncoder
}

// GetName returns a printable name for the input
func (si *SocketInput) GetName() string {
	return "Socket input"
}

func (si *SocketInput) handleLine(line []byte) {
	res := emitLine(line, si.AddressChan, si.DropIfChannelFull, si.Logger)
	si.Lock()
	si.PerfStats.SocketQueueDropped += uint64(res.Dropped)
	if res.Invalid {
		si.PerfStats.InvalidLines++
	}
	si.Unlock()
}

func (si *SocketInput) handleServerConnection() {
	for {
		select {
		case <-si.StopChan:
			si.InputListener.Close()
			close(si.StoppedChan)
			return
		default:
			var start time.Time
			var totalLen int

			si.InputListener.(*net.UnixListener).SetDeadline(time.Now().Add(1e9))
			c, err := si.InputListener.Accept()
			if err != nil {
				if opErr, ok := err.(*net.OpError); ok && opErr.Timeout() {
					continue
				}
				si.Logger.Info(err)
				continue
			}

			if si.Verbose {
				start = time.Now()
			}
			scanner := bufio.NewScanner(c)
			scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
			for scanner.Scan() {
				select {
				case <-si.StopChan:
					c.Close()
					si.InputListener.Close()
					close(si.StoppedChan)
					return
				default:
					line := scanner.Bytes()
					totalLen += len(line)
					si.handleLine(line)
				}
			}
			if errRead := scanner.Err(); errRead != nil {
				si.Logger.Warn(errRead)
			}
			c.Close()

			if si.Verbose {
				si.Logger.WithFields(log.Fields{
					"size":        totalLen,
					"elapsedTime": time.Since(start),
				}).Info("connection handled")
			}
		}
	}
}

func (si *SocketInput) sendPerfStats() {
	ticker := time.NewTicker(perfStatsSendInterval)
	defer ticker.Stop()
	for {
		select {
		case <-si.StopChan:
			return
		case <-ticker.C:
			if si.StatsEncoder != nil {
				si.Lock()
				myStats := si.PerfStats
				si.PerfStats.InvalidLines = 0
				si.Unlock()
				myStats.SocketQueueLength = uint64(len(si.AddressChan))
				si.StatsEncoder.Submit(myStats)
			}
		}
	}
}

// MakeSocketInput returns a new SocketInput reading from the Unix socket
// inputSocket and writing addresses to outChan. If no such socket could be
// created for listening, the error returned is set accordingly.
func MakeSocketInput(inputSocket string,
	outChan chan string, bufDrop bool) (*SocketInput, error) {
	var err error
	si := &SocketInput{
		AddressChan:       outChan,
		Verbose:           false,
		StopChan:          make(chan bool),
		DropIfChannelFull: bufDrop,
		Logger: log.WithFields(log.Fields{
			"domain": "input",
			"input":  "socket",
		}),
	}
	si.InputListener, err = net.Listen("unix", inputSocket)
	if err != nil {
		return nil, err
	}
	return si, err
}

// SubmitStats registers a PerformanceStatsEncoder for runtime stats submission.
func (si *SocketInput) SubmitStats(sc *util.PerformanceStatsEncoder) {
	si.StatsEncoder = sc
}

// Run starts the SocketInput
func (si *SocketInput) Run() {
	if !si.Running {
		si.Running = true
		si.StopChan = make(chan bool)
		go si.handleServerConnection()
		go si.sendPerfStats()
	}
}

// Stop causes the SocketInput to stop reading from the socket and close all
// associated channels, including the passed notification channel.
func (si *SocketInput) Stop(stoppedChan chan bool) {
	if si.Running {
		si.StoppedChan = stoppedChan
		close(si.StopChan)
		si.Running = false
	}
}

// SetVerbose sets the input's verbosity level
func (si *SocketInput) SetVerbose(verbose bool) {
	si.Verbose = verbose
}
