package util

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

import (
	"bytes"
	"strings"
	"sync"
	"time"

	"github.com/DCSO/fluxline"
	log "github.com/sirupsen/logrus"
)

// PerformanceStatsEncoder is a component to collect, encode and submit data
// to an InfluxDb via RabbitMQ.
type PerformanceStatsEncoder struct {
	sync.RWMutex
	Encoder       *fluxline.Encoder
	Buffer        bytes.Buffer
	Logger        *log.Entry
	Tags          map[string]string
	Submitter     StatsSubmitter
	SubmitPeriod  time.Duration
	LastSubmitted time.Time
	DummyMode     bool
}

// MakePerformanceStatsEncoder creates a new stats encoder, submitting via
// the given StatsSubmitter, with at least submitPeriod time between submissions.
// if dummyMode is set, then the result will be printed to stdout instead of
// submitting.
func MakePerformanceStatsEncoder(statsSubmitter StatsSubmitter,
	submitPeriod time.Duration, dummyMode bool) *PerformanceStatsEncoder {
	a := &PerformanceStatsEncoder{
		Logger: log.WithFields(log.Fields{
			"domain": "statscollect",
		}),
		Submitter:     statsSubmitter,
		DummyMode:     dummyMode,
		Tags:          make(map[string]string),
		LastSubmitted: time.Now(),
		SubmitPeriod:  submitPeriod,
	}
	a.Encoder = fluxline.NewEncoder(&a.Buffer)
	return a
}

// Submit encodes the data annotated with 'influx' tags in the passed struct and
// sends it to the configured submitter.
func (a *PerformanceStatsEncoder) Submit(val interface{}) {
	a.SubmitWithTags(val, nil)
}

// SubmitWithTags works like Submit but adds the given tags to the default
// ones for this submission only.
func (a *PerformanceStatsEncoder) SubmitWithTags(val interface{}, tags map[string]string) {
	a.Lock()
	defer a.Unlock()
	myTags := a.Tags
	if len(tags) > 0 {
		myTags = make(map[string]string, len(a.Tags)+len(tags))
		for k, v := range a.Tags {
			myTags[k] = v
		}
		for k, v := range tags {
			myTags[k] = v
		}
	}
	a.Buffer.Reset()
	err := a.Encoder.EncodeWithoutTypes(ToolName, val, myTags)
	if err != nil {
		a.Logger.Warn(err)
	}
	line := strings.TrimSpace(a.Buffer.String())
	if line == "" {
		a.Logger.Warn("skipping empty influx line")
		return
	}
	if a.DummyMode {
		a.Logger.Info(line)
	}
	a.Submitter.SubmitWithHeaders([]byte(line), "", "text/plain", map[string]string{
		"database":         "telegraf",
		"retention_policy": "default",
	})
	a.LastSubmitted = time.Now()
}
