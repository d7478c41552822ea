package db

// DCSO HOSTNAMER
// Copyright (c) 2021, DCSO GmbH

import (
	"testing"
	"time"

	"github.com/DCSO/hostnamer/types"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestDummySlurper(t *testing.T) {
	var s Slurper = &DummySlurper{}
	ch := make(chan types.Host)
	s.Run(ch)
	for i := 0; i < 10; i++ {
		ch <- types.MakeHost("10.0.0.1", "db1.internal", true)
	}
	close(ch)
	s.Finish()
}

func TestMongoSlurperDocument(t *testing.T) {
	s := MakeMongoSlurper("localhost", "hostnamer", "u", "p", 0, 10)
	var _ Slurper = s
	assert.Equal(t, 1, s.ChunkSize)
	assert.Equal(t, int64(10*1024*1024), s.MaxSize)
	assert.Equal(t, "mongodb://u:p@localhost/hostnamer", s.url())

	ts := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	s.Clock = clockwork.NewFakeClockAt(ts)
	s.SensorID = "sensor1"
	doc := s.makeDocument(types.MakeHost("10.0.0.1", "db1.internal", true))
	assert.Equal(t, MongoResolution{
		Timestamp: ts,
		Address:   "10.0.0.1",
		Name:      "db1.internal",
		SensorID:  "sensor1",
	}, doc)
}

func TestMongoSlurperFinishWithoutRun(t *testing.T) {
	s := MakeMongoSlurper("localhost", "hostnamer", "u", "p", 10, 10)
	s.Finish()
}
