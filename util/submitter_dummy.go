package util

// DCSO HOSTNAMER
// Copyright (c) 2018, 2021, DCSO GmbH

import (
	"unicode"

	log "github.com/sirupsen/logrus"
)

// DummySubmitter is a StatsSubmitter that only writes submissions to the
// log, for running without a message broker.
type DummySubmitter struct {
	Logger   *log.Entry
	SensorID string
}

func isASCIIPrintable(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// MakeDummySubmitter returns a new DummySubmitter tagged with the local
// sensor ID.
func MakeDummySubmitter() (*DummySubmitter, error) {
	sensorID, err := GetSensorID()
	if err != nil {
		return nil, err
	}
	return &DummySubmitter{
		SensorID: sensorID,
		Logger: log.WithFields(log.Fields{
			"domain":    "submitter",
			"submitter": "dummy",
			"sensor":    sensorID,
		}),
	}, nil
}

// UseCompression has no effect, payloads are always logged as given.
func (s *DummySubmitter) UseCompression() {}

// Submit logs the rawData payload.
func (s *DummySubmitter) Submit(rawData []byte, key string, contentType string) {
	s.SubmitWithHeaders(rawData, key, contentType, nil)
}

// SubmitWithHeaders logs the rawData payload. Headers are added as log
// fields.
func (s *DummySubmitter) SubmitWithHeaders(rawData []byte, key string, contentType string, myHeaders map[string]string) {
	l := s.Logger.WithField("key", key)
	for k, v := range myHeaders {
		l = l.WithField(k, v)
	}
	if payload := string(rawData); isASCIIPrintable(payload) {
		l.Info(payload)
		return
	}
	l.Infof("non-printable payload (%s) of length %d", contentType, len(rawData))
}

// Finish is a no-op.
func (s *DummySubmitter) Finish() {}
