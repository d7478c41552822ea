package processing

// DCSO HOSTNAMER
// Copyright (c) 2019, 2021, DCSO GmbH

import (
	"github.com/DCSO/hostnamer/types"

	log "github.com/sirupsen/logrus"
)

// LogNotifier is a notifier that writes each completed resolution to the
// log.
type LogNotifier struct {
	Logger *log.Entry
}

// MakeLogNotifier creates a new LogNotifier.
func MakeLogNotifier() *LogNotifier {
	return &LogNotifier{
		Logger: log.WithFields(log.Fields{
			"domain": "notify",
		}),
	}
}

// Resolved logs the given Host.
func (n *LogNotifier) Resolved(h types.Host) {
	n.Logger.WithFields(log.Fields{
		"address": h.Address,
		"name":    h.Name,
	}).Info("address resolved")
}

// GetName returns the name of the notifier
func (n *LogNotifier) GetName() string {
	return "Log notifier"
}
