package db

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

import (
	"fmt"
	"time"

	"github.com/DCSO/hostnamer/types"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"gopkg.in/mgo.v2"
)

// MongoIndexes are the indexes ensured on the resolution collection.
var MongoIndexes = []mgo.Index{
	{
		Key:        []string{"address"},
		Background: true,
	},
	{
		Key:        []string{"name"},
		Background: true,
	},
	{
		Key:        []string{"timestamp"},
		Background: true,
	},
}

// MongoResolution is the document stored for each resolution.
type MongoResolution struct {
	Timestamp time.Time `bson:"timestamp"`
	Address   string    `bson:"address"`
	Name      string    `bson:"name"`
	SensorID  string    `bson:"sensor_id,omitempty"`
}

// MongoSlurper is a Slurper that archives resolutions in a capped MongoDB
// collection.
type MongoSlurper struct {
	User        string
	Password    string
	Host        string
	Database    string
	Collection  string
	SensorID    string
	ChunkSize   int
	MaxSize     int64
	Clock       clockwork.Clock
	Logger      *log.Entry
	StopChan    chan bool
	StoppedChan chan bool
}

func (s *MongoSlurper) url() string {
	return fmt.Sprintf("mongodb://%s:%s@%s/%s", s.User, s.Password, s.Host, s.Database)
}

func (s *MongoSlurper) makeDocument(h types.Host) MongoResolution {
	return MongoResolution{
		Timestamp: s.Clock.Now(),
		Address:   h.Address,
		Name:      h.Name,
		SensorID:  s.SensorID,
	}
}

func (s *MongoSlurper) prepare(coll *mgo.Collection) {
	s.Logger.WithFields(log.Fields{"maxSize": s.MaxSize}).Info("determining size cap")
	err := coll.Create(&mgo.CollectionInfo{
		Capped:         true,
		DisableIdIndex: true,
		MaxBytes:       int(s.MaxSize),
	})
	if err != nil {
		// usually the collection exists already
		s.Logger.Info(err)
	}
	s.Logger.Info("checking indexes")
	for _, idx := range MongoIndexes {
		if err := coll.EnsureIndex(idx); err != nil {
			s.Logger.WithFields(log.Fields{"idx": idx.Key}).Warn(err)
		}
	}
	s.Logger.Info("index check done")
}

func (s *MongoSlurper) worker(hostchan chan types.Host) {
	defer close(s.StoppedChan)
	s.Logger.Info("worker connecting")
	sess, err := mgo.Dial(s.url())
	if err != nil {
		s.Logger.Errorf("cannot connect to MongoDB: %s", err)
		for {
			select {
			case <-s.StopChan:
				return
			case _, ok := <-hostchan:
				if !ok {
					return
				}
			}
		}
	}
	defer sess.Close()
	s.Logger.Info("connection established")
	coll := sess.DB(s.Database).C(s.Collection)
	s.prepare(coll)

	cnt := 0
	b := coll.Bulk()
	b.Unordered()
	flush := func() {
		if cnt == 0 {
			return
		}
		s.Logger.Debug("flushing bulk")
		if _, err := b.Run(); err != nil {
			s.Logger.Warn(err)
		} else {
			s.Logger.Debug("flushing complete")
		}
		b = coll.Bulk()
		b.Unordered()
		cnt = 0
	}
	for {
		select {
		case <-s.StopChan:
			flush()
			return
		case h, ok := <-hostchan:
			if !ok {
				flush()
				return
			}
			if !h.Resolved || h.Name == "" {
				continue
			}
			doc := s.makeDocument(h)
			b.Insert(&doc)
			cnt++
			if cnt >= s.ChunkSize {
				flush()
			}
		}
	}
}

// MakeMongoSlurper creates a new MongoSlurper instance. maxSize is given in
// megabytes.
func MakeMongoSlurper(host string, database string, user string, password string, chunkSize int, maxSize int64) *MongoSlurper {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	s := &MongoSlurper{
		ChunkSize:  chunkSize,
		Host:       host,
		Database:   database,
		Collection: DefaultTableName,
		User:       user,
		Password:   password,
		MaxSize:    maxSize * 1024 * 1024,
		Clock:      clockwork.NewRealClock(),
		Logger:     log.WithFields(log.Fields{"domain": "slurper", "slurper": "mongo"}),
	}
	s.Logger.WithFields(log.Fields{
		"host":     host,
		"database": database,
	}).Info("preparing for MongoDB connection")
	return s
}

// Run starts a MongoSlurper.
func (s *MongoSlurper) Run(hostchan chan types.Host) {
	s.StopChan = make(chan bool)
	s.StoppedChan = make(chan bool)
	go s.worker(hostchan)
}

// Finish writes out the pending bulk insert and stops the MongoSlurper.
func (s *MongoSlurper) Finish() {
	if s.StopChan == nil {
		return
	}
	close(s.StopChan)
	<-s.StoppedChan
	s.StopChan = nil
}
