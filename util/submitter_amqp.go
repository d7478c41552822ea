package util

// DCSO HOSTNAMER
// Copyright (c) 2017, 2018, 2021, DCSO GmbH

import (
	"bytes"
	"compress/gzip"
	"sync"
	"time"

	"github.com/NeowayLabs/wabbit"
	"github.com/NeowayLabs/wabbit/amqp"
	"github.com/jonboulle/clockwork"
	origamqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultBacklogSize is the number of messages held back while the
	// broker is unreachable.
	DefaultBacklogSize = 1000
	amqpMinReconnDelay = 2 * time.Second
	amqpMaxReconnDelay = 1 * time.Minute
)

// Reconnector dials the broker at the given URL. It also returns the type of
// exchange to declare, since test brokers only know some of them.
type Reconnector func(url string) (wabbit.Conn, string, error)

// DefaultReconnector dials a real RabbitMQ server and declares fanout
// exchanges.
func DefaultReconnector(url string) (wabbit.Conn, string, error) {
	conn, err := amqp.Dial(url)
	return conn, "fanout", err
}

type publication struct {
	key         string
	contentType string
	encoding    string
	headers     origamqp.Table
	body        []byte
}

// AMQPSubmitter is a StatsSubmitter publishing to a RabbitMQ exchange. If the
// connection is lost, a supervisor goroutine redials with increasing delays
// while messages are kept in a bounded backlog, which is published in order
// once the connection is back.
type AMQPSubmitter struct {
	sync.Mutex
	URL         string
	Target      string
	SensorID    string
	Verbose     bool
	Compress    bool
	BacklogSize int
	Reconnector Reconnector
	Clock       clockwork.Clock
	Logger      *log.Entry
	conn        wabbit.Conn
	channel     wabbit.Channel
	closeChan   chan wabbit.Error
	backlog     []publication
	dropped     uint64
	failed      uint64
	stopChan    chan bool
	stoppedChan chan bool
}

// MakeAMQPSubmitterWithReconnector creates a new submitter connected to a
// RabbitMQ server at the given URL, using reconnector to dial.
func MakeAMQPSubmitterWithReconnector(url string, target string, verbose bool,
	reconnector Reconnector) (*AMQPSubmitter, error) {
	sensorID, err := GetSensorID()
	if err != nil {
		return nil, err
	}
	s := &AMQPSubmitter{
		URL:         url,
		Target:      target,
		SensorID:    sensorID,
		Verbose:     verbose,
		BacklogSize: DefaultBacklogSize,
		Reconnector: reconnector,
		Clock:       clockwork.NewRealClock(),
		Logger: log.WithFields(log.Fields{
			"domain":    "submitter",
			"submitter": "AMQP",
			"target":    target,
		}),
		stopChan:    make(chan bool),
		stoppedChan: make(chan bool),
	}
	if err = s.connect(); err != nil {
		return nil, err
	}
	go s.supervise()
	return s, nil
}

// MakeAMQPSubmitter creates a new submitter connected to a RabbitMQ server
// at the given URL.
func MakeAMQPSubmitter(url string, target string, verbose bool) (*AMQPSubmitter, error) {
	return MakeAMQPSubmitterWithReconnector(url, target, verbose, DefaultReconnector)
}

// connect dials the broker, declares the target exchange and publishes the
// backlog before accepting new messages.
func (s *AMQPSubmitter) connect() error {
	conn, exchangeType, err := s.Reconnector(s.URL)
	if err != nil {
		return err
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	err = channel.ExchangeDeclare(s.Target, exchangeType, wabbit.Option{
		"durable":    true,
		"autoDelete": false,
		"internal":   false,
		"noWait":     false,
	})
	if err != nil {
		conn.Close()
		return err
	}
	closeChan := make(chan wabbit.Error, 1)
	conn.NotifyClose(closeChan)

	s.Lock()
	defer s.Unlock()
	s.conn = conn
	s.channel = channel
	s.closeChan = closeChan
	if len(s.backlog) > 0 {
		s.Logger.Infof("publishing %d held back messages", len(s.backlog))
		for _, p := range s.backlog {
			s.send(p)
		}
		s.backlog = nil
	}
	s.Logger.Debugf("connected to %s", s.URL)
	return nil
}

// disconnected forgets the current connection. Messages submitted from now on
// go to the backlog.
func (s *AMQPSubmitter) disconnected() {
	s.Lock()
	s.conn = nil
	s.channel = nil
	s.Unlock()
}

func (s *AMQPSubmitter) redial() bool {
	delay := amqpMinReconnDelay
	for {
		select {
		case <-s.stopChan:
			return false
		case <-s.Clock.After(delay):
		}
		err := s.connect()
		if err == nil {
			s.Logger.Infof("reestablished connection to %s", s.URL)
			return true
		}
		s.Logger.Warnf("RabbitMQ error: %s", err)
		if delay *= 2; delay > amqpMaxReconnDelay {
			delay = amqpMaxReconnDelay
		}
	}
}

func (s *AMQPSubmitter) supervise() {
	defer close(s.stoppedChan)
	for {
		s.Lock()
		closeChan := s.closeChan
		s.Unlock()
		select {
		case <-s.stopChan:
			return
		case rabbitErr := <-closeChan:
			if rabbitErr == nil {
				// closed by us
				return
			}
			s.Logger.Warnf("RabbitMQ connection failed: %s", rabbitErr.Reason())
			s.disconnected()
			if !s.redial() {
				return
			}
		}
	}
}

func (s *AMQPSubmitter) encode(rawData []byte) ([]byte, string) {
	if !s.Compress {
		return rawData, ""
	}
	var b bytes.Buffer
	w := gzip.NewWriter(&b)
	if _, err := w.Write(rawData); err != nil {
		s.Logger.Warnf("compression failed, sending uncompressed: %s", err)
		return rawData, ""
	}
	if err := w.Close(); err != nil {
		s.Logger.Warnf("compression failed, sending uncompressed: %s", err)
		return rawData, ""
	}
	return b.Bytes(), "gzip"
}

func (s *AMQPSubmitter) makePublication(rawData []byte, key string, contentType string,
	myHeaders map[string]string) publication {
	body, encoding := s.encode(rawData)
	headers := origamqp.Table{
		"sensor_id":  s.SensorID,
		"compressed": "false",
		"tool":       ToolName,
	}
	if encoding != "" {
		headers["compressed"] = "true"
	}
	for k, v := range myHeaders {
		headers[k] = v
	}
	return publication{
		key:         key,
		contentType: contentType,
		encoding:    encoding,
		headers:     headers,
		body:        body,
	}
}

// send publishes p. The caller must hold the lock and have a channel.
func (s *AMQPSubmitter) send(p publication) {
	err := s.channel.Publish(s.Target, p.key, p.body, wabbit.Option{
		"contentType":     p.contentType,
		"contentEncoding": p.encoding,
		"headers":         p.headers,
	})
	if err != nil {
		s.failed++
		s.Logger.WithField("key", p.key).Warn(err)
		return
	}
	if s.Verbose {
		s.Logger.WithFields(log.Fields{
			"key":         p.key,
			"payloadsize": len(p.body),
		}).Debug("submission successful")
	}
}

// UseCompression enables gzip compression of submitted payloads.
func (s *AMQPSubmitter) UseCompression() {
	s.Lock()
	s.Compress = true
	s.Unlock()
}

// Submit publishes rawData using the given routing key.
func (s *AMQPSubmitter) Submit(rawData []byte, key string, contentType string) {
	s.SubmitWithHeaders(rawData, key, contentType, nil)
}

// SubmitWithHeaders publishes rawData using the given routing key, adding
// myHeaders to the default sensor_id, compressed and tool headers. While
// disconnected, the message is held back; if the backlog is full, it is
// dropped.
func (s *AMQPSubmitter) SubmitWithHeaders(rawData []byte, key string, contentType string, myHeaders map[string]string) {
	s.Lock()
	defer s.Unlock()
	p := s.makePublication(rawData, key, contentType, myHeaders)
	if s.channel != nil {
		s.send(p)
		return
	}
	if len(s.backlog) >= s.BacklogSize {
		s.dropped++
		return
	}
	s.backlog = append(s.backlog, p)
}

// Backlog returns the number of messages waiting for a connection.
func (s *AMQPSubmitter) Backlog() int {
	s.Lock()
	defer s.Unlock()
	return len(s.backlog)
}

// Dropped returns the number of messages discarded because the backlog was
// full.
func (s *AMQPSubmitter) Dropped() uint64 {
	s.Lock()
	defer s.Unlock()
	return s.dropped
}

// Failed returns the number of messages the broker did not accept.
func (s *AMQPSubmitter) Failed() uint64 {
	s.Lock()
	defer s.Unlock()
	return s.failed
}

// Finish stops reconnecting and closes the AMQP connection. Messages still in
// the backlog are discarded.
func (s *AMQPSubmitter) Finish() {
	close(s.stopChan)
	<-s.stoppedChan
	s.Lock()
	defer s.Unlock()
	if n := len(s.backlog); n > 0 {
		s.Logger.Warnf("discarding %d held back messages", n)
		s.backlog = nil
	}
	if s.channel != nil {
		s.channel.Close()
		s.channel = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.Verbose {
		s.Logger.Info("connection closed")
	}
}
