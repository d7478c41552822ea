package util

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

import (
	"fmt"
	"sync/atomic"

	"github.com/NeowayLabs/wabbit"
	"github.com/NeowayLabs/wabbit/amqptest"
	log "github.com/sirupsen/logrus"
)

// Consumer receives messages from a fake AMQP server, passing each delivery
// to a callback. It is meant to check what submitters have sent.
type Consumer struct {
	conn     wabbit.Conn
	channel  wabbit.Channel
	tag      string
	done     chan error
	received uint64
	Logger   *log.Entry
	Callback func(wabbit.Delivery)
}

// NewConsumer connects to amqpURI, binds queueName to exchange using key and
// starts consuming. The callback is called for each delivery, which is
// acknowledged afterwards.
func NewConsumer(amqpURI, exchange, exchangeType, queueName, key, ctag string, callback func(wabbit.Delivery)) (*Consumer, error) {
	var err error
	c := &Consumer{
		tag:      ctag,
		done:     make(chan error),
		Callback: callback,
		Logger: log.WithFields(log.Fields{
			"domain":   "consumer",
			"exchange": exchange,
			"queue":    queueName,
		}),
	}

	c.conn, err = amqptest.Dial(amqpURI)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", amqpURI, err)
	}
	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return nil, fmt.Errorf("channel: %w", err)
	}
	deliveries, err := c.bind(exchange, exchangeType, queueName, key)
	if err != nil {
		c.channel.Close()
		c.conn.Close()
		return nil, err
	}
	go c.handle(deliveries)
	return c, nil
}

func (c *Consumer) bind(exchange, exchangeType, queueName, key string) (<-chan wabbit.Delivery, error) {
	err := c.channel.ExchangeDeclare(exchange, exchangeType, wabbit.Option{
		"durable":  true,
		"delete":   false,
		"internal": false,
		"noWait":   false,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange declare: %w", err)
	}
	queue, err := c.channel.QueueDeclare(queueName, wabbit.Option{
		"durable":   true,
		"delete":    false,
		"exclusive": false,
		"noWait":    false,
	})
	if err != nil {
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	if err = c.channel.QueueBind(queue.Name(), key, exchange, wabbit.Option{
		"noWait": false,
	}); err != nil {
		return nil, fmt.Errorf("queue bind: %w", err)
	}
	c.Logger.WithField("key", key).Debug("queue bound")
	deliveries, err := c.channel.Consume(queue.Name(), c.tag, wabbit.Option{
		"exclusive": false,
		"noLocal":   false,
		"noWait":    false,
	})
	if err != nil {
		return nil, fmt.Errorf("queue consume: %w", err)
	}
	return deliveries, nil
}

func (c *Consumer) handle(deliveries <-chan wabbit.Delivery) {
	for d := range deliveries {
		c.Logger.Debugf("got %dB delivery [%v]", len(d.Body()), d.DeliveryTag())
		if c.Callback != nil {
			c.Callback(d)
		}
		atomic.AddUint64(&c.received, 1)
		d.Ack(false)
	}
	c.done <- nil
}

// Received returns the number of deliveries handled so far.
func (c *Consumer) Received() uint64 {
	return atomic.LoadUint64(&c.received)
}

// Shutdown closes the channel and connection and waits for all deliveries
// to be handled.
func (c *Consumer) Shutdown() error {
	// closes the deliveries channel
	if err := c.channel.Close(); err != nil {
		return fmt.Errorf("channel close: %w", err)
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("connection close: %w", err)
	}
	return <-c.done
}
