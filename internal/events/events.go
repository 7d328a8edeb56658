// Package events publishes one FetchEvent per dashboard fetch to Kafka.
// Publishing never blocks a request: when the queue is full the event is dropped.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
)

type FetchEvent struct {
	Session     string    `json:"session"`
	Species     string    `json:"species"`
	Field       string    `json:"field"`
	TVK         string    `json:"tvk,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	Outcome     string    `json:"outcome"`
	Fetched     int       `json:"fetched"`
	Geolocated  int       `json:"geolocated"`
	DurationMS  int64     `json:"duration_ms"`
	TS          time.Time `json:"ts"`
}

type Sink interface {
	Publish(ev FetchEvent)
	Close() error
}

// Nop discards events. Used when EVENTS_ENABLED is off.
type Nop struct{}

func (Nop) Publish(FetchEvent) {}
func (Nop) Close() error       { return nil }

type Publisher struct {
	log     *slog.Logger
	topic   string
	events  chan FetchEvent
	prod    sarama.AsyncProducer
	stopped chan struct{}
	errDone chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func NewPublisher(logger *slog.Logger, brokers []string, topic string, queueSize int) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("events: create async producer: %w", err)
	}
	return newPublisher(logger, prod, topic, queueSize), nil
}

func newPublisher(logger *slog.Logger, prod sarama.AsyncProducer, topic string, queueSize int) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Publisher{
		log:     logger.With("component", "events"),
		topic:   topic,
		events:  make(chan FetchEvent, queueSize),
		prod:    prod,
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}
	go p.loop()
	go p.drainErrors()
	return p
}

func (p *Publisher) loop() {
	defer close(p.stopped)
	for ev := range p.events {
		b, err := json.Marshal(ev)
		if err != nil {
			p.log.Warn("marshal event", "err", err)
			continue
		}
		p.prod.Input() <- &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(ev.Session),
			Value: sarama.ByteEncoder(b),
		}
	}
}

func (p *Publisher) drainErrors() {
	defer close(p.errDone)
	for err := range p.prod.Errors() {
		if err != nil {
			p.log.Warn("producer error", "err", err)
		}
	}
}

func (p *Publisher) Publish(ev FetchEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
		p.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	<-p.stopped
	err := p.prod.Close()
	<-p.errDone
	if err != nil {
		return fmt.Errorf("events: close producer: %w", err)
	}
	return nil
}
