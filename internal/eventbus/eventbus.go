// Package eventbus publishes scenario-status transitions to Kafka,
// the supplemented counterpart of the teacher's invalidation consumer:
// pkg/invalidation/kafka/runner.go wires a sarama consumer group onto
// this codebase's spatial-cache invalidation topic; this package wires
// the same sarama dependency onto a producer instead, so an external
// subscriber (a dashboard, an alerting pipeline) can watch ingestion
// progress without polling the status HTTP surface.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// Config mirrors InvalidationConfig's Enabled/Brokers/Topic shape from
// pkg/invalidation/kafka/runner_config.go, narrowed to what a producer
// needs.
type Config struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// FromEnv builds Config from the EVENTS_KAFKA_BROKERS value
// (comma-separated; empty disables the publisher entirely, matching the
// teacher's Driver==none fallback) and a topic name, which defaults to
// "ingestion-scenario-status" when empty. It reads no environment
// variable itself.
func FromEnv(brokersCSV, topic string) Config {
	brokers := split(brokersCSV)
	if topic == "" {
		topic = "ingestion-scenario-status"
	}
	return Config{Enabled: len(brokers) > 0, Brokers: brokers, Topic: topic}
}

// split mirrors pkg/invalidation/kafka/runner_config.go's split helper.
func split(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}

// Event is one scenario-status transition, published as JSON.
type Event struct {
	ScenarioID string  `json:"scenarioId"`
	Status     string  `json:"status"`
	Done       float64 `json:"done"`
	Timestamp  string  `json:"timestamp"`
}

// Publisher publishes Events to one Kafka topic over an async
// producer. A disabled Publisher (Config.Enabled == false) accepts
// Publish calls as no-ops, so callers never need to branch on whether
// eventing is configured.
type Publisher struct {
	log  *slog.Logger
	cfg  Config
	prod sarama.AsyncProducer
	wg   sync.WaitGroup
}

// New builds a Publisher; Start must be called before Publish does
// anything when cfg.Enabled.
func New(cfg Config, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{cfg: cfg, log: log}
}

// Start connects the async producer and begins draining its Errors
// channel into the log. A no-op when the publisher is disabled.
func (p *Publisher) Start(ctx context.Context) error {
	if !p.cfg.Enabled {
		p.log.Info("eventbus publisher disabled", "enabled", p.cfg.Enabled)
		return nil
	}

	scfg := sarama.NewConfig()
	scfg.Version = sarama.V2_5_0_0
	scfg.Producer.Return.Successes = false
	scfg.Producer.Return.Errors = true
	scfg.Producer.RequiredAcks = sarama.WaitForLocal

	prod, err := sarama.NewAsyncProducer(p.cfg.Brokers, scfg)
	if err != nil {
		return fmt.Errorf("eventbus: new producer: %w", err)
	}
	p.prod = prod

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for err := range prod.Errors() {
			p.log.Error("eventbus publish error", "err", err)
		}
	}()

	p.log.Info("eventbus publisher started", "brokers", p.cfg.Brokers, "topic", p.cfg.Topic)
	return nil
}

// Stop closes the producer and waits for the error-draining goroutine
// to finish.
func (p *Publisher) Stop() {
	if !p.cfg.Enabled || p.prod == nil {
		return
	}
	if err := p.prod.Close(); err != nil {
		p.log.Error("eventbus producer close", "err", err)
	}
	p.wg.Wait()
}

// Publish enqueues ev for asynchronous delivery to the configured
// topic, keyed by scenario id so a consumer group can preserve
// per-scenario ordering. A no-op when the publisher is disabled.
func (p *Publisher) Publish(ev Event) {
	if !p.cfg.Enabled || p.prod == nil {
		return
	}
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("eventbus marshal event", "scenario_id", ev.ScenarioID, "err", err)
		return
	}
	p.prod.Input() <- &sarama.ProducerMessage{
		Topic: p.cfg.Topic,
		Key:   sarama.StringEncoder(ev.ScenarioID),
		Value: sarama.ByteEncoder(body),
	}
}
