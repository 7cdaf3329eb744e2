package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/takutakahashi/pushnotify/internal/domain/entities"
	"github.com/takutakahashi/pushnotify/internal/usecases/ports/services"
)

// KafkaSettings configures the event stream producer
type KafkaSettings struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// kafkaEventMessage is the wire form of a tracked event
type kafkaEventMessage struct {
	ID           string                 `json:"id"`
	ProjectID    string                 `json:"projectId"`
	SubscriberID string                 `json:"subscriberId,omitempty"`
	EventName    string                 `json:"eventName"`
	EventData    map[string]interface{} `json:"eventData,omitempty"`
	URL          string                 `json:"url,omitempty"`
	Timestamp    string                 `json:"timestamp"`
}

// KafkaEventPublisher streams tracked events to a Kafka topic, keyed by project
type KafkaEventPublisher struct {
	producer  sarama.AsyncProducer
	topic     string
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSaramaProducer builds an async producer acknowledged by all replicas
func NewSaramaProducer(settings KafkaSettings) (sarama.AsyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.ClientID = settings.ClientID
	if config.ClientID == "" {
		config.ClientID = "pushnotify-events"
	}

	producer, err := sarama.NewAsyncProducer(settings.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return producer, nil
}

// NewKafkaEventPublisher wraps producer and starts its delivery report handlers
func NewKafkaEventPublisher(producer sarama.AsyncProducer, topic string) (*KafkaEventPublisher, error) {
	if topic == "" {
		return nil, fmt.Errorf("kafka topic must not be empty")
	}
	p := &KafkaEventPublisher{producer: producer, topic: topic}
	p.wg.Add(2)
	go p.handleSuccesses()
	go p.handleErrors()
	return p, nil
}

func (p *KafkaEventPublisher) handleSuccesses() {
	defer p.wg.Done()
	for msg := range p.producer.Successes() {
		log.Printf("[EVENTS] Delivered event to %s partition %d offset %d", msg.Topic, msg.Partition, msg.Offset)
	}
}

func (p *KafkaEventPublisher) handleErrors() {
	defer p.wg.Done()
	for err := range p.producer.Errors() {
		log.Printf("[EVENTS] Failed to deliver event to %s: %v", err.Msg.Topic, err.Err)
	}
}

// Publish queues event for delivery. Delivery failures are reported asynchronously.
func (p *KafkaEventPublisher) Publish(ctx context.Context, event *entities.Event) error {
	data, err := json.Marshal(kafkaEventMessage{
		ID:           event.ID(),
		ProjectID:    event.ProjectID(),
		SubscriberID: event.SubscriberID(),
		EventName:    event.Name(),
		EventData:    event.Data(),
		URL:          event.URL(),
		Timestamp:    event.Timestamp().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(event.ProjectID()),
		Value:     sarama.ByteEncoder(data),
		Timestamp: event.Timestamp(),
	}

	select {
	case p.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes pending messages and waits for the report handlers
func (p *KafkaEventPublisher) Close() {
	p.closeOnce.Do(func() {
		log.Printf("[EVENTS] Closing Kafka producer")
		p.producer.AsyncClose()
		p.wg.Wait()
	})
}

// NoopEventPublisher drops events. It is used when no broker is configured.
type NoopEventPublisher struct{}

// Publish does nothing
func (NoopEventPublisher) Publish(ctx context.Context, event *entities.Event) error {
	return nil
}

var (
	_ services.EventPublisher = (*KafkaEventPublisher)(nil)
	_ services.EventPublisher = NoopEventPublisher{}
)
