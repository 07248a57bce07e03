package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"

	"task-service/internal/models"
)

const defaultBufferSize = 1024

// KafkaPublisher sends every event to a topic from a background goroutine.
// Publish never blocks: when the queue is full the event is dropped.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	queue    chan models.TaskEvent

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string, bufferSize int) *KafkaPublisher {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	p := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		queue:    make(chan models.TaskEvent, bufferSize),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *KafkaPublisher) Publish(ctx context.Context, event models.TaskEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}

	select {
	case p.queue <- event:
	default:
		slog.Warn("Kafka queue full, dropping task event", "kind", event.Kind, "userID", event.OwnerID)
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for event := range p.queue {
		p.send(event)
	}
}

func (p *KafkaPublisher) send(event models.TaskEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to encode task event", "error", err)
		return
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.OwnerID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		slog.Error("Failed to publish task event", "topic", p.topic, "kind", event.Kind, "error", err)
		return
	}
	slog.Debug("Task event published", "topic", p.topic, "partition", partition, "offset", offset)
}

// Close flushes queued events and closes the producer
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.producer.Close()
}
