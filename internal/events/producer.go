// Package events mirrors task mutation events to Kafka.
package events

import (
	"github.com/IBM/sarama"

	"task-service/internal/config"
)

func newProducerConfig(cfg *config.KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 5
	sc.Producer.Return.Successes = true
	sc.Producer.Compression = sarama.CompressionSnappy
	// Keyed by owner so one user's events stay ordered within a partition
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	sc.Producer.MaxMessageBytes = 1000000
	sc.Version = sarama.V2_0_0_0
	sc.ClientID = cfg.ClientID
	return sc
}

func InitKafkaProducer(cfg *config.KafkaConfig) (sarama.SyncProducer, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, newProducerConfig(cfg))
	if err != nil {
		return nil, err
	}

	return producer, nil
}
