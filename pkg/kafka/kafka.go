package kafka

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"voyage-rewards/pkg/config"
)

var Module = fx.Module("kafka",
	fx.Provide(NewPublisher),
)

// Publisher delivers event payloads to the analytics topic.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

type producer struct {
	p     *kafka.Producer
	topic string
}

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, key, value []byte) error { return nil }

func NewPublisher(lc fx.Lifecycle, cfg *config.Config) (Publisher, error) {
	if cfg.Kafka.Addrs == "" {
		zap.L().Info("kafka not configured, events will not be published")
		return nopPublisher{}, nil
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Kafka.Addrs,
		"acks":              "all",
	})
	if err != nil {
		return nil, err
	}

	go func() {
		for e := range p.Events() {
			if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				zap.L().Error("kafka delivery failed",
					zap.Error(m.TopicPartition.Error))
			}
		}
	}()

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			p.Flush(5000)
			p.Close()
			return nil
		},
	})

	return &producer{p: p, topic: cfg.Kafka.Topic}, nil
}

func (pr *producer) Publish(ctx context.Context, key, value []byte) error {
	topic := pr.topic
	return pr.p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          value,
	}, nil)
}
