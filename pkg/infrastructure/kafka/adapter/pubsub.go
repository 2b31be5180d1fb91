package adapter

import (
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
)

type Options struct {
	Brokers       []string
	ConsumerGroup string
	ClientID      string
}

func saramaSubscriberConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V1_0_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = true
	cfg.ClientID = clientID
	return cfg
}

// NewPubSub builds a Kafka publisher and subscriber sharing the default marshaler.
func NewPubSub(opts Options, logger watermill.LoggerAdapter) (*kafka.Publisher, *kafka.Subscriber, error) {
	if len(opts.Brokers) == 0 {
		return nil, nil, fmt.Errorf("kafka: at least one broker is required")
	}
	if opts.ClientID == "" {
		opts.ClientID = "togobus-bff"
	}
	marshaler := kafka.DefaultMarshaler{}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   opts.Brokers,
		Marshaler: marshaler,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               opts.Brokers,
		Unmarshaler:           marshaler,
		ConsumerGroup:         opts.ConsumerGroup,
		OverwriteSaramaConfig: saramaSubscriberConfig(opts.ClientID),
		InitializeTopicDetails: &sarama.TopicDetail{
			NumPartitions:     1,
			ReplicationFactor: 1,
		},
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return nil, nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
	}

	return publisher, subscriber, nil
}

// InitializeTopics creates the topics up front so the first publish is not lost.
func InitializeTopics(subscriber *kafka.Subscriber, topics ...string) error {
	for _, topic := range topics {
		if err := subscriber.SubscribeInitialize(topic); err != nil {
			return fmt.Errorf("failed to initialize kafka topic %q: %w", topic, err)
		}
	}
	return nil
}
