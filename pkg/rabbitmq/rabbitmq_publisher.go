package rabbitmq

import (
	"fmt"
	"sync"
	"time"

	"icr-prover/pkg/utilities"

	amqp "github.com/rabbitmq/amqp091-go"
)

type PublisherAlias string

var (
	publisherRegistry   map[PublisherAlias]IRabbitmqPublisher
	publisherRegistryMu sync.RWMutex
)

// GetPublisher returns nil for an alias missing from the config.
func GetPublisher(alias PublisherAlias) IRabbitmqPublisher {
	publisherRegistryMu.RLock()
	defer publisherRegistryMu.RUnlock()
	return publisherRegistry[alias]
}

func InitializePublisherRegistry(conn *amqp.Connection, publisherConfig []RabbitmqPublishersConfig) error {
	registry := make(map[PublisherAlias]IRabbitmqPublisher, len(publisherConfig))

	for _, publisher := range publisherConfig {
		channel, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("open channel for publisher %s: %w", publisher.PublisherAlias, err)
		}

		registry[publisher.PublisherAlias] = NewPublisher(
			channel,
			publisher.Exchange,
			publisher.RoutingKey,
		)
	}

	publisherRegistryMu.Lock()
	publisherRegistry = registry
	publisherRegistryMu.Unlock()

	return nil
}

type RabbitmqPublisher struct {
	Channel    *amqp.Channel
	Exchange   string
	RoutingKey string

	// amqp channels are not safe for concurrent publishing
	mu sync.Mutex
}

func NewPublisher(ch *amqp.Channel, exchange, routingKey string) *RabbitmqPublisher {
	return &RabbitmqPublisher{
		Channel:    ch,
		Exchange:   exchange,
		RoutingKey: routingKey,
	}
}

type IRabbitmqPublisher interface {
	Publish(body utilities.Serializable) error
}

func (rp *RabbitmqPublisher) Publish(body utilities.Serializable) error {
	json, err := body.Serialize()
	if err != nil {
		return err
	}

	rp.mu.Lock()
	defer rp.mu.Unlock()

	return rp.Channel.Publish(
		rp.Exchange,
		rp.RoutingKey,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         json,
			Timestamp:    time.Now(),
			DeliveryMode: amqp.Persistent,
		},
	)
}
