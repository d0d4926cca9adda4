package rabbitmq

import (
	"fmt"
	"sync"

	"icr-prover/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

type ConsumerAlias string

var (
	consumerRegistry   map[ConsumerAlias]IRabbitmqConsumer
	consumerRegistryMu sync.RWMutex
)

func GetConsumer(alias ConsumerAlias) IRabbitmqConsumer {
	consumerRegistryMu.RLock()
	defer consumerRegistryMu.RUnlock()

	if consumerRegistry == nil {
		panic("consumer registry not initialized: call InitializeConsumerRegistry() first")
	}
	return consumerRegistry[alias]
}

func InitializeConsumerRegistry(conn *amqp.Connection, consumerConfig []RabbitmqConsumerConfig) error {
	registry := make(map[ConsumerAlias]IRabbitmqConsumer, len(consumerConfig))

	for _, consumer := range consumerConfig {
		channel, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("open channel for consumer %s: %w", consumer.ConsumerAlias, err)
		}

		if consumer.Declare {
			if _, err := channel.QueueDeclare(consumer.QueueName, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare queue %s: %w", consumer.QueueName, err)
			}
		}

		registry[consumer.ConsumerAlias] = NewConsumer(
			channel,
			consumer.QueueName,
			consumer.ConsumerTag,
		)
	}

	consumerRegistryMu.Lock()
	consumerRegistry = registry
	consumerRegistryMu.Unlock()

	return nil
}

type RabbitmqConsumer struct {
	Channel     *amqp.Channel
	QueueName   string
	ConsumerTag string
}

type IRabbitmqConsumer interface {
	StartConsuming(func(amqp.Delivery)) error
}

func NewConsumer(ch *amqp.Channel, queueName, consumerTag string) *RabbitmqConsumer {
	return &RabbitmqConsumer{
		Channel:     ch,
		QueueName:   queueName,
		ConsumerTag: consumerTag,
	}
}

// StartConsuming blocks until the delivery channel closes. A panic in the
// handler is logged and the consumer keeps going with the next delivery.
func (rc *RabbitmqConsumer) StartConsuming(messageHandler func(amqp.Delivery)) error {
	msgs, err := rc.Channel.Consume(
		rc.QueueName,   // queue
		rc.ConsumerTag, // consumer
		true,           // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		return fmt.Errorf("register consumer %s: %w", rc.ConsumerTag, err)
	}

	consumerLogger := logger.Default()
	consumerLogger.Infof("Waiting for messages in queue: %s", rc.QueueName)

	for d := range msgs {
		consumerLogger.Debugf("[%s] received %d bytes", rc.QueueName, len(d.Body))
		rc.handle(d, messageHandler)
	}

	consumerLogger.Warnf("Delivery channel for %s closed", rc.QueueName)
	return nil
}

func (rc *RabbitmqConsumer) handle(d amqp.Delivery, messageHandler func(amqp.Delivery)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Default().Errorf(
				nil,
				"[%s] Recovered from panic for consumer: %s, %v",
				rc.QueueName,
				rc.ConsumerTag,
				r,
			)
		}
	}()

	messageHandler(d)
}
