package rabbitmq

import (
	"time"

	"icr-prover/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// WorkerService is a long running background service started by the
// application. StartService may block.
type WorkerService interface {
	GetServiceName() string
	StartService()
}

const maxConnectRetries = 7

func ConnectToRabbitmq(config RabbitmqConfig) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	waitTime := 1 * time.Second

	queueLogger := logger.Default()

	for i := 0; i < maxConnectRetries; i++ {
		conn, err = amqp.Dial(config.URL())
		if err == nil {
			return conn, nil
		}
		queueLogger.Warnf("Attempt %d failed: %v. Retrying in %v...", i+1, err, waitTime)
		time.Sleep(waitTime)
		waitTime *= 2
	}
	return nil, err
}
