// Package workers holds the background services started next to the HTTP
// server: the queue consumer that proves requests and the fixture refresh
// job.
package workers

import "icr-prover/pkg/rabbitmq"

const (
	ProveRequestConsumerAlias  rabbitmq.ConsumerAlias  = "ProveRequestConsumer"
	ProofResultPublisherAlias  rabbitmq.PublisherAlias = "ProofResultPublisher"
	ProofFailurePublisherAlias rabbitmq.PublisherAlias = "ProofFailurePublisher"
	LogsPublisherAlias         rabbitmq.PublisherAlias = "LogsPublisher"
)
