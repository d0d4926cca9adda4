package workers

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"icr-prover/internal/collateral"
	"icr-prover/internal/prover"
	"icr-prover/internal/proving"
	dtocommon "icr-prover/pkg/dto_common"
	"icr-prover/pkg/logger"
	"icr-prover/pkg/rabbitmq"
	reasoncodes "icr-prover/pkg/reason_codes"
)

const proveRequestWorkerName = "ProveRequestWorker"

// ProveRequestMessage is one queued proving request. An empty proof_system
// uses the worker default.
type ProveRequestMessage struct {
	EventId     string                    `json:"event_id"`
	ProofSystem string                    `json:"proof_system,omitempty"`
	Request     collateral.ServiceRequest `json:"request"`
}

type RequestProver interface {
	Prove(ctx context.Context, sr collateral.ServiceRequest, system prover.ProofSystem, eventId string) (*proving.Result, error)
	RecordFailure(dto dtocommon.ZkpProofFailureDto)
}

type ProveRequestWorker struct {
	consumer      rabbitmq.IRabbitmqConsumer
	results       rabbitmq.IRabbitmqPublisher
	failures      rabbitmq.IRabbitmqPublisher
	prover        RequestProver
	defaultSystem prover.ProofSystem
	logger        *logger.Logger
}

func NewProveRequestWorker(p RequestProver, defaultSystem prover.ProofSystem) rabbitmq.WorkerService {
	return &ProveRequestWorker{
		consumer:      rabbitmq.GetConsumer(ProveRequestConsumerAlias),
		results:       rabbitmq.GetPublisher(ProofResultPublisherAlias),
		failures:      rabbitmq.GetPublisher(ProofFailurePublisherAlias),
		prover:        p,
		defaultSystem: defaultSystem,
		logger:        logger.Default(),
	}
}

func (w *ProveRequestWorker) GetServiceName() string {
	return proveRequestWorkerName
}

func (w *ProveRequestWorker) StartService() {
	w.logger.Info("Listening for ICR proving requests...")
	err := w.consumer.StartConsuming(func(d amqp.Delivery) {
		w.HandleMessage(context.Background(), d.Body)
	})
	if err != nil {
		w.logger.Errorf(err, "%s stopped", proveRequestWorkerName)
	}
}

// HandleMessage proves one delivery body and publishes either the result or
// the failure.
func (w *ProveRequestWorker) HandleMessage(ctx context.Context, body []byte) {
	var message ProveRequestMessage
	if err := json.Unmarshal(body, &message); err != nil {
		w.logger.Errorf(err, "Failed to unmarshal proving request")
		w.fail(dtocommon.NewZkpProofFailureFactory("", body).CreateErrorDto(err, reasoncodes.ErrUnmarshal))
		return
	}

	system := w.defaultSystem
	if message.ProofSystem != "" {
		parsed, err := prover.ParseProofSystem(message.ProofSystem)
		if err != nil {
			w.fail(proving.NewFailure(message.EventId, body, err))
			return
		}
		system = parsed
	}

	result, err := w.prover.Prove(ctx, message.Request, system, message.EventId)
	if err != nil {
		w.logger.Errorf(err, "Could not prove event %s", message.EventId)
		w.fail(proving.NewFailure(message.EventId, body, err))
		return
	}

	if w.results == nil {
		w.logger.Warnf("No %s configured, dropping result for event %s", ProofResultPublisherAlias, result.EventId)
		return
	}
	if err := w.results.Publish(result.Dto()); err != nil {
		w.logger.Errorf(err, "Could not publish result for event %s", result.EventId)
		return
	}
	w.logger.Infof("Proved event %s for %s, icr %d", result.EventId, result.Request.UserAddress, result.Fixture.Icr)
}

func (w *ProveRequestWorker) fail(dto dtocommon.ZkpProofFailureDto) {
	w.prover.RecordFailure(dto)
	if w.failures == nil {
		return
	}
	if err := w.failures.Publish(dto); err != nil {
		w.logger.Errorf(err, "Could not publish failure for event %s", dto.EventId)
	}
}
