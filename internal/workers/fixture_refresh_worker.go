package workers

import (
	"context"

	"github.com/robfig/cron"

	"icr-prover/internal/prover"
	"icr-prover/internal/proving"
	"icr-prover/internal/users"
	"icr-prover/pkg/logger"
	"icr-prover/pkg/rabbitmq"
)

const fixtureRefreshWorkerName = "FixtureRefreshCronWorker"

type BatchProver interface {
	ProveUsers(ctx context.Context, records []users.Record, system prover.ProofSystem) (*proving.BatchReport, error)
}

// FixtureRefreshWorker re-proves every user on a schedule so their fixtures
// follow the BTC price.
type FixtureRefreshWorker struct {
	source   users.Source
	prover   BatchProver
	system   prover.ProofSystem
	schedule string
	cron     *cron.Cron
	logger   *logger.Logger
}

func NewFixtureRefreshWorker(
	source users.Source,
	p BatchProver,
	system prover.ProofSystem,
	schedule string) rabbitmq.WorkerService {
	return &FixtureRefreshWorker{
		source:   source,
		prover:   p,
		system:   system,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.Default(),
	}
}

func (fw *FixtureRefreshWorker) GetServiceName() string {
	return fixtureRefreshWorkerName
}

func (fw *FixtureRefreshWorker) StartService() {
	err := fw.cron.AddFunc(fw.schedule, func() {
		if _, err := fw.Refresh(context.Background()); err != nil {
			fw.logger.Error(err, "Fixture refresh failed")
		}
	})
	if err != nil {
		fw.logger.Errorf(err, "Could not add function to %s", fixtureRefreshWorkerName)
		return
	}

	fw.cron.Start()
}

func (fw *FixtureRefreshWorker) Stop() {
	fw.cron.Stop()
}

// Refresh runs one pass over all users.
func (fw *FixtureRefreshWorker) Refresh(ctx context.Context) (*proving.BatchReport, error) {
	records, err := fw.source.Users(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		fw.logger.Warn("No users found, nothing to refresh")
		return &proving.BatchReport{Failed: map[string]error{}}, nil
	}

	report, err := fw.prover.ProveUsers(ctx, records, fw.system)
	if err != nil {
		return report, err
	}
	fw.logger.Infof("Refreshed %d fixtures, %d failed", len(report.Results), len(report.Failed))
	return report, nil
}
