package main

import (
	"context"
	"fmt"

	"icr-prover/docs"
	"icr-prover/internal/config"
	"icr-prover/internal/handlers"
	"icr-prover/internal/prover"
	"icr-prover/internal/workers"
	appbuilder "icr-prover/pkg/app_builder"
	"icr-prover/pkg/logger"
	"icr-prover/pkg/rabbitmq"
	"icr-prover/pkg/rest"
	"icr-prover/pkg/utilities"
)

const serviceName = "icr-prover"

type builder = appbuilder.AppBuilder[config.ProverConfigJson, config.ProverConfig]

// @title           ICR Prover API
// @version         1.0
// @description     Zero-knowledge proofs of a borrower's ICR and collateral value
// @BasePath /
func main() {
	var components *config.Components
	var handler *handlers.Handler

	app := appbuilder.New[config.ProverConfigJson, config.ProverConfig]().
		InitLogger(logger.GlobalLoggerConfig{
			Args: []logger.LoggerArg{{Key: "service", Value: serviceName}},
		}).
		LoadEnvironment().
		LoadConfig(utilities.EnvOr(config.ConfigPathEnv, config.DefaultConfigPath)).
		WithOption(func(a *builder) {
			docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", a.Config.GetRestApiPort())

			// ----- PROVER STACK -----
			var err error
			components, err = config.Wire(context.Background(), a.Config, a.Logger)
			if err != nil {
				a.Logger.Panicf(err, "Could not build prover components")
			}
			a.OnShutdown(components.Close)
			a.OnShutdown(components.Orchestrator.Wait)

			handler = handlers.NewHandler(
				components.Service,
				components.Proofs,
				a.Config.ProverConf.DefaultSystem,
				a.Logger)

			if a.Config.ProverConf.SetupOnStart {
				go setupAll(components.Orchestrator, a.Logger)
			}
		}).

		// ----- RABBITMQ -----
		InitRabbitmqConnection().
		InitRabbitmqRegistries().
		WithOption(func(a *builder) {
			if a.Conn == nil {
				return
			}

			// ----- RABBITMQ LOGGING SINK -----
			if logPublisher := rabbitmq.GetPublisher(workers.LogsPublisherAlias); logPublisher != nil {
				logSink := rabbitmq.CreateRabbitmqLoggerSink(serviceName, logPublisher)
				logger.AddSinkToLoggerInstance(a.Logger, logSink)
			}

			a.AddWorkerServices(workers.NewProveRequestWorker(
				components.Service,
				a.Config.ProverConf.DefaultSystem))
		}).

		// ----- WORKERS -----
		WithOption(func(a *builder) {
			schedule := a.Config.FixturesConf.RefreshSchedule
			if schedule == "" {
				return
			}
			a.AddWorkerServices(workers.NewFixtureRefreshWorker(
				components.Users,
				components.Service,
				a.Config.ProverConf.DefaultSystem,
				schedule))
		})

	app.
		AddGinMiddleware(
			rest.NewMiddleware("*", rest.CORSMiddleware(app.Config.RestConf.AllowedOrigin)),
		).
		AddGinRoutes(handler.Routes()...).
		AddSwagger().
		InitGinRouter().
		Build().
		Start()
}

// setupAll warms the key cache so the first request does not pay for it.
func setupAll(o *prover.Orchestrator, l *logger.Logger) {
	for _, system := range prover.ProofSystems {
		pc, err := o.Setup(context.Background(), system)
		if err != nil {
			l.Errorf(err, "Setup for %s failed", system)
			continue
		}
		l.Infof("%s ready, vkey %s", system, pc.VerifyingKeyID())
	}
}
