package appbuilder

import (
	"fmt"
	"os"

	"icr-prover/pkg/logger"
	"icr-prover/pkg/rabbitmq"
	"icr-prover/pkg/rest"
	"icr-prover/pkg/utilities"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type AppConfig interface {
	GetLoggerConfig() logger.LoggerConfig
	GetRabbitmqConfig() rabbitmq.RabbitmqConfig
	GetRestApiPort() uint16
}

// AppBuilder assembles the service step by step. Any failing step panics,
// so the process never starts half configured.
type AppBuilder[T utilities.JsonConfigObj[U], U AppConfig] struct {
	Logger *logger.Logger
	Config U
	Conn   *amqp.Connection

	workerServices []rabbitmq.WorkerService
	routes         []rest.Route
	middlewares    []rest.Middleware
	shutdownHooks  []func()
	engine         *gin.Engine
}

func New[T utilities.JsonConfigObj[U], U AppConfig]() *AppBuilder[T, U] {
	return &AppBuilder[T, U]{}
}

func (a *AppBuilder[T, U]) InitLogger(loggerArgs logger.GlobalLoggerConfig) *AppBuilder[T, U] {
	logger.InitDefaultLogger(loggerArgs)
	a.Logger = logger.Default()
	a.Logger.Info("Logger initialized")

	return a
}

// LoadEnvironment reads .env files into the process environment. Missing
// files are not an error.
func (a *AppBuilder[T, U]) LoadEnvironment(files ...string) *AppBuilder[T, U] {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			a.Logger.Debugf("No environment file at %s", f)
			continue
		}
		if err := godotenv.Load(f); err != nil {
			a.Logger.Panicf(err, "Failed to load environment from %s", f)
		}
		a.Logger.Infof("Loaded environment from %s", f)
	}

	return a
}

func (a *AppBuilder[T, U]) LoadConfig(filePath string) *AppBuilder[T, U] {
	a.Logger.Infof("Preparing to load config from %s ...", filePath)
	jsonConfig, err := utilities.ReadConfig[T, U](filePath)
	if err != nil {
		a.Logger.Panicf(err, "Failed to load config")
	}

	a.Config = jsonConfig
	logger.ApplyConfig(a.Config.GetLoggerConfig())
	a.Logger.Info("Config successfully loaded.")
	return a
}

func (a *AppBuilder[T, U]) WithOption(option func(*AppBuilder[T, U])) *AppBuilder[T, U] {
	option(a)
	return a
}

// OnShutdown registers fn to run after the HTTP server stopped, in reverse
// registration order.
func (a *AppBuilder[T, U]) OnShutdown(fn func()) *AppBuilder[T, U] {
	a.shutdownHooks = append(a.shutdownHooks, fn)
	return a
}

func (a *AppBuilder[T, U]) rabbitmqEnabled() bool {
	return a.Config.GetRabbitmqConfig().Enabled
}

func (a *AppBuilder[T, U]) InitRabbitmqConnection() *AppBuilder[T, U] {
	if !a.rabbitmqEnabled() {
		a.Logger.Info("Rabbitmq disabled, skipping connection")
		return a
	}

	a.Logger.Info("Preparing to connect to Rabbitmq server...")
	conn, err := rabbitmq.ConnectToRabbitmq(a.Config.GetRabbitmqConfig())
	if err != nil {
		a.Logger.Panicf(err, "Could not connect to Rabbitmq")
	}

	a.Conn = conn
	a.Logger.Info("Connection with Rabbitmq server established")

	return a
}

func (a *AppBuilder[T, U]) InitRabbitmqRegistries() *AppBuilder[T, U] {
	if a.Conn == nil {
		return a
	}

	a.Logger.Info("Initializing Rabbitmq registries from config")
	rabbitmqConf := a.Config.GetRabbitmqConfig()

	if err := rabbitmq.InitializeConsumerRegistry(a.Conn, rabbitmqConf.ConsumersConfig); err != nil {
		a.Logger.Panicf(err, "Could not initialize consumers")
	}
	if err := rabbitmq.InitializePublisherRegistry(a.Conn, rabbitmqConf.PublishersConfig); err != nil {
		a.Logger.Panicf(err, "Could not initialize publishers")
	}
	a.Logger.Info("Successfully initialized Rabbitmq registries from config")

	return a
}

// AddWorkerServices ignores nil services so optional workers can be passed
// inline.
func (a *AppBuilder[T, U]) AddWorkerServices(workerServices ...rabbitmq.WorkerService) *AppBuilder[T, U] {
	a.Logger.Info("Adding Worker Services to Application...")
	for _, ws := range workerServices {
		if ws != nil {
			a.workerServices = append(a.workerServices, ws)
		}
	}
	return a
}

func (a *AppBuilder[T, U]) AddGinMiddleware(middlewares ...rest.Middleware) *AppBuilder[T, U] {
	a.middlewares = append(a.middlewares, middlewares...)
	return a
}

func (a *AppBuilder[T, U]) AddGinRoutes(routes ...rest.Route) *AppBuilder[T, U] {
	a.Logger.Info("Adding Gin REST API routes to Application...")
	a.routes = append(a.routes, routes...)
	return a
}

func (a *AppBuilder[T, U]) AddSwagger() *AppBuilder[T, U] {
	a.Logger.Info("Adding SwaggerUI...")
	a.routes = append(a.routes, rest.NewRoute(
		rest.GET,
		"swagger",
		"*any",
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	))

	return a
}

func (a *AppBuilder[T, U]) InitGinRouter() *AppBuilder[T, U] {
	a.Logger.Info("Initializing Gin Router...")
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(a.Logger))

	a.Logger.Info("Registering REST API routes...")
	rest.Register(router, a.routes, a.middlewares)

	a.engine = router
	a.Logger.Infof("Successfully registered %d REST API routes.", len(a.routes))
	return a
}

func (a *AppBuilder[T, U]) Build() *Application {
	return &Application{
		Logger:         a.Logger,
		Addr:           fmt.Sprintf("0.0.0.0:%d", a.Config.GetRestApiPort()),
		Conn:           a.Conn,
		WorkerServices: a.workerServices,
		Engine:         a.engine,
		ShutdownHooks:  a.shutdownHooks,
	}
}
