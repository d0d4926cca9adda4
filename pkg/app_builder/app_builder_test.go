package appbuilder

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icr-prover/pkg/logger"
	"icr-prover/pkg/rabbitmq"
	"icr-prover/pkg/rest"
)

type testConfigJson struct {
	Logger logger.LoggerConfigJson `json:"logger"`
	Port   uint16                  `json:"port"`
}

type testConfig struct {
	logger logger.LoggerConfig
	port   uint16
}

func (tcj testConfigJson) ConvertToDomain() testConfig {
	return testConfig{logger: tcj.Logger.ConvertToDomain(), port: tcj.Port}
}

func (tc testConfig) GetLoggerConfig() logger.LoggerConfig       { return tc.logger }
func (tc testConfig) GetRabbitmqConfig() rabbitmq.RabbitmqConfig { return rabbitmq.RabbitmqConfig{} }
func (tc testConfig) GetRestApiPort() uint16                     { return tc.port }

type noopWorker struct{}

func (noopWorker) GetServiceName() string { return "noop" }
func (noopWorker) StartService()          {}

func TestBuilder(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"logger":{"level":"error"},"port":9123}`), 0o600))
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("ICR_BUILDER_TEST=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("ICR_BUILDER_TEST") })

	optionRan := false
	app := New[testConfigJson, testConfig]().
		InitLogger(logger.GlobalLoggerConfig{}).
		LoadEnvironment(envPath, filepath.Join(dir, "missing.env")).
		LoadConfig(configPath).
		WithOption(func(a *AppBuilder[testConfigJson, testConfig]) {
			optionRan = a.Config.GetRestApiPort() == 9123
		}).
		InitRabbitmqConnection().
		InitRabbitmqRegistries().
		AddWorkerServices(noopWorker{}, nil).
		AddGinMiddleware(rest.NewMiddleware("*", rest.CORSMiddleware(""))).
		AddGinRoutes(rest.NewRoute(rest.GET, "v1", "ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})).
		AddSwagger().
		InitGinRouter().
		Build()

	assert.True(t, optionRan)
	assert.Equal(t, "loaded", os.Getenv("ICR_BUILDER_TEST"))
	assert.Equal(t, "0.0.0.0:9123", app.Addr)
	assert.Nil(t, app.Conn)
	assert.Len(t, app.WorkerServices, 1)

	w := httptest.NewRecorder()
	app.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
