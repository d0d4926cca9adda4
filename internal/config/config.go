// Package config holds the prover service configuration read from
// config.json.
package config

import (
	"time"

	"icr-prover/internal/pricefeed"
	"icr-prover/internal/prover"
	"icr-prover/internal/repository"
	"icr-prover/pkg/logger"
	"icr-prover/pkg/rabbitmq"
	"icr-prover/pkg/utilities"
)

const (
	ConfigPathEnv       = "PROVER_CONFIG_PATH"
	RabbitmqUserEnv     = "RABBITMQ_USER"
	RabbitmqPasswordEnv = "RABBITMQ_PASSWORD"
	DefaultConfigPath   = "config.json"
)

type ProverConfigJson struct {
	LoggerConf    logger.LoggerConfigJson    `json:"logger"`
	RabbitmqConf  rabbitmq.RabbimqConfigJson `json:"rabbitmq"`
	RestConf      RestConfigJson             `json:"rest"`
	DatabaseConf  DatabaseConfigJson         `json:"database"`
	ProverConf    ProvingConfigJson          `json:"prover"`
	PriceFeedConf PriceFeedConfigJson        `json:"price_feed"`
	RedisConf     RedisConfigJson            `json:"redis"`
	UsersConf     UsersConfigJson            `json:"users"`
	FixturesConf  FixturesConfigJson         `json:"fixtures"`
}

func (pcj ProverConfigJson) ConvertToDomain() ProverConfig {
	rabbitmqConf := pcj.RabbitmqConf.ConvertToDomain()
	rabbitmqConf.User = utilities.EnvOr(RabbitmqUserEnv, rabbitmqConf.User)
	rabbitmqConf.Password = utilities.EnvOr(RabbitmqPasswordEnv, rabbitmqConf.Password)

	return ProverConfig{
		LoggerConf:    pcj.LoggerConf.ConvertToDomain(),
		RabbitmqConf:  rabbitmqConf,
		RestConf:      pcj.RestConf.ConvertToDomain(),
		DatabaseConf:  pcj.DatabaseConf.ConvertToDomain(),
		ProverConf:    pcj.ProverConf.ConvertToDomain(),
		PriceFeedConf: pcj.PriceFeedConf.ConvertToDomain(),
		RedisConf:     pcj.RedisConf.ConvertToDomain(),
		UsersConf:     pcj.UsersConf.ConvertToDomain(),
		FixturesConf:  pcj.FixturesConf.ConvertToDomain(),
	}
}

type ProverConfig struct {
	LoggerConf    logger.LoggerConfig
	RabbitmqConf  rabbitmq.RabbitmqConfig
	RestConf      RestConfig
	DatabaseConf  DatabaseConfig
	ProverConf    ProvingConfig
	PriceFeedConf PriceFeedConfig
	RedisConf     RedisConfig
	UsersConf     UsersConfig
	FixturesConf  FixturesConfig
}

func (pc ProverConfig) GetLoggerConfig() logger.LoggerConfig {
	return pc.LoggerConf
}

func (pc ProverConfig) GetRabbitmqConfig() rabbitmq.RabbitmqConfig {
	return pc.RabbitmqConf
}

func (pc ProverConfig) GetRestApiPort() uint16 {
	return pc.RestConf.Port
}

// Load reads the config from PROVER_CONFIG_PATH, falling back to path.
func Load(path string) (ProverConfig, error) {
	return utilities.ReadConfig[ProverConfigJson, ProverConfig](utilities.EnvOr(ConfigPathEnv, path))
}

type RestConfigJson struct {
	Port          uint16 `json:"port"`
	AllowedOrigin string `json:"allowed_origin"`
}

type RestConfig struct {
	Port          uint16
	AllowedOrigin string
}

func (rcj RestConfigJson) ConvertToDomain() RestConfig {
	port := rcj.Port
	if port == 0 {
		port = 3000
	}
	return RestConfig{Port: port, AllowedOrigin: rcj.AllowedOrigin}
}

type DatabaseConfigJson struct {
	Enabled          bool   `json:"enabled"`
	Driver           string `json:"driver"`
	ConnectionString string `json:"connection_string"`
}

type DatabaseConfig struct {
	Enabled          bool
	Driver           string
	ConnectionString string
}

func (dcj DatabaseConfigJson) ConvertToDomain() DatabaseConfig {
	driver := dcj.Driver
	if driver == "" {
		driver = repository.DriverSqlite
	}
	conn := dcj.ConnectionString
	if conn == "" && driver == repository.DriverSqlite {
		conn = "proofs.db"
	}
	return DatabaseConfig{Enabled: dcj.Enabled, Driver: driver, ConnectionString: conn}
}

type ProvingConfigJson struct {
	DefaultSystem         string `json:"default_system"`
	MaxConcurrentProofs   int64  `json:"max_concurrent_proofs"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
	KeyStorePath          string `json:"key_store_path"`
	SetupOnStart          bool   `json:"setup_on_start"`
}

type ProvingConfig struct {
	DefaultSystem       prover.ProofSystem
	MaxConcurrentProofs int64
	RequestTimeout      time.Duration
	// KeyStorePath is empty when keys are not persisted.
	KeyStorePath string
	SetupOnStart bool
}

// ConvertToDomain falls back to groth16 for an empty or unknown system.
func (pcj ProvingConfigJson) ConvertToDomain() ProvingConfig {
	system, err := prover.ParseProofSystem(pcj.DefaultSystem)
	if err != nil {
		system = prover.Groth16
	}
	maxProofs := pcj.MaxConcurrentProofs
	if maxProofs <= 0 {
		maxProofs = 2
	}

	return ProvingConfig{
		DefaultSystem:       system,
		MaxConcurrentProofs: maxProofs,
		RequestTimeout:      time.Duration(pcj.RequestTimeoutSeconds) * time.Second,
		KeyStorePath:        pcj.KeyStorePath,
		SetupOnStart:        pcj.SetupOnStart,
	}
}

type PriceFeedConfigJson struct {
	URL             string `json:"url"`
	Format          string `json:"format"`
	FallbackCents   uint32 `json:"fallback_cents"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds"`
	// StaticCents skips the network and always uses this price.
	StaticCents uint32 `json:"static_cents"`
}

type PriceFeedConfig struct {
	URL           string
	Format        pricefeed.Format
	FallbackCents uint32
	CacheTTL      time.Duration
	StaticCents   uint32
}

func (pfcj PriceFeedConfigJson) ConvertToDomain() PriceFeedConfig {
	format := pricefeed.Format(pfcj.Format)
	if format == "" {
		format = pricefeed.FormatCoinGecko
	}
	fallback := pfcj.FallbackCents
	if fallback == 0 {
		fallback = pricefeed.DefaultFallbackCents
	}
	url := pfcj.URL
	if url == "" {
		url = "https://api.coingecko.com/api/v3/simple/price?ids=bitcoin&vs_currencies=usd"
	}

	return PriceFeedConfig{
		URL:           url,
		Format:        format,
		FallbackCents: fallback,
		CacheTTL:      time.Duration(pfcj.CacheTTLSeconds) * time.Second,
		StaticCents:   pfcj.StaticCents,
	}
}

type RedisConfigJson struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

func (rcj RedisConfigJson) ConvertToDomain() RedisConfig {
	address := rcj.Address
	if address == "" {
		address = "localhost:6379"
	}
	return RedisConfig{Enabled: rcj.Enabled, Address: address, Password: rcj.Password, DB: rcj.DB}
}

type UsersConfigJson struct {
	URL  string `json:"url"`
	Mock bool   `json:"mock"`
}

type UsersConfig struct {
	URL  string
	Mock bool
}

// ConvertToDomain uses the mock source when no URL is configured.
func (ucj UsersConfigJson) ConvertToDomain() UsersConfig {
	return UsersConfig{URL: ucj.URL, Mock: ucj.Mock || ucj.URL == ""}
}

type FixturesConfigJson struct {
	Directory       string `json:"directory"`
	RefreshSchedule string `json:"refresh_schedule"`
}

type FixturesConfig struct {
	Directory string
	// RefreshSchedule is a cron spec; empty disables the refresh worker.
	RefreshSchedule string
}

func (fcj FixturesConfigJson) ConvertToDomain() FixturesConfig {
	dir := fcj.Directory
	if dir == "" {
		dir = "fixtures"
	}
	return FixturesConfig{Directory: dir, RefreshSchedule: fcj.RefreshSchedule}
}
