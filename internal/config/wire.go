package config

import (
	"context"

	"icr-prover/internal/fixture"
	"icr-prover/internal/keystore"
	"icr-prover/internal/pricefeed"
	"icr-prover/internal/prover"
	"icr-prover/internal/proving"
	"icr-prover/internal/repository"
	"icr-prover/internal/users"
	"icr-prover/pkg/logger"
)

// Components are the long lived services built from the config.
type Components struct {
	Orchestrator *prover.Orchestrator
	Service      *proving.Service
	Proofs       repository.ProofRepository
	Users        users.Source
	closers      []func() error
}

// Close releases the key store, database and cache connections.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
}

// Wire builds the prover stack described by pc.
func Wire(ctx context.Context, pc ProverConfig, l *logger.Logger) (*Components, error) {
	c := &Components{}

	opts := []prover.Option{
		prover.WithLogger(l),
		prover.WithMaxConcurrentProofs(pc.ProverConf.MaxConcurrentProofs),
	}
	if pc.ProverConf.KeyStorePath != "" {
		store, err := keystore.Open(pc.ProverConf.KeyStorePath)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, store.Close)
		opts = append(opts, prover.WithKeyStore(store))
	}
	c.Orchestrator = prover.New(opts...)

	feed, err := c.priceFeed(ctx, pc, l)
	if err != nil {
		c.Close()
		return nil, err
	}

	serviceOpts := []proving.Option{
		proving.WithLogger(l),
		proving.WithRequestTimeout(pc.ProverConf.RequestTimeout),
		proving.WithFixtureStore(fixture.NewFileStore(pc.FixturesConf.Directory)),
	}
	if pc.DatabaseConf.Enabled {
		db, err := repository.Connect(pc.DatabaseConf.Driver, pc.DatabaseConf.ConnectionString, l)
		if err != nil {
			c.Close()
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			c.closers = append(c.closers, sqlDB.Close)
		}
		c.Proofs = repository.NewProofRepository(db)
		serviceOpts = append(serviceOpts, proving.WithProofRepository(c.Proofs))
	}
	c.Service = proving.New(c.Orchestrator, feed, serviceOpts...)

	if pc.UsersConf.Mock {
		c.Users = users.NewMockSource()
	} else {
		c.Users = users.NewHTTPSource(pc.UsersConf.URL)
	}

	return c, nil
}

func (c *Components) priceFeed(ctx context.Context, pc ProverConfig, l *logger.Logger) (pricefeed.Feed, error) {
	pf := pc.PriceFeedConf
	if pf.StaticCents != 0 {
		return pricefeed.StaticFeed(pf.StaticCents), nil
	}

	var feed pricefeed.Feed = pricefeed.NewHTTPFeed(pf.URL, pf.Format)
	if pc.RedisConf.Enabled && pf.CacheTTL > 0 {
		client, err := pricefeed.ConnectRedis(ctx, pc.RedisConf.Address, pc.RedisConf.Password, pc.RedisConf.DB)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, client.Close)
		feed = &pricefeed.CachedFeed{
			Feed:   feed,
			Cache:  pricefeed.NewRedisCache(client),
			TTL:    pf.CacheTTL,
			Logger: l,
		}
	}

	return &pricefeed.FallbackFeed{Feed: feed, FallbackCents: pf.FallbackCents, Logger: l}, nil
}
