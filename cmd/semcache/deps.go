package main

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/semcache/pkg/cache"
	cachestore "github.com/pario-ai/semcache/pkg/cache/sqlite"
	"github.com/pario-ai/semcache/pkg/config"
	"github.com/pario-ai/semcache/pkg/embedding"
	"github.com/pario-ai/semcache/pkg/logging"
	"github.com/pario-ai/semcache/pkg/metrics"
)

const defaultConfigPath = "semcache.yaml"

// setup loads the config and builds the logger every command starts from.
func setup(configPath string) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// openCache builds the semantic cache over the configured record store and
// embedding provider. The returned close func releases the store.
func openCache(cfg *config.Config, log logrus.FieldLogger, m *metrics.Metrics) (*cache.Cache, func() error, error) {
	emb, err := embedding.New(cfg.Embedding, cfg.Cache.Dimensions)
	if err != nil {
		return nil, nil, fmt.Errorf("init embedding provider: %w", err)
	}
	if emb.Dimensions() != cfg.Cache.Dimensions {
		return nil, nil, errors.New("embedding provider dimensions do not match cache.dimensions")
	}

	store, err := cachestore.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("init cache store: %w", err)
	}
	return cache.New(store, emb, log, m), store.Close, nil
}
