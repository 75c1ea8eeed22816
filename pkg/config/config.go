// Package config loads the configuration of every sqlpipe component from
// environment variables.
//
// Variables carry the SQLPIPE_ prefix. A double underscore separates nesting
// levels and a single underscore stays part of the key, so
//
//	SQLPIPE_DATABASE__POSTGRES__CONNECTION__HOST=db
//	SQLPIPE_PIPELINE__CLEANUP_TIMEOUT=10s
//
// set database.postgres.connection.host and pipeline.cleanup_timeout. A .env
// file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"strings"

	"github.com/Aleph-Alpha/sqlpipe/pkg/database"
	"github.com/Aleph-Alpha/sqlpipe/pkg/logger"
	"github.com/Aleph-Alpha/sqlpipe/pkg/metrics"
	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
	"github.com/Aleph-Alpha/sqlpipe/pkg/tracer"
	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"go.uber.org/fx"
)

const (
	Prefix = "SQLPIPE_"

	nestingSeparator = "__"
)

// Config is the root configuration object
type Config struct {
	Logger   logger.Config   `koanf:"logger"`
	Metrics  metrics.Config  `koanf:"metrics"`
	Tracer   tracer.Config   `koanf:"tracer"`
	Pipeline pipeline.Config `koanf:"pipeline"`
	Database database.Config `koanf:"database" validate:"required"`
}

// Load reads the prefixed environment, unmarshals it into Config and
// validates the result
func Load() (*Config, error) {
	return LoadWithPrefix(Prefix)
}

// LoadWithPrefix is Load with a custom variable prefix
func LoadWithPrefix(prefix string) (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(prefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, prefix))
		return strings.ReplaceAll(key, nestingSeparator, ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	cfg.applyServiceName()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// applyServiceName copies the logger's service name to metrics and tracer
// when they have none of their own
func (c *Config) applyServiceName() {
	name := c.Logger.ServiceName
	if name == "" {
		return
	}
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = name
	}
	if c.Tracer.ServiceName == "" {
		c.Tracer.ServiceName = name
	}
}

// FXModule loads Config and supplies each component's section to the container
var FXModule = fx.Module("config",
	fx.Provide(
		Load,
		func(c *Config) logger.Config { return c.Logger },
		func(c *Config) metrics.Config { return c.Metrics },
		func(c *Config) tracer.Config { return c.Tracer },
		func(c *Config) pipeline.Config { return c.Pipeline },
		func(c *Config) database.Config { return c.Database },
	),
)
