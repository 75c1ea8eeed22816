package pipeline

import "time"

// PlaceholderStyle selects how bind markers are written in SQL text
type PlaceholderStyle string

const (
	// PlaceholderDollar matches PostgreSQL ordinal markers: $1, $2, ...
	PlaceholderDollar PlaceholderStyle = "dollar"
	// PlaceholderQuestion matches positional markers: ?, ?, ...
	PlaceholderQuestion PlaceholderStyle = "question"
)

const (
	DefaultCleanupTimeout     = 5 * time.Second
	DefaultGeneratedKeyColumn = "id"
)

// Config controls pipeline behaviour shared by every invocation.
type Config struct {
	// CleanupTimeout bounds the rollback and close performed after the caller's
	// context has been cancelled. Cleanup runs on a context detached from the
	// caller so that a cancelled request still releases its connection.
	CleanupTimeout time.Duration `yaml:"cleanup_timeout" envconfig:"PIPELINE_CLEANUP_TIMEOUT" koanf:"cleanup_timeout"`

	// Placeholders is the bind marker style used when validating statements
	// before execution. Defaults to PlaceholderDollar.
	Placeholders PlaceholderStyle `yaml:"placeholders" envconfig:"PIPELINE_PLACEHOLDERS" koanf:"placeholders" validate:"omitempty,oneof=dollar question"`

	// GeneratedKeyColumn is the column requested from the driver by Insert
	GeneratedKeyColumn string `yaml:"generated_key_column" envconfig:"PIPELINE_GENERATED_KEY_COLUMN" koanf:"generated_key_column"`
}

func (c Config) withDefaults() Config {
	if c.CleanupTimeout <= 0 {
		c.CleanupTimeout = DefaultCleanupTimeout
	}
	if c.Placeholders == "" {
		c.Placeholders = PlaceholderDollar
	}
	if c.GeneratedKeyColumn == "" {
		c.GeneratedKeyColumn = DefaultGeneratedKeyColumn
	}
	return c
}
