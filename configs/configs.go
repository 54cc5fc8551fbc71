package configs

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

const (
	QueueTypeSQS   = "sqs"
	QueueTypeRedis = "redis"
)

// Config defines all environment variables and derived config for the reader and writer.
type Config struct {
	// Transformed time.Duration fields (not loaded from env directly)
	QueueVisibilityTimeoutDuration time.Duration `env:"-"` // SQS visibility timeout (duration)
	QueueWaitTimeDuration          time.Duration `env:"-"` // SQS wait time (duration)
	ReaderIntervalDuration         time.Duration `env:"-"` // Reader timer interval (duration)
	ReaderCycleTimeoutDuration     time.Duration `env:"-"` // Upper bound of one poll/delete cycle (duration)

	QueueType string `env:"QUEUE_TYPE" envDefault:"sqs" validate:"oneof=sqs redis"`

	QueueAwsSqsUrl               string `env:"SQS_QUEUE_URL" validate:"required_if=QueueType sqs"`
	QueueAwsSqsVisibilityTimeout int32  `env:"SQS_QUEUE_VISIBILITY_TIMEOUT" envDefault:"600" validate:"min=0,max=43200"`
	QueueAwsSqsWaitTimeSeconds   int32  `env:"SQS_QUEUE_WAIT_TIME_SECONDS" envDefault:"5" validate:"min=0,max=20"`
	QueueAwsSqsGroupID           string `env:"SQS_QUEUE_GROUP_ID" envDefault:"1" validate:"required,max=128"`
	QueueAwsSqsRegion            string `env:"AWS_SQS_REGION" envDefault:"us-east-1"`
	QueueAwsSqsEndpoint          string `env:"AWS_SQS_ENDPOINT" validate:"omitempty,url"`

	QueueRedisEndpoint string `env:"REDIS_QUEUE_ENDPOINT" validate:"required_if=QueueType redis"`
	QueueRedisDB       int    `env:"REDIS_QUEUE_DB" envDefault:"0" validate:"min=0"`
	QueueRedisKey      string `env:"REDIS_QUEUE_KEY" envDefault:"messages" validate:"required"`

	ReaderIntervalSeconds int   `env:"READER_INTERVAL_SECONDS" envDefault:"1" validate:"min=1"`
	ReaderBatchSize       int32 `env:"READER_BATCH_SIZE" envDefault:"5" validate:"min=1,max=10"`
	ReaderCycleTimeout    int   `env:"READER_CYCLE_TIMEOUT" envDefault:"60" validate:"min=0"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
}

// Parse loads configuration from environment variables, validates and normalizes it.
func Parse() (*Config, error) {
	return parse(env.Options{})
}

// ParseEnvironment is Parse over an explicit environment instead of the process one.
func ParseEnvironment(environment map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config

	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.normalize()

	return &cfg, nil
}

// validate performs all required configuration checks.
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// normalize converts int values to duration and sets derived fields.
func (c *Config) normalize() {
	c.QueueVisibilityTimeoutDuration = time.Duration(c.QueueAwsSqsVisibilityTimeout) * time.Second
	c.QueueWaitTimeDuration = time.Duration(c.QueueAwsSqsWaitTimeSeconds) * time.Second
	c.ReaderIntervalDuration = time.Duration(c.ReaderIntervalSeconds) * time.Second
	c.ReaderCycleTimeoutDuration = time.Duration(c.ReaderCycleTimeout) * time.Second
}
