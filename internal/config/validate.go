package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateIntent(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.Count <= 0 {
		return errors.New("workers.count must be positive")
	}
	if c.Workers.QueuePollInterval <= 0 {
		return errors.New("workers.queue_poll_interval must be positive")
	}
	if c.Workers.HeartbeatInterval <= 0 {
		return errors.New("workers.heartbeat_interval must be positive")
	}
	if c.Workers.HeartbeatTimeout <= c.Workers.HeartbeatInterval {
		return errors.New("workers.heartbeat_timeout must exceed workers.heartbeat_interval")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.MaxStageAttempts <= 0 {
		return errors.New("pipeline.max_stage_attempts must be positive")
	}
	if c.Pipeline.RetryBackoffBase <= 0 {
		return errors.New("pipeline.retry_backoff_base_seconds must be positive")
	}
	if c.Pipeline.RetryBackoffMax < c.Pipeline.RetryBackoffBase {
		return errors.New("pipeline.retry_backoff_max_seconds must be at least the base delay")
	}
	if c.Pipeline.StageTimeoutSeconds <= 0 {
		return errors.New("pipeline.stage_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateIntent() error {
	if c.Intent.ConfidenceThreshold < 0 || c.Intent.ConfidenceThreshold > 1 {
		return errors.New("intent.confidence_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
