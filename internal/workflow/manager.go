package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vividly/internal/artifact"
	"vividly/internal/blob"
	"vividly/internal/config"
	"vividly/internal/notifications"
	"vividly/internal/retry"
	"vividly/internal/tracker"
)

// Manager coordinates request processing across the worker pool.
type Manager struct {
	cfg       *config.Config
	store     *tracker.Store
	artifacts *artifact.Store
	stages    StageSet
	notifier  notifications.Service
	logger    *slog.Logger

	instanceID string
	workers    int

	pollInterval       time.Duration
	errorRetryInterval time.Duration
	stageTimeout       time.Duration
	retryPolicy        retry.Policy

	heartbeat *heartbeatMonitor

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	owners  []string
}

// NewManager constructs a workflow manager with the default stage set built
// from configuration.
func NewManager(cfg *config.Config, store *tracker.Store, artifacts *artifact.Store, blobs *blob.Store, logger *slog.Logger) *Manager {
	return NewManagerWithStages(cfg, store, artifacts, NewStageSet(cfg, blobs, logger), logger)
}

// NewManagerWithStages constructs a workflow manager with a caller-supplied
// stage set (used in tests).
func NewManagerWithStages(cfg *config.Config, store *tracker.Store, artifacts *artifact.Store, stages StageSet, logger *slog.Logger) *Manager {
	workers := cfg.Workers.Count
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		cfg:        cfg,
		store:      store,
		artifacts:  artifacts,
		stages:     stages,
		notifier:   notifications.NewService(cfg),
		logger:     logger,
		instanceID: uuid.NewString()[:8],
		workers:    workers,

		pollInterval:       time.Duration(cfg.Workers.QueuePollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workers.ErrorRetryInterval) * time.Second,
		stageTimeout:       time.Duration(cfg.Pipeline.StageTimeoutSeconds) * time.Second,
		retryPolicy: retry.Policy{
			MaxAttempts: cfg.Pipeline.MaxStageAttempts,
			BaseDelay:   time.Duration(cfg.Pipeline.RetryBackoffBase) * time.Second,
			MaxDelay:    time.Duration(cfg.Pipeline.RetryBackoffMax) * time.Second,
		},
		heartbeat: newHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workers.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workers.HeartbeatTimeout)*time.Second,
		),
	}
}

// Running reports whether the worker pool is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
