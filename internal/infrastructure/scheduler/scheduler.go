package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/collections/backend/internal/infrastructure/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.uber.org/zap"
)

// Config holds scheduler configuration
type Config struct {
	ReminderQueue     string
	ReminderWorkers   int
	MaxAttempts       int
	RiskSweepEnabled  bool
	RiskSweepInterval time.Duration
	JobTimeout        time.Duration
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		ReminderQueue:     "collections_reminders",
		ReminderWorkers:   5,
		MaxAttempts:       5,
		RiskSweepEnabled:  true,
		RiskSweepInterval: time.Hour,
		JobTimeout:        time.Minute,
	}
}

// ConfigFrom builds a scheduler config from application settings
func ConfigFrom(rem config.ReminderConfig, coll config.CollectionsConfig) Config {
	cfg := DefaultConfig()
	if rem.Queue != "" {
		cfg.ReminderQueue = rem.Queue
	}
	if rem.MaxWorkers > 0 {
		cfg.ReminderWorkers = rem.MaxWorkers
	}
	cfg.RiskSweepEnabled = coll.RiskSweepEnabled
	if coll.RiskSweepInterval > 0 {
		cfg.RiskSweepInterval = coll.RiskSweepInterval
	}
	return cfg
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.ReminderQueue == "" {
		return fmt.Errorf("%w: reminder queue is required", ErrInvalidConfig)
	}
	if c.ReminderWorkers < 1 {
		return fmt.Errorf("%w: reminder workers must be at least 1", ErrInvalidConfig)
	}
	if c.RiskSweepEnabled && c.RiskSweepInterval < time.Minute {
		return fmt.Errorf("%w: risk sweep interval must be at least a minute", ErrInvalidConfig)
	}
	return nil
}

// Dependencies are the collaborators the workers call
type Dependencies struct {
	Tasks    TaskReader
	Notifier Notifier
	Sweeper  RiskSweeper
}

// Scheduler owns the river client that executes reminder and sweep jobs
type Scheduler struct {
	config Config
	client *river.Client[pgx.Tx]
	logger *zap.Logger

	mu        sync.Mutex
	isRunning bool
}

// New creates a scheduler backed by pool
func New(pool *pgxpool.Pool, cfg Config, deps Dependencies, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	riverCfg, err := newRiverConfig(cfg, deps, logger)
	if err != nil {
		return nil, err
	}
	client, err := river.NewClient(riverpgxv5.New(pool), riverCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create river client: %w", err)
	}
	return &Scheduler{config: cfg, client: client, logger: logger}, nil
}

func newRiverConfig(cfg Config, deps Dependencies, logger *zap.Logger) (*river.Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Tasks == nil || deps.Notifier == nil {
		return nil, fmt.Errorf("%w: reminder worker needs a task reader and a notifier", ErrInvalidConfig)
	}

	workers := river.NewWorkers()
	if err := river.AddWorkerSafely(workers, NewReminderWorker(deps.Tasks, deps.Notifier, logger)); err != nil {
		return nil, err
	}

	riverCfg := &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 1},
			cfg.ReminderQueue:  {MaxWorkers: cfg.ReminderWorkers},
		},
		Workers:     workers,
		MaxAttempts: cfg.MaxAttempts,
		JobTimeout:  cfg.JobTimeout,
	}

	if cfg.RiskSweepEnabled {
		if deps.Sweeper == nil {
			return nil, fmt.Errorf("%w: risk sweep is enabled without a sweeper", ErrInvalidConfig)
		}
		if err := river.AddWorkerSafely(workers, NewRiskSweepWorker(deps.Sweeper, logger)); err != nil {
			return nil, err
		}
		riverCfg.PeriodicJobs = []*river.PeriodicJob{RiskSweepPeriodicJob(cfg.RiskSweepInterval)}
	}
	return riverCfg, nil
}

// Client returns the underlying river client
func (s *Scheduler) Client() *river.Client[pgx.Tx] {
	return s.client
}

// Reminders returns a ReminderScheduler inserting into the reminder queue
func (s *Scheduler) Reminders() *RiverReminderScheduler {
	return NewRiverReminderScheduler(s.client,
		WithQueue(s.config.ReminderQueue),
		WithMaxAttempts(s.config.MaxAttempts),
		WithSchedulerLogger(s.logger),
	)
}

// Start starts working jobs
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	if err := s.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start river client: %w", err)
	}
	s.isRunning = true

	s.logger.Info("Collections scheduler started",
		zap.String("reminder_queue", s.config.ReminderQueue),
		zap.Int("reminder_workers", s.config.ReminderWorkers),
		zap.Bool("risk_sweep", s.config.RiskSweepEnabled),
		zap.Duration("risk_sweep_interval", s.config.RiskSweepInterval),
	)
	return nil
}

// Stop waits for running jobs to finish or ctx to expire
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}
	s.isRunning = false

	if err := s.client.Stop(ctx); err != nil {
		s.logger.Warn("Collections scheduler stop timed out", zap.Error(err))
		return err
	}
	s.logger.Info("Collections scheduler stopped gracefully")
	return nil
}
