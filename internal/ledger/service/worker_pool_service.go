package service

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/yasinjemal/dynasty-academy-fullstack-sub006/internal/domain/shared"
)

// WorkerPoolCommandProcessor runs commands from the base processor on a bounded
// ants pool. Callers block until their own command has finished.
type WorkerPoolCommandProcessor struct {
	base   CommandProcessor
	pool   *ants.Pool
	logger *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolCommandProcessor(
	base CommandProcessor,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolCommandProcessor, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolCommandProcessor{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

// ProcessCommand submits cmd to the pool and waits for its result.
func (s *WorkerPoolCommandProcessor) ProcessCommand(ctx context.Context, cmd *shared.LedgerCommand) error {
	logger := s.logger
	if cmd.CorrelationID != "" {
		logger = s.logger.With("correlation_id", cmd.CorrelationID)
	}

	logger.Debug("Submitting command to worker pool", "command_type", string(cmd.Type))

	resultChan := make(chan error, 1)
	cmdCopy := *cmd

	err := s.pool.Submit(func() {
		resultChan <- s.base.ProcessCommand(ctx, &cmdCopy)
	})
	if err != nil {
		logger.Error("Failed to submit command to worker pool",
			"command_type", string(cmd.Type),
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolCommandProcessor) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolCommandProcessor) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolCommandProcessor) Capacity() int {
	return s.pool.Cap()
}
