package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TokenSweeper стирает хэши давно истёкших токенов продолжения
type TokenSweeper interface {
	SweepExpiredTokens(ctx context.Context) (int64, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	sweeper  TokenSweeper
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler создаёт планировщик; interval <= 0 отключает очистку токенов
func NewScheduler(sweeper TokenSweeper, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Token sweeper disabled")
		return
	}

	s.logger.Info("Starting background scheduler", zap.Duration("sweep_interval", s.interval))

	s.wg.Add(1)
	go s.runTokenSweepTask(ctx)
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) runTokenSweepTask(ctx context.Context) {
	defer s.wg.Done()

	// Первый запуск сразу при старте
	s.sweepTokens(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepTokens(ctx)
		case <-s.stopChan:
			s.logger.Info("Token sweep task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Token sweep task cancelled")
			return
		}
	}
}

func (s *Scheduler) sweepTokens(ctx context.Context) {
	cleared, err := s.sweeper.SweepExpiredTokens(ctx)
	if err != nil {
		s.logger.Error("Failed to sweep expired tokens", zap.Error(err))
		return
	}

	s.logger.Debug("Token sweep completed", zap.Int64("cleared", cleared))
}
