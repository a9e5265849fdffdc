package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/service/rates"
)

// Scheduler - фоновый прогрев кэша курсов. Идёт через тот же Resolve,
// поэтому не обходит single-flight и не обновляет свежий кэш.
type Scheduler struct {
	rates    rates.Service
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler - конструктор планировщика прогрева
func NewScheduler(ratesService rates.Service, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		rates:    ratesService,
		interval: interval,
		logger:   logger,
	}
}

// Start - запускает периодическое выполнение задачи до остановки контекста
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started")
	s.logger.Debug("scheduler interval configured", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// первый запуск сразу
	s.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		}
	}
}

// runOnce - одна итерация: запросить все курсы
func (s *Scheduler) runOnce(ctx context.Context) {
	s.logger.Debug("tick: warming rates cache")
	view, err := s.rates.Resolve(ctx, nil)
	if err != nil {
		s.logger.Error("tick: warmup failed", slog.Any("err", err))
		return
	}
	s.logger.Debug("tick: completed",
		slog.String("source", string(view.Source)),
		slog.Int("count", len(view.Rates)),
	)
}
