package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/domain"
	errs "github.com/NastyaGoryachaya/exchange-rates-bot/internal/errors"
)

//go:generate mockgen -source=fetch_service.go -destination=mocks/mocks.go -package=mocks

type Service interface {
	// FetchAndSave - снимок курсов из API, полностью заменяющий кэш
	FetchAndSave(ctx context.Context) (domain.RateSnapshot, error)
}

type RatesProvider interface {
	Latest(ctx context.Context, base string) (domain.RateSnapshot, error)
}

type RateWriter interface {
	ReplaceAll(ctx context.Context, rates map[string]float64, atMillis int64) error
}

type fetchService struct {
	ratesProvider RatesProvider
	store         RateWriter
	now           func() time.Time
	logger        *slog.Logger
}

// NewService - конструктор сервиса получения и сохранения курсов.
func NewService(ratesProvider RatesProvider, store RateWriter, logger *slog.Logger) Service {
	return NewServiceWithNow(ratesProvider, store, func() time.Time { return time.Now().UTC() }, logger)
}

// NewServiceWithNow - для тестов: фиксированное "сейчас" для отметки обновления.
func NewServiceWithNow(ratesProvider RatesProvider, store RateWriter, now func() time.Time, logger *slog.Logger) Service {
	return &fetchService{
		ratesProvider: ratesProvider,
		store:         store,
		now:           now,
		logger:        logger,
	}
}

// FetchAndSave - запрашивает курсы относительно базовой валюты и атомарно заменяет ими кэш.
// Ошибка записи означает, что обновление не зафиксировано (отметка не сдвинулась).
func (s *fetchService) FetchAndSave(ctx context.Context) (domain.RateSnapshot, error) {
	snap, err := s.ratesProvider.Latest(ctx, domain.BaseCurrency)
	if err != nil {
		s.logger.Error("fetch rates", "err", err)
		return domain.RateSnapshot{}, fmt.Errorf("fetch rates: %w", err)
	}

	rates := make(map[string]float64, len(snap.Rates)+1)
	for code, rate := range snap.Rates {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" || rate <= 0 {
			s.logger.Warn("skipping invalid rate", "currency", code, "rate", rate)
			continue
		}
		rates[code] = rate
	}
	if len(rates) == 0 {
		s.logger.Error("fetch rates: empty payload")
		return domain.RateSnapshot{}, fmt.Errorf("fetch rates: %w: %w", errs.ErrRemoteFetch, errs.ErrEmptyPayload)
	}
	// провайдер может не включать саму базу в список
	if _, ok := rates[domain.BaseCurrency]; !ok {
		rates[domain.BaseCurrency] = 1
	}

	at := s.now()
	if err := s.store.ReplaceAll(ctx, rates, at.UnixMilli()); err != nil {
		s.logger.Error("save rates to db failed", "err", err)
		return domain.RateSnapshot{}, fmt.Errorf("save rates: %w", err)
	}

	s.logger.Info("rates refreshed", "count", len(rates), "at", at)
	return domain.RateSnapshot{Base: domain.BaseCurrency, Rates: rates}, nil
}
