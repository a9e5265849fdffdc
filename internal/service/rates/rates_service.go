package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/domain"
	errs "github.com/NastyaGoryachaya/exchange-rates-bot/internal/errors"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/metrics"
	"golang.org/x/sync/singleflight"
)

//go:generate mockgen -source=rates_service.go -destination=mocks/mocks.go -package=mocks

// Координатор кэша курсов: решает, свежи ли данные, запускает обновление и
// отдаёт единый RateView независимо от источника.

const (
	// TTL - через сколько кэш перестаёт считаться свежим. Не настраивается.
	TTL = 600_000 * time.Millisecond

	refreshKey            = "rates:refresh"
	defaultRefreshTimeout = 30 * time.Second
	fallbackReadTimeout   = 2 * time.Second
)

type Service interface {
	// Resolve - курсы для кодов codes; nil/пустой срез означает "все валюты"
	Resolve(ctx context.Context, codes []string) (domain.RateView, error)
}

type RateReader interface {
	ReadStamp(ctx context.Context) (domain.RefreshStamp, error)
	ReadAll(ctx context.Context) (map[string]float64, error)
	ReadSubset(ctx context.Context, codes []string) (map[string]float64, error)
}

type Refresher interface {
	FetchAndSave(ctx context.Context) (domain.RateSnapshot, error)
}

type refreshResult struct {
	rates  map[string]float64
	source domain.Source
}

type service struct {
	store          RateReader
	refresher      Refresher
	clock          Clock
	metrics        *metrics.Metrics
	logger         *slog.Logger
	refreshTimeout time.Duration

	// одно глобальное обновление в полёте
	group singleflight.Group
}

func NewService(store RateReader, refresher Refresher, m *metrics.Metrics, logger *slog.Logger) Service {
	return NewServiceWithClock(store, refresher, NewRealClock(), m, logger)
}

// NewServiceWithClock - Конструктор для тестов: позволяет подставить фиксированные "часы".
func NewServiceWithClock(store RateReader, refresher Refresher, clk Clock, m *metrics.Metrics, logger *slog.Logger) Service {
	return &service{
		store:          store,
		refresher:      refresher,
		clock:          clk,
		metrics:        m,
		logger:         logger,
		refreshTimeout: defaultRefreshTimeout,
	}
}

func (s *service) Resolve(ctx context.Context, codes []string) (domain.RateView, error) {
	want := normalizeCodes(codes)

	stale := true
	stamp, stampErr := s.store.ReadStamp(ctx)
	if stampErr != nil {
		s.logger.Warn("read refresh stamp failed, treating cache as stale", "err", stampErr)
	} else {
		stale = s.isStale(stamp)
	}

	refreshed := false
	if stale {
		refreshed = true
		res, err := s.refresh(ctx)
		if err == nil {
			return s.serve(res.rates, want, res.source), nil
		}
		s.logger.Warn("refresh failed, falling back to cache", "err", err)
	}

	// контекст вызывающего мог истечь, пока он ждал общее обновление
	readCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), fallbackReadTimeout)
		defer cancel()
	}

	rates, err := s.readCache(readCtx, want)
	if err != nil && !refreshed {
		// кэш недоступен на чтение - пробуем принудительно обновить
		s.logger.Warn("cache read failed, forcing refresh", "err", err)
		res, rerr := s.refresh(ctx)
		if rerr == nil {
			return s.serve(res.rates, want, res.source), nil
		}
		s.logger.Warn("forced refresh failed", "err", rerr)
	}
	if err != nil {
		return domain.RateView{}, fmt.Errorf("%w: %w", errs.ErrNoRatesData, err)
	}

	// "ничего не совпало" и "кэш ни разу не заполнялся" - разные ответы
	if len(rates) == 0 && (len(want) == 0 || stampErr != nil || !stamp.Present) {
		s.logger.Warn("no rates data available", "codes", want)
		return domain.RateView{}, errs.ErrNoRatesData
	}
	return s.serve(rates, want, domain.SourceCached), nil
}

func (s *service) isStale(stamp domain.RefreshStamp) bool {
	return !stamp.Present || stamp.Age(s.clock.Now()) > TTL
}

func (s *service) readCache(ctx context.Context, want []string) (map[string]float64, error) {
	if len(want) == 0 {
		return s.store.ReadAll(ctx)
	}
	return s.store.ReadSubset(ctx, want)
}

// refresh - single-flight: параллельные вызовы ждут одно и то же обновление.
// Само обновление не отменяется вместе с контекстом первого вызова.
func (s *service) refresh(ctx context.Context) (refreshResult, error) {
	ch := s.group.DoChan(refreshKey, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout)
		defer cancel()
		return s.doRefresh(rctx)
	})

	select {
	case <-ctx.Done():
		return refreshResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return refreshResult{}, res.Err
		}
		if res.Shared {
			s.logger.Debug("joined in-flight refresh")
		}
		out, ok := res.Val.(refreshResult)
		if !ok {
			return refreshResult{}, errors.New("unexpected refresh result")
		}
		return out, nil
	}
}

func (s *service) doRefresh(ctx context.Context) (refreshResult, error) {
	// обновление могло только что завершиться в соседнем вызове
	if stamp, err := s.store.ReadStamp(ctx); err == nil && !s.isStale(stamp) {
		if rates, err := s.store.ReadAll(ctx); err == nil && len(rates) > 0 {
			s.logger.Debug("cache already refreshed, skipping remote fetch")
			return refreshResult{rates: rates, source: domain.SourceCached}, nil
		}
	}

	started := time.Now()
	snap, err := s.refresher.FetchAndSave(ctx)
	if err != nil {
		s.metrics.ObserveRefresh("error", time.Since(started))
		return refreshResult{}, err
	}
	s.metrics.ObserveRefresh("ok", time.Since(started))
	s.logger.Info("rates cache refreshed", "count", len(snap.Rates), "duration", time.Since(started))
	return refreshResult{rates: snap.Rates, source: domain.SourceFresh}, nil
}

func (s *service) serve(rates map[string]float64, want []string, source domain.Source) domain.RateView {
	s.metrics.IncResolve(string(source))

	view := domain.RateView{Base: domain.BaseCurrency, Source: source}
	if len(want) == 0 {
		view.Rates = make(map[string]float64, len(rates))
		for code, rate := range rates {
			view.Rates[code] = rate
		}
		return view
	}

	view.Rates = make(map[string]float64, len(want))
	for _, code := range want {
		if rate, ok := rates[code]; ok {
			view.Rates[code] = rate
			continue
		}
		view.Unavailable = append(view.Unavailable, code)
	}
	return view
}

// normalizeCodes - верхний регистр, без пустых и повторов, порядок сохраняется
func normalizeCodes(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Convert - amount в валюте from -> валюта to через общую базу. Округление только при выводе.
func Convert(amount, fromRate, toRate float64) (float64, error) {
	if fromRate == 0 {
		return 0, ErrZeroRate
	}
	return amount * toRate / fromRate, nil
}
