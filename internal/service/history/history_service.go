package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/domain"
	errs "github.com/NastyaGoryachaya/exchange-rates-bot/internal/errors"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/infra/chart"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=history_service.go -destination=mocks/mocks.go -package=mocks

// Window - период графика, заканчивается "сейчас"
const Window = 7 * 24 * time.Hour

// Service - график курса за последнюю неделю. История не кэшируется.
type Service interface {
	Chart(ctx context.Context, symbol, base string) (string, error)
}

type Provider interface {
	History(ctx context.Context, from, to time.Time, base, symbol string) (domain.History, error)
}

type Renderer interface {
	URL(ctx context.Context, lc chart.LineChart) (string, error)
}

type service struct {
	provider Provider
	renderer Renderer
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(provider Provider, renderer Renderer, logger *slog.Logger) Service {
	return NewServiceWithNow(provider, renderer, func() time.Time { return time.Now().UTC() }, logger)
}

func NewServiceWithNow(provider Provider, renderer Renderer, now func() time.Time, logger *slog.Logger) Service {
	return &service{provider: provider, renderer: renderer, now: now, logger: logger}
}

func (s *service) Chart(ctx context.Context, symbol, base string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		base = domain.BaseCurrency
	}

	to := s.now()
	from := to.Add(-Window)

	h, err := s.provider.History(ctx, from, to, base, symbol)
	if err != nil {
		var perr *errs.ProviderError
		if errors.As(err, &perr) {
			s.logger.Info("history: provider rejected request",
				slog.String("symbol", symbol),
				slog.String("base", base),
				slog.String("message", perr.Message),
			)
		}
		return "", err
	}

	points := Points(h, symbol)
	if len(points) == 0 {
		return "", fmt.Errorf("%w: %s/%s", errs.ErrNoHistory, symbol, base)
	}

	lc := chart.LineChart{
		Title:        "Exchange rate for the last week relative to " + base,
		DatasetLabel: symbol,
		Labels:       make([]string, 0, len(points)),
		Values:       make([]float64, 0, len(points)),
	}
	for _, p := range points {
		lc.Labels = append(lc.Labels, p.Date)
		lc.Values = append(lc.Values, p.Rate)
	}

	url, err := s.renderer.URL(ctx, lc)
	if err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}
	return url, nil
}

// Points - точки графика по возрастанию даты; дни без symbol пропускаются
func Points(h domain.History, symbol string) []domain.HistoryPoint {
	out := make([]domain.HistoryPoint, 0, len(h.Days))
	for date, rates := range h.Days {
		rate, ok := rates[symbol]
		if !ok {
			continue
		}
		out = append(out, domain.HistoryPoint{Date: date, Rate: round2(rate)})
	}
	// YYYY-MM-DD сортируется лексикографически
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// round2 - половина от нуля, как и при выводе курсов в боте
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
