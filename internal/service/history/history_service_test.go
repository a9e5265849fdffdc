package history_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/domain"
	errs "github.com/NastyaGoryachaya/exchange-rates-bot/internal/errors"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/infra/chart"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/service/history"
	historymocks "github.com/NastyaGoryachaya/exchange-rates-bot/internal/service/history/mocks"
	"github.com/golang/mock/gomock"
)

var fixedNow = time.Date(2025, 9, 8, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*historymocks.MockProvider, *historymocks.MockRenderer, history.Service) {
	t.Helper()
	ctrl := gomock.NewController(t)
	provider := historymocks.NewMockProvider(ctrl)
	renderer := historymocks.NewMockRenderer(ctrl)
	svc := history.NewServiceWithNow(provider, renderer, func() time.Time { return fixedNow }, slog.Default())
	return provider, renderer, svc
}

// Success: окно в 7 дней, точки по возрастанию даты, значения округлены
func TestChart_Success(t *testing.T) {
	t.Parallel()
	provider, renderer, svc := setup(t)

	provider.EXPECT().
		History(gomock.Any(), fixedNow.Add(-7*24*time.Hour), fixedNow, "USD", "EUR").
		Return(domain.History{
			Base:   "USD",
			Symbol: "EUR",
			Days: map[string]map[string]float64{
				"2025-09-05": {"EUR": 0.9149},
				"2025-09-01": {"EUR": 0.921},
				"2025-09-03": {"EUR": 0.9177},
				"2025-09-04": {"GBP": 0.79}, // без EUR - пропускается
			},
		}, nil).
		Times(1)

	renderer.EXPECT().
		URL(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, lc chart.LineChart) (string, error) {
			wantLabels := []string{"2025-09-01", "2025-09-03", "2025-09-05"}
			wantValues := []float64{0.92, 0.92, 0.91}
			if len(lc.Labels) != len(wantLabels) {
				t.Errorf("labels = %v, want %v", lc.Labels, wantLabels)
				return "", nil
			}
			for i := range wantLabels {
				if lc.Labels[i] != wantLabels[i] || lc.Values[i] != wantValues[i] {
					t.Errorf("point %d = %s/%v, want %s/%v", i, lc.Labels[i], lc.Values[i], wantLabels[i], wantValues[i])
				}
			}
			if lc.DatasetLabel != "EUR" {
				t.Errorf("dataset label = %q", lc.DatasetLabel)
			}
			if lc.Title != "Exchange rate for the last week relative to USD" {
				t.Errorf("title = %q", lc.Title)
			}
			return "https://quickchart.io/chart?c=x", nil
		}).
		Times(1)

	url, err := svc.Chart(context.Background(), "eur", "usd")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if url != "https://quickchart.io/chart?c=x" {
		t.Fatalf("unexpected url: %q", url)
	}
}

// Пустая база -> USD
func TestChart_DefaultBase(t *testing.T) {
	t.Parallel()
	provider, renderer, svc := setup(t)

	provider.EXPECT().
		History(gomock.Any(), gomock.Any(), gomock.Any(), "USD", "CAD").
		Return(domain.History{Days: map[string]map[string]float64{"2025-09-02": {"CAD": 1.35}}}, nil).
		Times(1)
	renderer.EXPECT().URL(gomock.Any(), gomock.Any()).Return("u", nil).Times(1)

	if _, err := svc.Chart(context.Background(), "CAD", ""); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

// Ошибка провайдера отдаётся как есть, рендерер не вызывается
func TestChart_ProviderError(t *testing.T) {
	t.Parallel()
	provider, renderer, svc := setup(t)

	provider.EXPECT().
		History(gomock.Any(), gomock.Any(), gomock.Any(), "USD", "XXX").
		Return(domain.History{}, &errs.ProviderError{Message: "Symbols 'XXX' are invalid for date 2025-09-01."}).
		Times(1)
	renderer.EXPECT().URL(gomock.Any(), gomock.Any()).Times(0)

	_, err := svc.Chart(context.Background(), "XXX", "USD")
	var perr *errs.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if perr.Message != "Symbols 'XXX' are invalid for date 2025-09-01." {
		t.Fatalf("message must be verbatim, got %q", perr.Message)
	}
}

// Ни одной точки: ErrNoHistory
func TestChart_NoPoints(t *testing.T) {
	t.Parallel()
	provider, renderer, svc := setup(t)

	provider.EXPECT().
		History(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.History{Days: map[string]map[string]float64{}}, nil).
		Times(1)
	renderer.EXPECT().URL(gomock.Any(), gomock.Any()).Times(0)

	_, err := svc.Chart(context.Background(), "EUR", "USD")
	if !errors.Is(err, errs.ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory, got %v", err)
	}
}

// Ошибка рендерера пробрасывается обёрнутой
func TestChart_RendererError(t *testing.T) {
	t.Parallel()
	provider, renderer, svc := setup(t)

	provider.EXPECT().
		History(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.History{Days: map[string]map[string]float64{"2025-09-02": {"EUR": 0.92}}}, nil).
		Times(1)
	renderErr := errors.New("quickchart: 500")
	renderer.EXPECT().URL(gomock.Any(), gomock.Any()).Return("", renderErr).Times(1)

	_, err := svc.Chart(context.Background(), "EUR", "USD")
	if !errors.Is(err, renderErr) {
		t.Fatalf("expected renderer error, got %v", err)
	}
}

// Половина цента округляется от нуля: 1.005 -> 1.01
func TestPoints_RoundsHalfAwayFromZero(t *testing.T) {
	t.Parallel()

	points := history.Points(domain.History{
		Days: map[string]map[string]float64{
			"2025-09-02": {"CAD": 1.005},
			"2025-09-01": {"CAD": 1.3449},
		},
	}, "CAD")

	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %v", points)
	}
	if points[0].Date != "2025-09-01" || points[0].Rate != 1.34 {
		t.Fatalf("unexpected first point: %+v", points[0])
	}
	if points[1].Date != "2025-09-02" || points[1].Rate != 1.01 {
		t.Fatalf("expected 1.005 to round to 1.01, got %+v", points[1])
	}
}
