package httptransport

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/domain"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/ports/errcode"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/service/rates"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusText - ответ на GET /
const StatusText = "The bot was started. Find it in Telegram and send /help"

// Rates - DTO ответа API с курсами
type Rates struct {
	Base        string             `json:"base"`
	Source      domain.Source      `json:"source"`
	Rates       map[string]float64 `json:"rates"`
	Unavailable []string           `json:"unavailable"`
}

func makeRates(v domain.RateView) Rates {
	out := Rates{
		Base:        v.Base,
		Source:      v.Source,
		Rates:       v.Rates,
		Unavailable: v.Unavailable,
	}
	if out.Rates == nil {
		out.Rates = map[string]float64{}
	}
	if out.Unavailable == nil {
		out.Unavailable = []string{}
	}
	return out
}

// RatesHandler - HTTP-handler для курсов.
type RatesHandler struct {
	logger  *slog.Logger
	svc     rates.Service
	timeout time.Duration
}

func NewRatesHandler(logger *slog.Logger, svc rates.Service, timeout time.Duration) *RatesHandler {
	if logger == nil {
		log.Fatal("nil logger")
	}
	if svc == nil {
		log.Fatal("nil service")
	}
	// Задаём таймаут по умолчанию, если он не задан
	if timeout <= 0 {
		timeout = time.Second * 3
	}
	return &RatesHandler{
		logger:  logger,
		svc:     svc,
		timeout: timeout,
	}
}

func (h *RatesHandler) RegisterRoutes(r interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}) {
	r.GET("/", h.Status)
	r.GET("/healthz", h.Health)
	r.GET("/rates", h.GetRates)
	r.GET("/rates/:codes", h.GetRatesByCodes)
}

// RegisterMetrics - GET /metrics из указанного реестра
func RegisterMetrics(e *echo.Echo, g prometheus.Gatherer) {
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}

func (h *RatesHandler) Status(c echo.Context) error {
	return c.String(http.StatusOK, StatusText)
}

func (h *RatesHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (h *RatesHandler) GetRates(c echo.Context) error {
	return h.resolve(c, nil)
}

// GetRatesByCodes - /rates/USD,EUR,CAD
func (h *RatesHandler) GetRatesByCodes(c echo.Context) error {
	var codes []string
	for _, code := range strings.Split(c.Param("codes"), ",") {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code != "" {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "codes_required",
		})
	}
	return h.resolve(c, codes)
}

func (h *RatesHandler) resolve(c echo.Context, codes []string) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	view, err := h.svc.Resolve(ctx, codes)
	if err != nil {
		switch FromServiceError(err) {
		case errcode.NoRatesData:
			// Кэш пуст и обновить не удалось
			return c.JSON(http.StatusServiceUnavailable, echo.Map{
				"error": "no_rates_data",
			})
		case errcode.Unavailable:
			return c.JSON(http.StatusGatewayTimeout, echo.Map{
				"error": "rates_unavailable",
			})
		default:
			h.logger.Error("Resolve failed",
				slog.String("op", "GetRates"),
				slog.Any("codes", codes),
				slog.String("error", err.Error()),
			)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "internal_server_error",
			})
		}
	}
	return c.JSON(http.StatusOK, makeRates(view))
}
