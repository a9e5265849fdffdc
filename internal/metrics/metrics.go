package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - метрики кэша курсов и команд бота. nil-значение безопасно: все методы no-op.
type Metrics struct {
	// Обновления кэша из API
	RefreshTotal    *prometheus.CounterVec
	RefreshDuration prometheus.Histogram

	// Ответы координатора по источнику (fresh/cached)
	ResolveTotal *prometheus.CounterVec

	// Команды бота
	CommandsTotal *prometheus.CounterVec
}

// New регистрирует метрики в reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RefreshTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rates_refresh_total",
				Help: "Количество обновлений кэша курсов по результату",
			},
			[]string{"result"},
		),
		RefreshDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rates_refresh_duration_seconds",
				Help:    "Длительность обновления кэша курсов",
				Buckets: prometheus.DefBuckets,
			},
		),
		ResolveTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rates_resolve_total",
				Help: "Ответы координатора кэша по источнику данных",
			},
			[]string{"source"},
		),
		CommandsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_commands_total",
				Help: "Обработанные команды бота",
			},
			[]string{"command"},
		),
	}
}

func (m *Metrics) ObserveRefresh(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(result).Inc()
	m.RefreshDuration.Observe(d.Seconds())
}

func (m *Metrics) IncResolve(source string) {
	if m == nil {
		return
	}
	m.ResolveTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) IncCommand(name string) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(name).Inc()
}
