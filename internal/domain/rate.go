package domain

import "time"

// BaseCurrency - валюта, относительно которой хранятся все курсы
const BaseCurrency = "USD"

// Source - откуда получены данные: свежий запрос к API или кэш
type Source string

const (
	SourceFresh  Source = "fresh"
	SourceCached Source = "cached"
)

// RefreshStamp - единственная отметка последнего успешного обновления кэша
type RefreshStamp struct {
	LastRequestMillis int64 // epoch millis
	Present           bool  // false, если кэш ни разу не заполнялся
}

// NewRefreshStamp - отметка на момент t
func NewRefreshStamp(t time.Time) RefreshStamp {
	return RefreshStamp{LastRequestMillis: t.UnixMilli(), Present: true}
}

// Age - сколько прошло с последнего обновления
func (s RefreshStamp) Age(now time.Time) time.Duration {
	return time.Duration(now.UnixMilli()-s.LastRequestMillis) * time.Millisecond
}

// RateSnapshot - результат одного запроса к API курсов
type RateSnapshot struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// RateView - единый ответ координатора кэша, независимо от источника
type RateView struct {
	Base        string             `json:"base"`
	Rates       map[string]float64 `json:"rates"`
	Source      Source             `json:"source"`
	Unavailable []string           `json:"unavailable,omitempty"` // запрошенные коды, которых нет в данных
}

// History - ответ исторического эндпоинта: дата -> код -> курс
type History struct {
	Base   string
	Symbol string
	Days   map[string]map[string]float64
}

// HistoryPoint - одна точка графика
type HistoryPoint struct {
	Date string  // YYYY-MM-DD
	Rate float64 // уже округлён до 2 знаков
}
