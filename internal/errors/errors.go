package errors

import "errors"

var (
	ErrNoRatesData  = errors.New("no rates data available")
	ErrRemoteFetch  = errors.New("remote fetch failed")
	ErrNoHistory    = errors.New("no historical data")
	ErrInternal     = errors.New("internal error")
	ErrEmptyPayload = errors.New("empty rates payload")
)

// ProviderError - ошибка, которую сообщил сам провайдер курсов (поле error в ответе).
// Текст показывается пользователю как есть.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string { return e.Message }
