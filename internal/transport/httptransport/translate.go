package httptransport

import (
	"context"
	"errors"

	errs "github.com/NastyaGoryachaya/exchange-rates-bot/internal/errors"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/ports/errcode"
)

func FromServiceError(err error) errcode.Code {
	switch {
	case errors.Is(err, errs.ErrNoRatesData):
		return errcode.NoRatesData
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, errs.ErrRemoteFetch):
		return errcode.Unavailable
	default:
		return errcode.Internal
	}
}
