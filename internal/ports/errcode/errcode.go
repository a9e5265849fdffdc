package errcode

type Code string

const (
	NoRatesData Code = "NO_RATES_DATA"
	Unavailable Code = "UNAVAILABLE"

	BadRequest Code = "BAD_REQUEST"
	Internal   Code = "INTERNAL_ERROR"
)
