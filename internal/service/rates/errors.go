package rates

import "errors"

var (
	ErrZeroRate = errors.New("zero source rate")
)
