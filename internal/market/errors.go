package market

import "errors"

var (
	// ErrMalformedSaveField means a numeric sub-field of the market save could not be parsed.
	ErrMalformedSaveField = errors.New("malformed save field")
	// ErrUnknownCommodity means a building name has no catalog entry, or a catalog building is missing.
	ErrUnknownCommodity = errors.New("unknown commodity")
)
