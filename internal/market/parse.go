package market

import (
	"fmt"
	"strconv"
	"strings"
)

// rawMarket is the bank minigame string split into its parts, not yet validated.
type rawMarket struct {
	OfficeLevel int
	Brokers     int
	Stocks      [][]string // one slice of ':'-separated sub-fields per slot
}

// parseMarketSave splits "office:brokers[:...] v:m:d:dur:held[:...]!v:m:..." into fields.
func parseMarketSave(raw string) (*rawMarket, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), " ", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: market save has no stock section", ErrMalformedSaveField)
	}

	header := strings.Split(parts[0], ":")
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: market header %q", ErrMalformedSaveField, parts[0])
	}
	office, err := parseCount("officeLevel", header[0])
	if err != nil {
		return nil, err
	}
	brokers, err := parseCount("brokers", header[1])
	if err != nil {
		return nil, err
	}

	rm := &rawMarket{OfficeLevel: office, Brokers: brokers}
	for _, s := range strings.Split(parts[1], "!") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		rm.Stocks = append(rm.Stocks, strings.Split(s, ":"))
	}
	if len(rm.Stocks) < StockCount {
		return nil, fmt.Errorf("%w: expected %d stocks, got %d", ErrMalformedSaveField, StockCount, len(rm.Stocks))
	}
	return rm, nil
}

func parseCount(field, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrMalformedSaveField, field, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s=%d is negative", ErrMalformedSaveField, field, n)
	}
	return n, nil
}

func parseNumber(field, s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrMalformedSaveField, field, s)
	}
	return f, nil
}
