package model

// OpenPosition is a ledger record written on buy and removed on the matching sell.
type OpenPosition struct {
	Amount       int     `json:"amount"`
	PurchasedFor float64 `json:"purchasedFor"`
	Symbol       string  `json:"symbol"`
	Value        float64 `json:"value"`
}

// ClosedTrade is a ledger record written on sell. The cost basis fields are
// only present when a matching open position was found.
type ClosedTrade struct {
	Amount      int      `json:"amount"`
	SoldFor     float64  `json:"soldFor"`
	SoldValue   float64  `json:"soldValue"`
	Symbol      string   `json:"symbol"`
	BoughtFor   *float64 `json:"boughtFor,omitempty"`
	BoughtValue *float64 `json:"boughtValue,omitempty"`
}

// Profit returns realised profit and whether a cost basis was known.
func (c ClosedTrade) Profit() (float64, bool) {
	if c.BoughtFor == nil {
		return 0, false
	}
	return c.SoldFor - *c.BoughtFor, true
}

// LedgerDocument is the persisted ledger. Keys are "<unixTimestamp>-<symbol>".
type LedgerDocument struct {
	Inventory map[string]OpenPosition `json:"inventory"`
	Sold      map[string]ClosedTrade  `json:"sold"`
}

// NewLedgerDocument returns an empty document.
func NewLedgerDocument() *LedgerDocument {
	return &LedgerDocument{
		Inventory: make(map[string]OpenPosition),
		Sold:      make(map[string]ClosedTrade),
	}
}
