package ledger

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"CookieBroker/internal/model"
)

// Ledger is the on-disk record of open positions and closed trades.
//
// Every call reloads the document, applies one change and writes it back.
// There is no cross-process locking: one bot process owns the file.
type Ledger struct {
	mu       sync.Mutex
	filePath string
	now      func() time.Time
}

// New returns a ledger backed by filePath. The file is created on first write.
func New(filePath string) *Ledger {
	return &Ledger{filePath: filePath, now: time.Now}
}

// Key builds the "<unixTimestamp>-<symbol>" record key.
func Key(ts time.Time, symbol string) string {
	return strconv.FormatInt(ts.Unix(), 10) + "-" + symbol
}

// load must be called with l.mu held. An unreadable document is replaced by
// an empty one: losing profit history must not stop trading.
func (l *Ledger) load() *model.LedgerDocument {
	doc, err := LoadDocument(l.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc
		}
		log.Printf("[WARN] %v; starting from an empty ledger", err)
	}
	return doc
}

// RecordPurchase stores an open position for s. Only one open position per
// symbol is kept; an older one is replaced.
func (l *Ledger) RecordPurchase(s *model.Stock, quantity int, cost float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc := l.load()
	for key, pos := range doc.Inventory {
		if symbolOf(key, pos) == s.Symbol {
			log.Printf("[WARN] replacing stale open position %s for %s", key, s.Symbol)
			delete(doc.Inventory, key)
		}
	}
	doc.Inventory[Key(l.now(), s.Symbol)] = model.OpenPosition{
		Amount:       quantity,
		PurchasedFor: cost,
		Symbol:       s.Symbol,
		Value:        s.Value,
	}
	if err := SaveDocument(l.filePath, doc); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// RecordSale closes the open position for s, if any, and stores the sale.
// The matched position is returned so the caller can compute profit; a sale
// with no open position is still recorded, without cost basis.
func (l *Ledger) RecordSale(s *model.Stock, proceeds float64) (*model.OpenPosition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc := l.load()
	sale := model.ClosedTrade{
		Amount:    s.Held,
		SoldFor:   proceeds,
		SoldValue: s.Value,
		Symbol:    s.Symbol,
	}

	var matched *model.OpenPosition
	if key, pos, ok := openFor(doc, s.Symbol); ok {
		boughtFor, boughtValue := pos.PurchasedFor, pos.Value
		sale.BoughtFor = &boughtFor
		sale.BoughtValue = &boughtValue
		delete(doc.Inventory, key)
		matched = &pos
	}
	doc.Sold[Key(l.now(), s.Symbol)] = sale

	if err := SaveDocument(l.filePath, doc); err != nil {
		return matched, fmt.Errorf("save ledger: %w", err)
	}
	return matched, nil
}

// openFor finds the open position for symbol by its record field rather than
// by key text, so "CRL" never matches a key for another symbol.
func openFor(doc *model.LedgerDocument, symbol string) (string, model.OpenPosition, bool) {
	keys := make([]string, 0, len(doc.Inventory))
	for k, pos := range doc.Inventory {
		if symbolOf(k, pos) == symbol {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", model.OpenPosition{}, false
	}
	sort.Strings(keys)
	return keys[0], doc.Inventory[keys[0]], true
}

// symbolOf falls back to the "unix-SYM" key for records written without a symbol field.
func symbolOf(key string, pos model.OpenPosition) string {
	if pos.Symbol != "" {
		return pos.Symbol
	}
	_, sym, _ := strings.Cut(key, "-")
	return sym
}

// Document returns the current on-disk ledger.
func (l *Ledger) Document() *model.LedgerDocument {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// OpenPositions returns open positions keyed by symbol.
func (l *Ledger) OpenPositions() map[string]model.OpenPosition {
	doc := l.Document()
	out := make(map[string]model.OpenPosition, len(doc.Inventory))
	for key, pos := range doc.Inventory {
		sym := symbolOf(key, pos)
		if sym == "" {
			continue
		}
		pos.Symbol = sym
		out[sym] = pos
	}
	return out
}

// Earnings sums realised profit per symbol over sales with a known cost basis.
func (l *Ledger) Earnings() map[string]float64 {
	doc := l.Document()
	out := make(map[string]float64)
	for _, sale := range doc.Sold {
		if p, ok := sale.Profit(); ok {
			out[sale.Symbol] += p
		}
	}
	return out
}
