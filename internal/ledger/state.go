package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"CookieBroker/internal/model"
)

// ErrLedgerUnavailable means the ledger file is missing or unreadable.
var ErrLedgerUnavailable = errors.New("ledger unavailable")

// LoadDocument reads the ledger file. A missing file yields an empty document
// and ErrLedgerUnavailable; so does a corrupt one.
func LoadDocument(filePath string) (*model.LedgerDocument, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return model.NewLedgerDocument(), fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	doc := model.NewLedgerDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return model.NewLedgerDocument(), fmt.Errorf("%w: parse %s: %v", ErrLedgerUnavailable, filePath, err)
	}
	if doc.Inventory == nil {
		doc.Inventory = make(map[string]model.OpenPosition)
	}
	if doc.Sold == nil {
		doc.Sold = make(map[string]model.ClosedTrade)
	}
	return doc, nil
}

// SaveDocument writes the ledger through a temp file and rename so a crash
// never leaves a half-written document behind.
func SaveDocument(filePath string, doc *model.LedgerDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filePath)
}
