package market

import "strings"

// CatalogEntry links a producing building to the commodity it backs.
type CatalogEntry struct {
	Building string // lower-case building name as it appears in the save
	Name     string
	Symbol   string
	Slot     int
}

// Catalog lists the sixteen tradeable commodities in slot order.
var Catalog = [...]CatalogEntry{
	{"farm", "Cereals", "CRL", 0},
	{"mine", "Chocolate", "CHC", 1},
	{"factory", "Butter", "BTR", 2},
	{"bank", "Sugar", "SUG", 3},
	{"temple", "Nuts", "NUT", 4},
	{"wizard tower", "Salt", "SLT", 5},
	{"shipment", "Vanilla", "VNL", 6},
	{"alchemy lab", "Eggs", "EGG", 7},
	{"portal", "Cinnamon", "CNM", 8},
	{"time machine", "Cream", "CRM", 9},
	{"antimatter condenser", "Jam", "JAM", 10},
	{"prism", "White Chocolate", "WCH", 11},
	{"chancemaker", "Honey", "HNY", 12},
	{"fractal engine", "Cookies", "CKI", 13},
	{"javascript console", "Recipes", "RCP", 14},
	{"idleverse", "Subsidiaries", "SBD", 15},
}

// StockCount is the number of catalog slots.
const StockCount = len(Catalog)

// ByBuilding finds the entry for a building name, case-insensitively.
func ByBuilding(name string) (CatalogEntry, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, e := range Catalog {
		if e.Building == name {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// BySymbol finds the entry for a three-letter symbol, case-insensitively.
func BySymbol(symbol string) (CatalogEntry, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, e := range Catalog {
		if e.Symbol == symbol {
			return e, true
		}
	}
	return CatalogEntry{}, false
}
