package notifier

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"CookieBroker/internal/market"
	"CookieBroker/internal/model"
)

var cookieUnits = []struct {
	exp  float64
	name string
}{
	{21, "sextillion"},
	{18, "quintillion"},
	{15, "quadrillion"},
	{12, "trillion"},
	{9, "billion"},
	{6, "million"},
}

// Cookies renders a cookie amount the way the game does, e.g. "1.234 billion".
func Cookies(x float64) string {
	abs := math.Abs(x)
	for _, u := range cookieUnits {
		if abs >= math.Pow(10, u.exp) {
			return fmt.Sprintf("%.3f %s", x/math.Pow(10, u.exp), u.name)
		}
	}
	return fmt.Sprintf("%.0f", x)
}

// FormatTradeReport lists the trades of one cycle.
func FormatTradeReport(res *model.CycleResult, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🍪 <b>Stock market</b> | %s\n\n", at.Format("2006-01-02 15:04"))
	for _, t := range res.Trades() {
		verb := "Bought"
		if t.Side == model.SideSell {
			verb = "Sold"
		}
		fmt.Fprintf(&b, "%s %d %s @ $%.2f (%+.1f%% vs resting, %s)\n",
			verb, t.Amount, html.EscapeString(t.Symbol), t.Value, t.RestingDiff, t.Mode)
		fmt.Fprintf(&b, "   %s cookies", Cookies(t.Cookies))
		if t.Side == model.SideSell && t.CostBasis > 0 {
			fmt.Fprintf(&b, ", profit %s", Cookies(t.Profit))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nBalance: %s", Cookies(res.Balance))
	return b.String()
}

// FormatStatus is the portfolio summary sent by /status and the summary job.
func FormatStatus(st market.Status, holdings []model.Stock, paused bool) string {
	var b strings.Builder
	b.WriteString("📦 <b>Portfolio</b>\n\n")
	if !st.Ready {
		b.WriteString("Market not loaded yet.\n")
		return b.String()
	}
	state := "trading"
	if paused {
		state = "paused"
	}
	fmt.Fprintf(&b, "State: %s\n", state)
	fmt.Fprintf(&b, "Bank level %d, office %d, %d brokers\n", st.BankLevel, st.OfficeLevel, st.Brokers)
	fmt.Fprintf(&b, "Balance: %s\n", Cookies(st.Balance))
	fmt.Fprintf(&b, "Hard cap: $%.2f\n", st.HardCap)
	fmt.Fprintf(&b, "Lifetime earnings: %s\n", Cookies(st.LifetimeEarnings))
	if len(holdings) == 0 {
		b.WriteString("\nNo open positions.\n")
	} else {
		fmt.Fprintf(&b, "\n<b>Holding %d</b>\n", len(holdings))
		for _, s := range holdings {
			fmt.Fprintf(&b, "  %s %d/%d @ $%.2f, paid %s\n", s.Symbol, s.Held, s.Capacity, s.Value, Cookies(s.BoughtFor))
		}
	}
	fmt.Fprintf(&b, "\nUpdated %s", st.UpdatedAt.Format("15:04:05"))
	return b.String()
}

// FormatStocks renders a quote table with the action the policy would take.
func FormatStocks(decisions []market.Decision) string {
	var b strings.Builder
	b.WriteString("<pre>")
	fmt.Fprintf(&b, "%-4s %8s %8s %-10s %4s %s\n", "SYM", "VALUE", "RESTING", "MODE", "HELD", "ACTION")
	for _, d := range decisions {
		action := d.ActionName
		if d.Amount > 0 {
			action = fmt.Sprintf("%s %d", action, d.Amount)
		}
		fmt.Fprintf(&b, "%-4s %8.2f %+7.1f%% %-10s %4d %s\n",
			d.Stock.Symbol, d.Stock.Value, d.RestingDiff, d.Stock.Mode, d.Stock.Held, action)
	}
	b.WriteString("</pre>")
	return b.String()
}

// FormatLedger summarises open and closed positions.
func FormatLedger(doc *model.LedgerDocument) string {
	var b strings.Builder
	b.WriteString("📒 <b>Ledger</b>\n\n")

	fmt.Fprintf(&b, "Open positions: %d\n", len(doc.Inventory))
	for _, k := range sortedKeys(doc.Inventory) {
		p := doc.Inventory[k]
		fmt.Fprintf(&b, "  %s %d @ $%.2f for %s\n", p.Symbol, p.Amount, p.Value, Cookies(p.PurchasedFor))
	}

	var realised float64
	var matched int
	for _, c := range doc.Sold {
		if p, ok := c.Profit(); ok {
			realised += p
			matched++
		}
	}
	fmt.Fprintf(&b, "\nClosed trades: %d (%d with cost basis)\n", len(doc.Sold), matched)
	fmt.Fprintf(&b, "Realised profit: %s", Cookies(realised))
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
