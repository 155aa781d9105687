package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"CookieBroker/internal/automation"
	"CookieBroker/internal/collector"
	"CookieBroker/internal/ledger"
	"CookieBroker/internal/market"
	"CookieBroker/internal/model"
	"CookieBroker/internal/notifier"
	"CookieBroker/internal/recorder"
	"CookieBroker/internal/strategy"
)

func newQuoteCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "quote",
		Short: "Decode the save once and show what the bot would trade",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			state, err := collector.NewCollector(collector.NewSaveFileSource(cfg.SaveLocation, cfg.PeakCpsOverride)).Collect()
			if err != nil {
				return err
			}
			led := ledger.New(cfg.Ledger.Path)
			mkt := market.NewMarket(
				strategy.Limits{BuyLimit: cfg.Market.BuyLimit, SellLimit: cfg.Market.SellLimit},
				automation.NewScreenTrader(&automation.LogDevice{}, cfg.Automation.Layout),
				led,
			)
			if err := mkt.UpdateStocks(state); err != nil {
				return err
			}
			mkt.Restore(led.OpenPositions(), led.Earnings())

			st := mkt.Status()
			accent.Printf("Bank level %d | office %d | %d brokers | hard cap $%.2f\n", st.BankLevel, st.OfficeLevel, st.Brokers, st.HardCap)
			neutral.Printf("Balance %s cookies | buy below %+.0f%% | sell above %+.0f%%\n\n",
				notifier.Cookies(st.Balance), cfg.Market.BuyLimit, cfg.Market.SellLimit)

			fmt.Printf("%-4s %-12s %8s %9s %-10s %9s  %s\n", "SYM", "NAME", "VALUE", "RESTING", "MODE", "HELD", "ACTION")
			for _, d := range mkt.Plan() {
				s := d.Stock
				fmt.Printf("%-4s %-12s %8.2f ", s.Symbol, s.Name, s.Value)
				signedColor(-d.RestingDiff).Printf("%+8.1f%% ", d.RestingDiff)
				fmt.Printf("%-10s %4d/%-4d  ", s.Mode, s.Held, s.Capacity)
				label := d.ActionName
				if d.Amount > 0 {
					label = fmt.Sprintf("%s %d", label, d.Amount)
				}
				actionColor(d.Action).Println(label)
			}
			return nil
		},
	}
}

func newLedgerCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ledger",
		Short: "Show open positions, closed trades and realised profit",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			doc := ledger.New(cfg.Ledger.Path).Document()

			accent.Printf("Open positions (%d)\n", len(doc.Inventory))
			for _, k := range sortedKeys(doc.Inventory) {
				p := doc.Inventory[k]
				fmt.Printf("  %-16s %-4s %5d @ $%-8.2f paid %s\n", k, p.Symbol, p.Amount, p.Value, notifier.Cookies(p.PurchasedFor))
			}

			var total float64
			accent.Printf("\nClosed trades (%d)\n", len(doc.Sold))
			for _, k := range sortedKeys(doc.Sold) {
				c := doc.Sold[k]
				fmt.Printf("  %-16s %-4s %5d @ $%-8.2f got %s", k, c.Symbol, c.Amount, c.SoldValue, notifier.Cookies(c.SoldFor))
				if p, ok := c.Profit(); ok {
					total += p
					signedColor(p).Printf("  %s\n", notifier.Cookies(p))
				} else {
					warn.Println("  no cost basis")
				}
			}
			fmt.Print("\nRealised profit: ")
			signedColor(total).Println(notifier.Cookies(total))
			return nil
		},
	}
}

func newTradesCmd(cfgPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Show recent trades from the history database",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
			if err != nil {
				return err
			}
			defer rec.Close()
			rows, err := rec.RecentTrades(limit)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				warn.Println("No trades recorded yet.")
				return nil
			}
			for _, r := range rows {
				side := success
				if r.Side == model.SideSell {
					side = danger
				}
				fmt.Printf("%s ", r.ExecutedAt.Format("2006-01-02 15:04:05"))
				side.Printf("%-4s ", r.Side)
				fmt.Printf("%-4s %5d @ $%-8.2f %s", r.Symbol, r.Amount, r.Value, notifier.Cookies(r.Cookies))
				if r.Profit != 0 {
					signedColor(r.Profit).Printf("  %s", notifier.Cookies(r.Profit))
				}
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of trades to show")
	return cmd
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
