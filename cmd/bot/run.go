package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"CookieBroker/internal/api"
	"CookieBroker/internal/automation"
	"CookieBroker/internal/collector"
	"CookieBroker/internal/ledger"
	"CookieBroker/internal/market"
	"CookieBroker/internal/notifier"
	"CookieBroker/internal/recorder"
	"CookieBroker/internal/scheduler"
	"CookieBroker/internal/strategy"
)

func runBot(parent context.Context, cfgPath string) error {
	log.Println("[INFO] CookieBroker starting...")
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src := collector.NewSaveFileSource(cfg.SaveLocation, cfg.PeakCpsOverride)
	log.Printf("[INFO] game state source: %s (%s)", src.Name(), cfg.SaveLocation)
	col := collector.NewCollector(src)

	device, err := automation.NewDevice(cfg.Automation.Device, false)
	if err != nil {
		return err
	}
	log.Printf("[INFO] automation device: %s", device.Name())
	gate := automation.NewGate()

	led := ledger.New(cfg.Ledger.Path)
	mkt := market.NewMarket(
		strategy.Limits{BuyLimit: cfg.Market.BuyLimit, SellLimit: cfg.Market.SellLimit},
		automation.NewScreenTrader(device, cfg.Automation.Layout),
		led,
	)
	mkt.Restore(led.OpenPositions(), led.Earnings())

	var n notifier.Notifier = notifier.Noop{}
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		n = tn
	}

	rec := openRecorder(cfg.Database.SQLitePath)
	defer rec.Close()

	hub := api.NewHub(cfg.API.AllowedOrigins)
	sched := scheduler.NewScheduler(ctx, col, mkt, led, gate, n, rec, hub, scheduler.Intervals{
		Idle:   cfg.Market.IdleInterval,
		Active: cfg.Market.ActiveInterval,
	})
	if err := sched.RegisterSummary(cfg.Schedule.SummaryCron); err != nil {
		return err
	}
	if !cfg.Market.Enabled {
		log.Println("[WARN] market.enabled is false, starting with trading paused")
		sched.Pause()
	}

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}
	if cfg.API.Enabled {
		srv := api.NewServer(cfg.API.BindAddress, cfg.API.AllowedOrigins, mkt, led, rec, sched, hub)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Printf("[ERROR] API server: %v", err)
			}
		}()
	}
	if cfg.Automation.MainClickerEnabled {
		loop := automation.NewClickLoop(gate, device, cfg.Automation.Cookie, cfg.Automation.ClicksPerSecond)
		go loop.Run(ctx)
	}

	log.Println("[INFO] CookieBroker is running. Press Ctrl+C to stop.")
	err = sched.Run(ctx)
	gate.Stop(nil)
	switch {
	case errors.Is(err, automation.ErrFailsafe):
		log.Printf("[WARN] stopped by failsafe")
		return nil
	case err != nil:
		return err
	}
	log.Println("[INFO] CookieBroker stopped")
	return nil
}

func openRecorder(path string) recorder.Recorder {
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("[WARN] create data dir: %v", err)
	}
	sr, err := recorder.NewSQLiteRecorder(path)
	if err != nil {
		log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}
