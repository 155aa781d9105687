package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"CookieBroker/internal/automation"
)

// Config holds all application configuration.
type Config struct {
	SaveLocation    string  `yaml:"save_location"`
	PeakCpsOverride float64 `yaml:"peak_cps_override"`
	Market          struct {
		Enabled        bool          `yaml:"enabled"`
		BuyLimit       float64       `yaml:"buy_limit"`
		SellLimit      float64       `yaml:"sell_limit"`
		IdleInterval   time.Duration `yaml:"idle_interval"`
		ActiveInterval time.Duration `yaml:"active_interval"`
	} `yaml:"market"`
	Automation struct {
		MainClickerEnabled bool              `yaml:"main_clicker_enabled"`
		Device             string            `yaml:"device"`
		Cookie             automation.Point  `yaml:"cookie"`
		ClicksPerSecond    float64           `yaml:"clicks_per_second"`
		Layout             automation.Layout `yaml:"layout"`
	} `yaml:"automation"`
	Ledger struct {
		Path string `yaml:"path"`
	} `yaml:"ledger"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	API struct {
		Enabled        bool     `yaml:"enabled"`
		BindAddress    string   `yaml:"bind_address"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"api"`
	Schedule struct {
		SummaryCron string `yaml:"summary_cron"`
	} `yaml:"schedule"`
	Proxy string `yaml:"proxy"`
}

// legacyConfig is the flat config.toml written by earlier versions of the bot.
type legacyConfig struct {
	SaveLocation               string  `toml:"saveLocation"`
	MainAutoClickerEnabled     bool    `toml:"mainAutoClickerEnabled"`
	GoldenCookieClickerEnabled bool    `toml:"goldenCookieClickerEnabled"`
	StockMarketEnabled         bool    `toml:"stockMarketEnabled"`
	GardenEnabled              bool    `toml:"gardenEnabled"`
	BuyLimit                   float64 `toml:"buyLimit"`
	SellLimit                  float64 `toml:"sellLimit"`
}

// Load reads config from a YAML file (or a legacy .toml file), then applies
// environment variable overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// Seeded before decoding so an explicit 0 in the file survives.
	cfg.Market.BuyLimit = -90
	cfg.Market.SellLimit = 40

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if strings.EqualFold(filepath.Ext(path), ".toml") {
			err = cfg.applyLegacy(data)
		} else {
			err = yaml.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	cfg.SaveLocation = expandHome(cfg.SaveLocation)
	return cfg, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("[WARN] cannot expand %q: %v", path, err)
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func (c *Config) applyLegacy(data []byte) error {
	lc := legacyConfig{BuyLimit: c.Market.BuyLimit, SellLimit: c.Market.SellLimit}
	if err := toml.Unmarshal(data, &lc); err != nil {
		return err
	}
	c.SaveLocation = lc.SaveLocation
	c.Market.Enabled = lc.StockMarketEnabled
	c.Market.BuyLimit = lc.BuyLimit
	c.Market.SellLimit = lc.SellLimit
	c.Automation.MainClickerEnabled = lc.MainAutoClickerEnabled
	if lc.GoldenCookieClickerEnabled || lc.GardenEnabled {
		log.Println("[WARN] golden cookie and garden automation are not supported, ignoring")
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SAVE_LOCATION"); v != "" {
		c.SaveLocation = v
	}
	envFloat("BUY_LIMIT", &c.Market.BuyLimit)
	envFloat("SELL_LIMIT", &c.Market.SellLimit)
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("LEDGER_PATH"); v != "" {
		c.Ledger.Path = v
	}
	if v := os.Getenv("API_BIND_ADDRESS"); v != "" {
		c.API.BindAddress = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
}

func envFloat(key string, dst *float64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[WARN] ignoring %s=%q: %v", key, v, err)
		return
	}
	*dst = f
}

func (c *Config) applyDefaults() {
	if c.Market.IdleInterval == 0 {
		c.Market.IdleInterval = 30 * time.Second
	}
	if c.Market.ActiveInterval == 0 {
		c.Market.ActiveInterval = 60 * time.Second
	}
	if c.Automation.Device == "" {
		c.Automation.Device = "log"
	}
	if c.Automation.ClicksPerSecond == 0 {
		c.Automation.ClicksPerSecond = 20
	}
	if c.Automation.Layout.RowHeight == 0 {
		c.Automation.Layout.RowHeight = 32
	}
	if c.Automation.Layout.Settle == 0 {
		c.Automation.Layout.Settle = 300 * time.Millisecond
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = "data/ledger.json"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/cookie_broker.db"
	}
	if c.API.BindAddress == "" {
		c.API.BindAddress = "127.0.0.1:8080"
	}
	if c.Schedule.SummaryCron == "" {
		c.Schedule.SummaryCron = "0 0 * * * *"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.SaveLocation == "" {
		return fmt.Errorf("save_location is required")
	}
	if c.Market.BuyLimit >= c.Market.SellLimit {
		return fmt.Errorf("market.buy_limit (%.1f) must be below market.sell_limit (%.1f)", c.Market.BuyLimit, c.Market.SellLimit)
	}
	if c.Market.IdleInterval <= 0 || c.Market.ActiveInterval <= 0 {
		return fmt.Errorf("market intervals must be positive")
	}
	switch c.Automation.Device {
	case "log", "xdotool":
	default:
		return fmt.Errorf("automation.device must be log or xdotool, got %q", c.Automation.Device)
	}
	if c.Automation.ClicksPerSecond <= 0 {
		return fmt.Errorf("automation.clicks_per_second must be positive")
	}
	if c.Automation.Layout.RowHeight <= 0 {
		return fmt.Errorf("automation.layout.row_height must be positive")
	}
	if c.PeakCpsOverride < 0 {
		return fmt.Errorf("peak_cps_override must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether a bot token is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != ""
}
