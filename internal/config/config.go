package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultCheckInterval  = 30 // minutes between proactive guidance checks
	DefaultBufSize        = 100
	DefaultWebhookTimeout = 10 // seconds
)

type Config struct {
	Coach    CoachConfig    `json:"coach"`
	Store    StoreConfig    `json:"store"`
	Channels ChannelsConfig `json:"channels"`
	Daemon   DaemonConfig   `json:"daemon"`
}

type CoachConfig struct {
	UserName             string `json:"userName,omitempty"`
	CheckIntervalMinutes int    `json:"checkIntervalMinutes"`
	ProactiveOnStart     bool   `json:"proactiveOnStart"`
	RecoveryCatalog      string `json:"recoveryCatalog,omitempty"`
}

type StoreConfig struct {
	DBPath string `json:"dbPath"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Webhook  WebhookConfig  `json:"webhook"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	ChatID    string   `json:"chatId,omitempty"`
	AllowFrom []string `json:"allowFrom"`
	Proxy     string   `json:"proxy,omitempty"`
}

type WebhookConfig struct {
	Enabled        bool   `json:"enabled"`
	URL            string `json:"url"`
	Secret         string `json:"secret,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

type DaemonConfig struct {
	BusBuffer int `json:"busBuffer"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Coach: CoachConfig{
			CheckIntervalMinutes: DefaultCheckInterval,
			ProactiveOnStart:     true,
		},
		Store: StoreConfig{
			DBPath: filepath.Join(home, ".luna", "luna.db"),
		},
		Channels: ChannelsConfig{},
		Daemon: DaemonConfig{
			BusBuffer: DefaultBufSize,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".luna")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if name := os.Getenv("LUNA_USER_NAME"); name != "" {
		cfg.Coach.UserName = name
	}
	if interval := os.Getenv("LUNA_CHECK_INTERVAL"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			cfg.Coach.CheckIntervalMinutes = parsed
		}
	}
	if catalog := os.Getenv("LUNA_RECOVERY_CATALOG"); catalog != "" {
		cfg.Coach.RecoveryCatalog = catalog
	}
	if dbPath := os.Getenv("LUNA_DB_PATH"); dbPath != "" {
		cfg.Store.DBPath = dbPath
	}
	if token := os.Getenv("LUNA_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if chatID := os.Getenv("LUNA_TELEGRAM_CHAT_ID"); chatID != "" {
		cfg.Channels.Telegram.ChatID = chatID
	}
	if url := os.Getenv("LUNA_WEBHOOK_URL"); url != "" {
		cfg.Channels.Webhook.URL = url
	}

	if cfg.Store.DBPath == "" {
		cfg.Store.DBPath = DefaultConfig().Store.DBPath
	}
	if cfg.Coach.CheckIntervalMinutes <= 0 {
		cfg.Coach.CheckIntervalMinutes = DefaultCheckInterval
	}
	if cfg.Daemon.BusBuffer <= 0 {
		cfg.Daemon.BusBuffer = DefaultBufSize
	}
	if cfg.Channels.Webhook.TimeoutSeconds <= 0 {
		cfg.Channels.Webhook.TimeoutSeconds = DefaultWebhookTimeout
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
