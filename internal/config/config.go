package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

// Config holds high-level settings required across the application.
type Config struct {
	VK       VKConfig       `yaml:"vk"`
	Telegram TelegramConfig `yaml:"telegram"`
	Polling  PollingConfig  `yaml:"polling"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// VKConfig describes the source community and API access.
type VKConfig struct {
	Token      string `yaml:"token"`
	GroupID    int64  `yaml:"groupId"`
	APIURL     string `yaml:"apiUrl"`
	APIVersion string `yaml:"apiVersion"`
	FetchCount int    `yaml:"fetchCount"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken  string `yaml:"botToken"`
	ChannelID string `yaml:"channelId"`
	APIURL    string `yaml:"apiUrl"`
	Proxy     string `yaml:"proxy"`
}

// PollingConfig defines how often the wall is checked.
type PollingConfig struct {
	RequestTimeoutSec int `yaml:"requestTimeoutSec"`
	CheckIntervalSec  int `yaml:"checkIntervalSec"`
}

type StorageConfig struct {
	Path           string `yaml:"path"`
	DiagnosticsDir string `yaml:"diagnosticsDir"`
	JournalPath    string `yaml:"journalPath"`
	RecentCapacity int    `yaml:"recentCapacity"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RequestTimeout bounds every outbound HTTP call.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Polling.RequestTimeoutSec) * time.Second
}

// PollInterval is the delay between wall checks.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.CheckIntervalSec) * time.Second
}

// Validate reports every missing or invalid required value at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.VK.Token) == "" {
		errs = append(errs, errors.New("VK_TOKEN is required"))
	}
	if c.VK.GroupID == 0 {
		errs = append(errs, errors.New("VK_GROUP_ID is required"))
	}
	if strings.TrimSpace(c.Telegram.BotToken) == "" {
		errs = append(errs, errors.New("TG_BOT_TOKEN is required"))
	}
	if strings.TrimSpace(c.Telegram.ChannelID) == "" {
		errs = append(errs, errors.New("TG_CHANNEL_ID is required"))
	}
	if c.Polling.RequestTimeoutSec <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT_SEC must be positive"))
	}
	if c.Polling.CheckIntervalSec <= 0 {
		errs = append(errs, errors.New("CHECK_TIMEOUT_SEC must be positive"))
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, errors.New("STORAGE_PATH is required"))
	}
	return errors.Join(errs...)
}

// rawCfg carries no default tags: an unset flag or variable must not shadow
// a value coming from the YAML file.
type rawCfg struct {
	ConfigPath string `long:"config" env:"WALLRELAY_CONFIG" description:"Optional YAML configuration file"`

	VKToken      string `long:"vk-token" env:"VK_TOKEN" description:"VK API access token (required)"`
	VKGroupID    int64  `long:"vk-group-id" env:"VK_GROUP_ID" description:"Community owner id, negative for groups (required)"`
	VKAPIURL     string `long:"vk-api-url" env:"VK_API_URL" description:"VK API base URL (default: https://api.vk.com)"`
	VKAPIVersion string `long:"vk-api-version" env:"VK_API_VERSION" description:"VK API version (default: 5.64)"`
	VKFetchCount int    `long:"vk-fetch-count" env:"VK_FETCH_COUNT" description:"Posts requested per check (default: 5)"`

	TGBotToken  string `long:"tg-bot-token" env:"TG_BOT_TOKEN" description:"Telegram bot token (required)"`
	TGChannelID string `long:"tg-channel-id" env:"TG_CHANNEL_ID" description:"Target channel id or @username (required)"`
	TGAPIURL    string `long:"tg-api-url" env:"TG_API_URL" description:"Telegram Bot API base URL (default: https://api.telegram.org)"`
	TGProxy     string `long:"tg-proxy" env:"TG_PROXY_DSN" description:"Proxy for Telegram requests, e.g. socks5://host:port"`

	RequestTimeout int `long:"request-timeout" env:"REQUEST_TIMEOUT_SEC" description:"HTTP request timeout in seconds (default: 10)"`
	CheckInterval  int `long:"check-interval" env:"CHECK_TIMEOUT_SEC" description:"Seconds between wall checks (default: 60)"`

	StoragePath    string `long:"storage-path" env:"STORAGE_PATH" description:"Cursor file path (default: storage.json)"`
	DiagnosticsDir string `long:"diagnostics-dir" env:"DIAGNOSTICS_DIR" description:"Directory for malformed response dumps (default: .)"`
	JournalPath    string `long:"journal-path" env:"JOURNAL_PATH" description:"SQLite delivery journal, disabled when empty"`
	RecentCapacity int    `long:"recent-capacity" env:"RECENT_IDS_CAPACITY" description:"Recently sent post ids to remember (default: 20)"`

	LogLevel string `long:"log-level" env:"LOG_LEVEL" description:"debug, info, warn or error (default: debug)"`
}

// Load resolves configuration from defaults, the optional YAML file and
// finally environment variables and command-line flags. A nil config with a
// nil error means help was requested.
func Load(args []string) (*Config, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	parser.Name = "wallrelay"

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := defaultConfig()

	if raw.ConfigPath != "" {
		fileCfg, err := readFile(raw.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg = mergeConfig(cfg, raw.toConfig())

	return &cfg, nil
}

func readFile(path string) (Config, error) {
	var fileCfg Config

	raw, err := os.ReadFile(path)
	if err != nil {
		return fileCfg, fmt.Errorf("config: cannot read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return fileCfg, fmt.Errorf("config: cannot parse %s: %w", path, err)
	}
	return fileCfg, nil
}

func (r rawCfg) toConfig() Config {
	return Config{
		VK: VKConfig{
			Token:      r.VKToken,
			GroupID:    r.VKGroupID,
			APIURL:     r.VKAPIURL,
			APIVersion: r.VKAPIVersion,
			FetchCount: r.VKFetchCount,
		},
		Telegram: TelegramConfig{
			BotToken:  r.TGBotToken,
			ChannelID: r.TGChannelID,
			APIURL:    r.TGAPIURL,
			Proxy:     r.TGProxy,
		},
		Polling: PollingConfig{
			RequestTimeoutSec: r.RequestTimeout,
			CheckIntervalSec:  r.CheckInterval,
		},
		Storage: StorageConfig{
			Path:           r.StoragePath,
			DiagnosticsDir: r.DiagnosticsDir,
			JournalPath:    r.JournalPath,
			RecentCapacity: r.RecentCapacity,
		},
		Logging: LoggingConfig{Level: r.LogLevel},
	}
}

func mergeConfig(base, override Config) Config {
	if override.VK.Token != "" {
		base.VK.Token = override.VK.Token
	}
	if override.VK.GroupID != 0 {
		base.VK.GroupID = override.VK.GroupID
	}
	if override.VK.APIURL != "" {
		base.VK.APIURL = override.VK.APIURL
	}
	if override.VK.APIVersion != "" {
		base.VK.APIVersion = override.VK.APIVersion
	}
	if override.VK.FetchCount > 0 {
		base.VK.FetchCount = override.VK.FetchCount
	}

	if override.Telegram.BotToken != "" {
		base.Telegram.BotToken = override.Telegram.BotToken
	}
	if override.Telegram.ChannelID != "" {
		base.Telegram.ChannelID = override.Telegram.ChannelID
	}
	if override.Telegram.APIURL != "" {
		base.Telegram.APIURL = override.Telegram.APIURL
	}
	if override.Telegram.Proxy != "" {
		base.Telegram.Proxy = override.Telegram.Proxy
	}

	if override.Polling.RequestTimeoutSec != 0 {
		base.Polling.RequestTimeoutSec = override.Polling.RequestTimeoutSec
	}
	if override.Polling.CheckIntervalSec != 0 {
		base.Polling.CheckIntervalSec = override.Polling.CheckIntervalSec
	}

	if override.Storage.Path != "" {
		base.Storage.Path = override.Storage.Path
	}
	if override.Storage.DiagnosticsDir != "" {
		base.Storage.DiagnosticsDir = override.Storage.DiagnosticsDir
	}
	if override.Storage.JournalPath != "" {
		base.Storage.JournalPath = override.Storage.JournalPath
	}
	if override.Storage.RecentCapacity > 0 {
		base.Storage.RecentCapacity = override.Storage.RecentCapacity
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	return Config{
		VK: VKConfig{
			APIURL:     "https://api.vk.com",
			APIVersion: "5.64",
			FetchCount: 5,
		},
		Telegram: TelegramConfig{
			APIURL: "https://api.telegram.org",
		},
		Polling: PollingConfig{
			RequestTimeoutSec: 10,
			CheckIntervalSec:  60,
		},
		Storage: StorageConfig{
			Path:           "storage.json",
			DiagnosticsDir: ".",
			RecentCapacity: 20,
		},
		Logging: LoggingConfig{Level: "debug"},
	}
}
