package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func requiredArgs() []string {
	return []string{
		"--vk-token=vk",
		"--vk-group-id=-123",
		"--tg-bot-token=bot",
		"--tg-channel-id=@chan",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(requiredArgs())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}

	if cfg.VK.GroupID != -123 || cfg.VK.APIVersion != "5.64" || cfg.VK.FetchCount != 5 {
		t.Fatalf("unexpected vk config %+v", cfg.VK)
	}
	if cfg.RequestTimeout() != 10*time.Second || cfg.PollInterval() != time.Minute {
		t.Fatalf("unexpected durations %v %v", cfg.RequestTimeout(), cfg.PollInterval())
	}
	if cfg.Storage.Path != "storage.json" || cfg.Storage.RecentCapacity != 20 || cfg.Storage.JournalPath != "" {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected log level %s", cfg.Logging.Level)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallrelay.yaml")
	content := `
vk:
  token: from-file
  groupId: -1
  fetchCount: 10
telegram:
  botToken: file-bot
  channelId: "@file"
polling:
  checkIntervalSec: 300
logging:
  level: info
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("WALLRELAY_CONFIG", path)
	t.Setenv("VK_TOKEN", "from-env")
	t.Setenv("CHECK_TIMEOUT_SEC", "30")

	cfg, err := Load([]string{"--log-level=warn"})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.VK.Token != "from-env" {
		t.Fatalf("env must override file, got %s", cfg.VK.Token)
	}
	if cfg.VK.GroupID != -1 || cfg.VK.FetchCount != 10 || cfg.Telegram.ChannelID != "@file" {
		t.Fatalf("file values lost: %+v %+v", cfg.VK, cfg.Telegram)
	}
	if cfg.Polling.CheckIntervalSec != 30 {
		t.Fatalf("expected env interval, got %d", cfg.Polling.CheckIntervalSec)
	}
	if cfg.Polling.RequestTimeoutSec != 10 {
		t.Fatalf("expected default timeout, got %d", cfg.Polling.RequestTimeoutSec)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("flag must win, got %s", cfg.Logging.Level)
	}
}

func TestValidateReportsMissingValues(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	err = cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, name := range []string{"VK_TOKEN", "VK_GROUP_ID", "TG_BOT_TOKEN", "TG_CHANNEL_ID"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("error %q does not mention %s", err, name)
		}
	}
}

func TestLoadHelp(t *testing.T) {
	cfg, err := Load([]string{"--help"})
	if err != nil || cfg != nil {
		t.Fatalf("expected nil config and nil error on help, got %v %v", cfg, err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")})
	if err == nil {
		t.Fatalf("expected error for unreadable config file")
	}
}

func TestLoadStorageFlags(t *testing.T) {
	args := append(requiredArgs(), "--storage-path=/var/lib/wallrelay/cursor.json", "--journal-path=/var/lib/wallrelay/journal.db")
	cfg, err := Load(args)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Storage.Path != "/var/lib/wallrelay/cursor.json" || cfg.Storage.JournalPath != "/var/lib/wallrelay/journal.db" {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}
}
