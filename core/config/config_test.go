package config

import (
	"os"
	"path/filepath"
	"testing"
)

func baseConfig() *Config {
	return &Config{
		Line: LineConfig{ChannelSecret: "secret", AccessToken: "token"},
	}
}

func TestNormalizeAppliesDefaults(t *testing.T) {
	cfg := baseConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.HTTP.Port != 4003 {
		t.Fatalf("expected default port 4003, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.WebhookPath != "/webhook" {
		t.Fatalf("unexpected webhook path %q", cfg.HTTP.WebhookPath)
	}
	if cfg.Pending.Backend != PendingMemory || cfg.Pending.TTLSeconds != 600 {
		t.Fatalf("unexpected pending defaults: %+v", cfg.Pending)
	}
	if cfg.Leads.DefaultOwnerID != 1 || cfg.Leads.SearchLimit != 20 || cfg.Leads.PhoneRegion != "TH" {
		t.Fatalf("unexpected leads defaults: %+v", cfg.Leads)
	}
	if cfg.Line.APIBaseURL != "https://api.line.me" {
		t.Fatalf("unexpected api base %q", cfg.Line.APIBaseURL)
	}
}

func TestNormalizeRejectsReplyRetries(t *testing.T) {
	cfg := baseConfig()
	cfg.Sender.MaxRetries = 2
	if err := Normalize(cfg); err == nil {
		t.Fatalf("expected error for sender.max_retries > 0")
	}
	cfg.Sender.MaxRetries = -1
	if err := Normalize(cfg); err == nil {
		t.Fatalf("expected error for negative sender.max_retries")
	}
}

func TestNormalizeRequiresSecretUnlessSkipped(t *testing.T) {
	cfg := baseConfig()
	cfg.Line.ChannelSecret = ""
	if err := Normalize(cfg); err == nil {
		t.Fatalf("expected error for missing channel secret")
	}
	cfg.Line.SkipSignature = true
	if err := Normalize(cfg); err != nil {
		t.Fatalf("skip_signature should allow empty secret: %v", err)
	}
}

func TestNormalizeTelegramRunMode(t *testing.T) {
	cfg := baseConfig()
	cfg.Telegram = TelegramConfig{Enabled: true, Token: "t", RunMode: "Polling"}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("expected alias to map to longpoll, got %q", cfg.Telegram.RunMode)
	}

	cfg = baseConfig()
	cfg.Telegram = TelegramConfig{Enabled: true, Token: "t", RunMode: RunModeWebhook}
	if err := Normalize(cfg); err == nil {
		t.Fatalf("expected webhook validation error")
	}
}

func TestNormalizeRejectsUnknownRateLimitExclusion(t *testing.T) {
	cfg := baseConfig()
	cfg.RateLimit.ExcludeEvents = []string{" Postback ", "inline_query"}
	if err := Normalize(cfg); err == nil {
		t.Fatalf("expected error for inline_query exclusion")
	}

	cfg = baseConfig()
	cfg.RateLimit.ExcludeEvents = []string{" Postback "}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.RateLimit.ExcludeEvents[0] != EventPostback {
		t.Fatalf("exclusion not normalized: %q", cfg.RateLimit.ExcludeEvents[0])
	}
}

func TestNormalizeRedisNeedsURL(t *testing.T) {
	cfg := baseConfig()
	cfg.Pending.Backend = "redis"
	if err := Normalize(cfg); err == nil {
		t.Fatalf("expected error for redis backend without url")
	}
}

func TestLoadOverlaysEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte("line:\n  channel_secret: from-file\n  access_token: file-token\nhttp:\n  port: 8080\n")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LINE_ACCESS_TOKEN", "env-token")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Line.AccessToken != "env-token" {
		t.Fatalf("env should override file, got %q", cfg.Line.AccessToken)
	}
	if cfg.Line.ChannelSecret != "from-file" || cfg.HTTP.Port != 8080 {
		t.Fatalf("file values lost: %+v %+v", cfg.Line, cfg.HTTP)
	}
}
