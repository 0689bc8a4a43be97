//go:build !integration

package config

import (
	"testing"
	"time"
)

const baseYAML = `
bot:
  token: "123:abc"
  channel_chat_id: -1001
  webhook_secret: "s3cret"
  admin_ids: [42]
database:
  url: "postgres://localhost/padel"
redis:
  url: "localhost:6379"
sync:
  timeout: 5s
`

func TestParse(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		cfg, err := Parse([]byte(baseYAML), false)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if cfg.Sync.Timeout != 5*time.Second {
			t.Errorf("expected sync.timeout 5s, got %s", cfg.Sync.Timeout)
		}
		if cfg.Bot.WebhookPath != "/api/telegram/webhook" {
			t.Errorf("unexpected webhook path %q", cfg.Bot.WebhookPath)
		}
		if cfg.Sync.SweepCron == "" || cfg.Render.TimeZone != "UTC" {
			t.Error("expected sweep cron and time zone defaults")
		}
		if !cfg.Bot.IsAdmin(42) || cfg.Bot.IsAdmin(7) {
			t.Error("admin lookup is wrong")
		}
	})

	t.Run("should let environment override yaml", func(t *testing.T) {
		t.Setenv("TELEGRAM_WEBHOOK_SECRET", "from-env")
		t.Setenv("DATABASE_URL", "postgres://env/padel")
		cfg, err := Parse([]byte(baseYAML), false)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if cfg.Bot.WebhookSecret != "from-env" {
			t.Errorf("expected secret from env, got %q", cfg.Bot.WebhookSecret)
		}
		if cfg.Database.URL != "postgres://env/padel" {
			t.Errorf("expected database url from env, got %q", cfg.Database.URL)
		}
	})

	t.Run("should require a webhook secret", func(t *testing.T) {
		_, err := Parse([]byte(`
bot:
  token: "x"
  channel_chat_id: 1
database:
  url: "postgres://x"
redis:
  url: "x"
`), false)
		if err == nil {
			t.Fatal("expected an error for a missing webhook secret")
		}
	})

	t.Run("should reject an unknown time zone", func(t *testing.T) {
		_, err := Parse([]byte(baseYAML+"render:\n  time_zone: \"Mars/Olympus\"\n"), false)
		if err == nil {
			t.Fatal("expected an error for an invalid time zone")
		}
	})
}

func TestSecrets(t *testing.T) {
	t.Run("should list configured credentials", func(t *testing.T) {
		cfg, err := Parse([]byte(baseYAML), false)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		got := map[string]bool{}
		for _, s := range cfg.Secrets() {
			got[s] = true
		}
		for _, want := range []string{"123:abc", "s3cret", "postgres://localhost/padel"} {
			if !got[want] {
				t.Errorf("missing secret %q in %v", want, cfg.Secrets())
			}
		}
	})

	t.Run("should read secret values from the environment", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "999:from-env")
		t.Setenv("LOG_LEVEL", "debug")
		found := false
		for _, s := range EnvSecrets() {
			if s == "debug" {
				t.Fatal("non-secret variables must not be listed")
			}
			if s == "999:from-env" {
				found = true
			}
		}
		if !found {
			t.Fatal("bot token from the environment is missing")
		}
	})
}
