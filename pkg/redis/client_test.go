package redis

import (
	"testing"

	"github.com/osteria-app/osteria-backend/pkg/config"
)

func TestBuildKeySkipsEmptyParts(t *testing.T) {
	c := &Client{}
	if got := c.IdempotencyKey("paypal-webhook", "evt-1"); got != "osteria:idempotency:paypal-webhook:evt-1" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := c.IdempotencyKey("", "evt-1"); got != "osteria:idempotency:evt-1" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := c.LockKey("cron"); got != "osteria:lock:cron" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither url nor address provided")
	}
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 2 {
		t.Fatalf("expected db 2 from url, got %d", opts.DB)
	}
}
