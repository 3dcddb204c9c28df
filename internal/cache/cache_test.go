package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/avatarstudio/avatarstudio/internal/testutil"
)

func TestHashClient_Deterministic(t *testing.T) {
	t.Parallel()

	if hashClient("192.168.1.100") != hashClient("192.168.1.100") {
		t.Error("Same client should produce same hash")
	}
}

func TestHashClient_Length(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		client string
	}{
		{"IPv4", "192.168.1.1"},
		{"IPv6 localhost", "::1"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := len(hashClient(tt.client)); got != 16 {
				t.Errorf("hashClient(%q) length = %d, want 16", tt.client, got)
			}
		})
	}
}

func TestRateLimitKey_ScopesAreSeparate(t *testing.T) {
	t.Parallel()

	access := RateLimitKey("share_access", "10.0.0.1")
	login := RateLimitKey("login", "10.0.0.1")

	if access == login {
		t.Error("different scopes should produce different keys")
	}
	if !strings.HasPrefix(access, "ratelimit:share_access:") {
		t.Errorf("unexpected key %q", access)
	}
}

func TestStripPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{DefaultKeyPrefix, "studio:kv:leads", "leads"},
		{DefaultKeyPrefix, "studio:kv:analytics_summary", "analytics_summary"},
		{DefaultKeyPrefix, "studio:kv:", ""},
		{DefaultKeyPrefix, "short", ""},
		{"tenant-a:", "tenant-a:shared_videos", "shared_videos"},
		{"tenant-a:", "tenant-b:shared_videos", ""},
	}

	for _, tt := range tests {
		if got := stripPrefix(tt.prefix, tt.key); got != tt.want {
			t.Errorf("stripPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
		}
	}
}

func TestCheckRateLimit_Unlimited(t *testing.T) {
	t.Parallel()

	// Unlimited buckets never touch Redis.
	c := &Cache{}
	res, err := c.CheckRateLimit(context.Background(), "login", "1.2.3.4", 0, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed {
		t.Error("unlimited bucket should allow")
	}
}

func newIntegrationCache(t *testing.T) *Cache {
	t.Helper()
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	c, err := New(context.Background(), redisURL, WithKeyPrefix("test:kv:"), WithPoolSize(4))
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	if err := testutil.FlushRedis(context.Background(), c.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return c
}

func TestCache_KV_Integration(t *testing.T) {
	c := newIntegrationCache(t)
	ctx := context.Background()

	if _, found, err := c.Get(ctx, "leads"); err != nil || found {
		t.Fatalf("Get(missing) = %v, %v", found, err)
	}
	if err := c.Set(ctx, "leads", "[]"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, found, err := c.Get(ctx, "leads")
	if err != nil || !found || v != "[]" {
		t.Errorf("Get = %q, %v, %v", v, found, err)
	}

	keys, err := c.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "leads" {
		t.Errorf("Keys = %v, want [leads]", keys)
	}
}

func TestCache_RateLimit_Integration(t *testing.T) {
	c := newIntegrationCache(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := c.CheckRateLimit(ctx, "share_access", "10.1.1.1", 1, 3)
		if err != nil || !res.Allowed {
			t.Fatalf("request %d should be allowed: %+v, %v", i, res, err)
		}
	}

	res, err := c.CheckRateLimit(ctx, "share_access", "10.1.1.1", 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed {
		t.Error("fourth request should exceed burst")
	}
	if res.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want > 0", res.RetryAfter)
	}
}
