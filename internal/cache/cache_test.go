package cache

import (
	"context"
	"testing"
	"time"

	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/models"
)

func TestRevokedTokenFallsBackToLocalLRU(t *testing.T) {
	UseClient(nil, "")
	ResetLocalRevoked()
	ctx := context.Background()

	if revoked, hit, err := IsTokenRevokedCached(ctx, "jti-1"); err != nil || revoked || hit {
		t.Fatalf("fresh jti should miss: revoked=%v hit=%v err=%v", revoked, hit, err)
	}
	if err := MarkTokenRevoked(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("mark revoked: %v", err)
	}
	if revoked, hit, err := IsTokenRevokedCached(ctx, "jti-1"); err != nil || !revoked || !hit {
		t.Fatalf("revoked jti should hit: revoked=%v hit=%v err=%v", revoked, hit, err)
	}
	if err := MarkTokenRevoked(ctx, "jti-2", 0); err != nil {
		t.Fatalf("zero ttl should be ignored: %v", err)
	}
	if revoked, _, _ := IsTokenRevokedCached(ctx, "jti-2"); revoked {
		t.Fatalf("expired token should not be cached")
	}
}

func TestDisabledRedisIsNoop(t *testing.T) {
	UseClient(nil, "")
	ctx := context.Background()
	if Enabled() {
		t.Fatalf("cache should be disabled")
	}
	if err := SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute); err != nil {
		t.Fatalf("set json: %v", err)
	}
	var dest map[string]int
	if hit, err := GetJSON(ctx, "k", &dest); err != nil || hit {
		t.Fatalf("disabled cache should miss, hit=%v err=%v", hit, err)
	}
	if state, hit, err := GetAdminAuthState(ctx, 1); state != nil || hit || err != nil {
		t.Fatalf("disabled cache should miss admin state")
	}
}

func TestBuildAdminAuthState(t *testing.T) {
	now := time.Unix(1700000000, 0)
	state := BuildAdminAuthState(&models.Admin{ID: 3, Username: "ops", TokenVersion: 2, TokenInvalidBefore: &now, IsSuper: true})
	if state.AdminID != 3 || state.TokenVersion != 2 || !state.IsSuper || state.TokenInvalidBefore != now.Unix() {
		t.Fatalf("unexpected state %+v", state)
	}
	if BuildAdminAuthState(nil) != nil {
		t.Fatalf("nil admin should give nil state")
	}
}

func TestKeyUsesPrefix(t *testing.T) {
	UseClient(nil, "app")
	if got := Key("auth:revoked:x"); got != "app:auth:revoked:x" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestInitRedisUnreachableStaysDisabled(t *testing.T) {
	ctx := context.Background()
	if err := InitRedis(ctx, &config.RedisConfig{Enabled: false}); err != nil || Enabled() {
		t.Fatalf("disabled config should be a no-op, err=%v", err)
	}
	err := InitRedis(ctx, &config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1, Prefix: "probe"})
	if err == nil {
		t.Fatalf("unreachable redis should report an error")
	}
	if Enabled() {
		t.Fatalf("failed ping must leave cache disabled")
	}
	if got := Key("x"); got != "probe:x" {
		t.Fatalf("prefix should still apply, got %s", got)
	}
	UseClient(nil, "")
}
