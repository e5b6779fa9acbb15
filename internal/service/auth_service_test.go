package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/swiftmeta/internal/cache"
	"github.com/swiftmeta/internal/repository"
)

func TestAdminLoginAndAuthenticate(t *testing.T) {
	cache.UseClient(nil, "")
	db := setupServiceTestDB(t)
	svc := NewAuthService(newTestConfig(), repository.NewAdminRepository(db))

	if _, err := svc.CreateAdmin("ops", "Passw0rd!", false); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if _, err := svc.CreateAdmin("ops", "Passw0rd!", false); !errors.Is(err, ErrAdminExists) {
		t.Fatalf("duplicate admin should conflict, got %v", err)
	}
	if _, _, _, err := svc.Login("ops", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password should fail, got %v", err)
	}
	admin, token, _, err := svc.Login("ops", "Passw0rd!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	principal, err := svc.Authenticate(context.Background(), token)
	if err != nil || principal.AdminID != admin.ID || principal.IsSuper {
		t.Fatalf("authenticate: %+v %v", principal, err)
	}
}

func TestAdminChangePasswordRevokesTokens(t *testing.T) {
	cache.UseClient(nil, "")
	db := setupServiceTestDB(t)
	svc := NewAuthService(newTestConfig(), repository.NewAdminRepository(db))
	clock := newTestClock()
	svc.now = clock.Now

	admin, err := svc.CreateAdmin("root", "Passw0rd!", true)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	_, token, _, err := svc.Login("root", "Passw0rd!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.ChangePassword(admin.ID, "bad", "N3wPassword"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("wrong old password should fail, got %v", err)
	}
	clock.Advance(time.Second)
	if err := svc.ChangePassword(admin.ID, "Passw0rd!", "N3wPassword"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("old token should be revoked, got %v", err)
	}
}
