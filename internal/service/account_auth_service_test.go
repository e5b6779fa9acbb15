package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/swiftmeta/internal/cache"
	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/repository"
)

type accountAuthFixture struct {
	svc    *AccountAuthService
	sender *recordingSender
	notif  *NotificationService
	clock  *testClock
}

func newAccountAuthFixture(t *testing.T) *accountAuthFixture {
	t.Helper()
	cache.UseClient(nil, "")
	cache.ResetLocalRevoked()
	db := setupServiceTestDB(t)
	notif, sender := newTestNotifier(t)
	svc := NewAccountAuthService(
		newTestConfig(),
		repository.NewAccountRepository(db),
		repository.NewRevokedTokenRepository(db),
		notif,
		NewCaptchaService(config.CaptchaConfig{}),
	)
	clock := newTestClock()
	svc.now = clock.Now
	return &accountAuthFixture{svc: svc, sender: sender, notif: notif, clock: clock}
}

func (f *accountAuthFixture) register(t *testing.T, phone, email string) *OTPIssueResult {
	t.Helper()
	result, err := f.svc.Register(RegisterInput{Phone: phone, Email: email, Name: "Thandi"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return result
}

func TestRegisterAndVerifyEmail(t *testing.T) {
	f := newAccountAuthFixture(t)
	result := f.register(t, "+27 82 123 4567", "Thandi@Example.com")
	if result.OTP == "" || len(result.OTP) != 6 {
		t.Fatalf("otp should be exposed in test mode, got %q", result.OTP)
	}
	if got := result.ExpiresAt.Sub(f.clock.Now()); got != 15*time.Minute {
		t.Fatalf("register otp should live 15 minutes, got %s", got)
	}

	waitNotifications(t, f.notif)
	sent := f.sender.sent()
	if len(sent) != 1 || sent[0].To != "thandi@example.com" || !strings.Contains(sent[0].Body, result.OTP) {
		t.Fatalf("unexpected notifications %+v", sent)
	}

	account, err := f.svc.VerifyEmail("thandi@example.com", result.OTP)
	if err != nil {
		t.Fatalf("verify email failed: %v", err)
	}
	if !account.Verified || account.EmailVerifiedAt == nil || account.EmailOTPHash != "" {
		t.Fatalf("account should be verified with cleared slot: %+v", account)
	}
	if _, err := f.svc.VerifyEmail("thandi@example.com", result.OTP); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("code must be single use, got %v", err)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	f := newAccountAuthFixture(t)
	f.register(t, "+27821234567", "a@example.com")

	_, err := f.svc.Register(RegisterInput{Phone: "+27821234567", Email: "b@example.com"})
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Field != "phone" {
		t.Fatalf("want phone conflict, got %v", err)
	}
	_, err = f.svc.Register(RegisterInput{Phone: "+27829999999", Email: "A@example.com"})
	if !errors.As(err, &conflict) || conflict.Field != "email" {
		t.Fatalf("want email conflict, got %v", err)
	}
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("conflict should map to ErrConflict")
	}
}

func TestVerifyOTPStaleSnapshotsCannotExceedBudget(t *testing.T) {
	f := newAccountAuthFixture(t)
	result := f.register(t, "+27821234569", "stale@example.com")
	stale, err := f.svc.accountRepo.GetByEmail("stale@example.com")
	if err != nil || stale == nil {
		t.Fatalf("load account failed: %v", err)
	}

	// 同一快照重复提交，模拟并发请求都读到 attempts=0
	for i := 0; i < 8; i++ {
		snapshot := *stale
		if err := f.svc.consumeOTP(&snapshot, constants.OTPChannelEmail, "000000"); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("guess %d: want invalid code, got %v", i, err)
		}
	}
	reloaded, err := f.svc.accountRepo.GetByEmail("stale@example.com")
	if err != nil || reloaded == nil || reloaded.EmailOTPAttempts != 5 {
		t.Fatalf("attempts should stop at the limit: %+v %v", reloaded, err)
	}
	snapshot := *stale
	if err := f.svc.consumeOTP(&snapshot, constants.OTPChannelEmail, result.OTP); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("correct code after exhausted budget should fail, got %v", err)
	}
}

func TestVerifyOTPExpiresAndLocksAfterAttempts(t *testing.T) {
	f := newAccountAuthFixture(t)
	result := f.register(t, "+27821234567", "a@example.com")

	for i := 0; i < 5; i++ {
		if _, err := f.svc.VerifyEmail("a@example.com", "000000"); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("attempt %d: want invalid code, got %v", i, err)
		}
	}
	if _, err := f.svc.VerifyEmail("a@example.com", result.OTP); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("correct code after max attempts should fail, got %v", err)
	}

	g := newAccountAuthFixture(t)
	result = g.register(t, "+27821234568", "b@example.com")
	g.clock.Advance(16 * time.Minute)
	if _, err := g.svc.VerifyEmail("b@example.com", result.OTP); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expired code should fail, got %v", err)
	}
}

func TestRequestLoginOTPDoesNotLeakAccounts(t *testing.T) {
	f := newAccountAuthFixture(t)
	result, err := f.svc.RequestLoginOTP(OTPRequestInput{Email: "ghost@example.com"})
	if err != nil {
		t.Fatalf("unknown email should not fail: %v", err)
	}
	if result.Message != otpSentMessage || result.OTP != "" {
		t.Fatalf("unexpected masked result %+v", result)
	}
	waitNotifications(t, f.notif)
	if n := len(f.sender.sent()); n != 0 {
		t.Fatalf("no notification expected for unknown account, got %d", n)
	}
	if _, err := f.svc.RequestLoginOTP(OTPRequestInput{Email: "a@example.com", Phone: "+27821234567"}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("both identifiers should be rejected, got %v", err)
	}
}

func TestLoginOTPSessionAndLogout(t *testing.T) {
	f := newAccountAuthFixture(t)
	f.register(t, "+27821234567", "a@example.com")

	// 发送间隔内的重复请求返回相同结构但不下发
	suppressed, err := f.svc.RequestLoginOTP(OTPRequestInput{Email: "a@example.com"})
	if err != nil || suppressed.OTP != "" {
		t.Fatalf("resend within interval should be suppressed: %+v %v", suppressed, err)
	}

	f.clock.Advance(2 * time.Minute)
	issued, err := f.svc.RequestLoginOTP(OTPRequestInput{Phone: "082 123 4567 "})
	if err != nil {
		t.Fatalf("request login otp: %v", err)
	}
	if issued.OTP != "" {
		t.Fatalf("phone lookup should not match a +27 number, got otp")
	}

	issued, err = f.svc.RequestLoginOTP(OTPRequestInput{Phone: "+27 82 123 4567"})
	if err != nil || issued.OTP == "" || issued.Channel != "phone" {
		t.Fatalf("phone otp should be issued: %+v %v", issued, err)
	}
	if got := issued.ExpiresAt.Sub(f.clock.Now()); got != 10*time.Minute {
		t.Fatalf("login otp should live 10 minutes, got %s", got)
	}

	session, err := f.svc.VerifyLoginOTP(OTPVerifyInput{Phone: "+27821234567", Code: issued.OTP})
	if err != nil {
		t.Fatalf("verify login otp: %v", err)
	}
	if session.Token == "" || session.Account.LastLoginAt == nil {
		t.Fatalf("unexpected session %+v", session)
	}

	ctx := context.Background()
	account, claims, err := f.svc.Authenticate(ctx, session.Token)
	if err != nil || account.ID != session.Account.ID {
		t.Fatalf("authenticate: %v", err)
	}
	if err := f.svc.Logout(ctx, claims); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := f.svc.Authenticate(ctx, session.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("revoked token should be rejected, got %v", err)
	}

	cache.ResetLocalRevoked()
	if _, _, err := f.svc.Authenticate(ctx, session.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("database should still report revocation, got %v", err)
	}

	purged, err := f.svc.PurgeRevokedTokens(f.clock.Now().Add(721 * time.Hour))
	if err != nil || purged != 1 {
		t.Fatalf("purge should remove expired revocation, purged=%d err=%v", purged, err)
	}
}

func TestPasswordLogin(t *testing.T) {
	f := newAccountAuthFixture(t)
	result := f.register(t, "+27821234567", "a@example.com")
	account, err := f.svc.accountRepo.GetByEmail("a@example.com")
	if err != nil || account == nil {
		t.Fatalf("load account: %v", err)
	}

	if _, err := f.svc.PasswordLogin("a@example.com", "Secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("no password set should be invalid credentials, got %v", err)
	}
	if err := f.svc.SetPassword(account.ID, "weak"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("weak password should be rejected, got %v", err)
	}
	if err := f.svc.SetPassword(account.ID, "Secret123"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if _, err := f.svc.PasswordLogin("a@example.com", "Secret123"); !errors.Is(err, ErrAccountNotVerified) {
		t.Fatalf("unverified account should be refused, got %v", err)
	}
	if _, err := f.svc.VerifyEmail("a@example.com", result.OTP); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, err := f.svc.PasswordLogin("a@example.com", "Wrong1234"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password should fail, got %v", err)
	}
	session, err := f.svc.PasswordLogin("A@example.com", "Secret123")
	if err != nil || session.Token == "" {
		t.Fatalf("password login: %v", err)
	}
}

func TestParseTokenRejectsTampered(t *testing.T) {
	f := newAccountAuthFixture(t)
	if _, err := f.svc.ParseToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token should be invalid, got %v", err)
	}
	f.register(t, "+27821234567", "a@example.com")
	account, _ := f.svc.accountRepo.GetByEmail("a@example.com")
	token, _, err := f.svc.generateToken(account, f.clock.Now())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := f.svc.ParseToken(token + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("tampered token should be invalid, got %v", err)
	}
	f.clock.Advance(721 * time.Hour)
	if _, err := f.svc.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token should be invalid, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	f := newAccountAuthFixture(t)
	f.register(t, "+27821234567", "a@example.com")
	account, _ := f.svc.accountRepo.GetByEmail("a@example.com")

	name := "  Sipho "
	avatar := "https://cdn.example.com/a.png"
	updated, err := f.svc.UpdateProfile(account.ID, UpdateProfileInput{DisplayName: &name, AvatarURL: &avatar})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.DisplayName != "Sipho" || updated.AvatarURL != avatar {
		t.Fatalf("unexpected profile %+v", updated)
	}
	bad := "javascript:alert(1)"
	if _, err := f.svc.UpdateProfile(account.ID, UpdateProfileInput{AvatarURL: &bad}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("bad avatar should be rejected, got %v", err)
	}
	for _, offsite := range []string{"//evil.example/a.png", "/\\evil.example/a.png"} {
		avatar := offsite
		if _, err := f.svc.UpdateProfile(account.ID, UpdateProfileInput{AvatarURL: &avatar}); !errors.Is(err, ErrBadRequest) {
			t.Fatalf("protocol-relative avatar %q should be rejected, got %v", offsite, err)
		}
	}
	local := "/uploads/a.png"
	if updated, err := f.svc.UpdateProfile(account.ID, UpdateProfileInput{AvatarURL: &local}); err != nil || updated.AvatarURL != local {
		t.Fatalf("site path avatar should be accepted: %+v %v", updated, err)
	}
}

func TestIsSitePath(t *testing.T) {
	cases := map[string]bool{
		"/uploads/a.png":          true,
		"/a?b=c":                  true,
		"//evil.example/x":        false,
		"/\\evil.example/x":       false,
		"uploads/a.png":           false,
		"https://cdn.example.com": false,
	}
	for raw, want := range cases {
		if got := isSitePath(raw); got != want {
			t.Fatalf("isSitePath(%q) = %v, want %v", raw, got, want)
		}
	}
}
