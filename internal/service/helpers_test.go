package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/models"
	"github.com/swiftmeta/internal/notify"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		JWT:        config.JWTConfig{SecretKey: "admin-test-secret", ExpireHours: 24},
		AccountJWT: config.JWTConfig{SecretKey: "account-test-secret", ExpireHours: 720},
		OTP: config.OTPConfig{
			Secret:                "otp-test-secret",
			RegisterExpireMinutes: 15,
			LoginExpireMinutes:    10,
			SendIntervalSeconds:   60,
			MaxAttempts:           5,
			ExposeInResponse:      true,
		},
		Security: config.SecurityConfig{
			PasswordPolicy: config.PasswordPolicyConfig{MinLength: 8, RequireUpper: true, RequireLower: true, RequireNumber: true},
		},
		Ticket: config.TicketConfig{AdminEmail: "support@swiftmeta.test"},
		Quiz:   config.QuizConfig{PassPercentage: 50, CooldownDays: 90},
	}
}

// recordingSender 记录所有投递的消息
type recordingSender struct {
	mu       sync.Mutex
	messages []notify.Message
	err      error
}

func (r *recordingSender) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return r.err
}

func (r *recordingSender) sent() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

func newTestNotifier(t *testing.T) (*NotificationService, *recordingSender) {
	t.Helper()
	sender := &recordingSender{}
	svc := NewNotificationService(config.NotificationConfig{MaxRetries: 0, TimeoutSecs: 2}, sender, nil, nil)
	return svc, sender
}

func waitNotifications(t *testing.T, svc *NotificationService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Wait(ctx); err != nil {
		t.Fatalf("wait notifications: %v", err)
	}
}

// testClock 可手动推进的时钟
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
