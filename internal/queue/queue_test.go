package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/swiftmeta/internal/config"
)

func TestDisabledClientReportsQueueDisabled(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	err = client.EnqueueNotification(context.Background(), NotificationPayload{Channel: "email", To: "a@example.com", Body: "x"})
	if !errors.Is(err, ErrQueueDisabled) {
		t.Fatalf("want ErrQueueDisabled, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close disabled client: %v", err)
	}
}

func TestNewNotificationTask(t *testing.T) {
	task, err := NewNotificationTask(NotificationPayload{Channel: "sms", To: "+27821234567", Body: "code", Event: "login_otp"})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskNotificationSend {
		t.Fatalf("unexpected type %s", task.Type())
	}
	var payload NotificationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if payload.Channel != "sms" || payload.Event != "login_otp" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: " redis ", Port: 6380})
	if opt.Addr != "redis:6380" || opt.DB != 0 {
		t.Fatalf("unexpected addr %s", opt.Addr)
	}
	if cfg.Concurrency != 10 {
		t.Fatalf("unexpected concurrency %d", cfg.Concurrency)
	}
	if cfg.Queues[DefaultQueue] != 1 {
		t.Fatalf("default queue missing: %+v", cfg.Queues)
	}
}

func TestNotificationOptionsPerChannel(t *testing.T) {
	sms := notificationOptions(NotificationPayload{Channel: "sms"}, DefaultQueue)
	email := notificationOptions(NotificationPayload{Channel: "email"}, DefaultQueue)
	if sms[1].Value() != 3 || email[1].Value() != 5 {
		t.Fatalf("unexpected retry budget sms=%v email=%v", sms[1].Value(), email[1].Value())
	}
	if sms[2].Value() != 30*time.Second {
		t.Fatalf("sms timeout want 30s got %v", sms[2].Value())
	}
	if opt, _ := BuildServerConfig(nil); opt.Addr != "127.0.0.1:6379" {
		t.Fatalf("nil config should use local redis, got %s", opt.Addr)
	}
}
