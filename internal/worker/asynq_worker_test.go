package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/swiftmeta/internal/notify"
	"github.com/swiftmeta/internal/queue"

	"github.com/hibiken/asynq"
)

type deliverFunc func(ctx context.Context, msg notify.Message) error

func (f deliverFunc) Deliver(ctx context.Context, msg notify.Message) error { return f(ctx, msg) }

type purgeFunc func(now time.Time) (int64, error)

func (f purgeFunc) PurgeRevokedTokens(now time.Time) (int64, error) { return f(now) }

func notificationTask(t *testing.T, payload queue.NotificationPayload) *asynq.Task {
	t.Helper()
	task, err := queue.NewNotificationTask(payload)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	return task
}

func TestHandleNotificationSend(t *testing.T) {
	var got []notify.Message
	sendErr := error(nil)
	c := &Consumer{notifier: deliverFunc(func(_ context.Context, msg notify.Message) error {
		got = append(got, msg)
		return sendErr
	})}

	task := notificationTask(t, queue.NotificationPayload{Channel: notify.ChannelEmail, To: " a@b.com ", Subject: "hi", Body: "body", Event: "ticket_created"})
	if err := c.handleNotificationSend(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(got) != 1 || got[0].To != "a@b.com" || got[0].Subject != "hi" {
		t.Fatalf("unexpected delivery %+v", got)
	}

	sendErr = errors.New("smtp timeout")
	if err := c.handleNotificationSend(context.Background(), task); err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("transient failure should be retried, got %v", err)
	}

	if err := c.handleNotificationSend(context.Background(), asynq.NewTask(queue.TaskNotificationSend, []byte("{"))); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("bad payload should skip retry, got %v", err)
	}

	invalid := notificationTask(t, queue.NotificationPayload{Channel: notify.ChannelEmail, Body: "no recipient"})
	if err := c.handleNotificationSend(context.Background(), invalid); err != nil {
		t.Fatalf("invalid message should be dropped, got %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("invalid message must not be delivered, deliveries=%d", len(got))
	}
}

func TestHandleRevokedTokenPurge(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var seen time.Time
	c := &Consumer{
		purger: purgeFunc(func(now time.Time) (int64, error) {
			seen = now
			return 3, nil
		}),
		now: func() time.Time { return fixed },
	}
	if err := c.handleRevokedTokenPurge(context.Background(), queue.NewRevokedTokenPurgeTask()); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if !seen.Equal(fixed) {
		t.Fatalf("purge should use consumer clock, got %s", seen)
	}

	c.purger = purgeFunc(func(time.Time) (int64, error) { return 0, errors.New("db down") })
	if err := c.handleRevokedTokenPurge(context.Background(), queue.NewRevokedTokenPurgeTask()); err == nil {
		t.Fatalf("purge failure should be returned for retry")
	}
}
