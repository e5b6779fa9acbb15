package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/repository"
)

func TestContactSubmitAndAdminFlow(t *testing.T) {
	db := setupServiceTestDB(t)
	notif, sender := newTestNotifier(t)
	svc := NewContactService(config.TicketConfig{AdminEmail: "ops@swiftmeta.test"}, repository.NewContactRepository(db), notif)

	invalid := []ContactInput{
		{Name: "A", Email: "a@b.com", Message: "long enough message"},
		{Name: "Ann", Email: "nope", Message: "long enough message"},
		{Name: "Ann", Email: "a@b.com", Message: "short"},
		{Name: "Ann", Email: "a@b.com", Subject: strings.Repeat("s", 121), Message: "long enough message"},
	}
	for i, input := range invalid {
		if _, err := svc.Submit(input); !errors.Is(err, ErrBadRequest) {
			t.Fatalf("case %d should be bad request, got %v", i, err)
		}
	}

	contact, err := svc.Submit(ContactInput{Name: "Ann", Email: "Ann@B.com", Message: "I would like to know more", IPAddress: "10.0.0.1", UserAgent: "test"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if contact.Status != constants.ContactStatusNew || contact.Email != "ann@b.com" || contact.IPAddress != "10.0.0.1" {
		t.Fatalf("unexpected contact %+v", contact)
	}
	waitNotifications(t, notif)
	if sent := sender.sent(); len(sent) != 1 || sent[0].To != "ops@swiftmeta.test" {
		t.Fatalf("admin should be notified: %+v", sent)
	}

	if _, err := svc.UpdateStatus(contact.ID, "archived"); !errors.Is(err, ErrStatusInvalid) {
		t.Fatalf("bad status should fail, got %v", err)
	}
	updated, err := svc.UpdateStatus(contact.ID, "Read")
	if err != nil || updated.Status != constants.ContactStatusRead {
		t.Fatalf("update status: %+v %v", updated, err)
	}
	items, total, err := svc.List(repository.ContactListFilter{Status: constants.ContactStatusRead})
	if err != nil || total != 1 || len(items) != 1 {
		t.Fatalf("list: total=%d err=%v", total, err)
	}
	if err := svc.Delete(contact.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(contact.ID); !errors.Is(err, ErrContactNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}
