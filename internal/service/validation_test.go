package service

import (
	"errors"
	"testing"
)

func TestValidSAIDNumber(t *testing.T) {
	cases := map[string]bool{
		"8001015009087":  true,
		"9002150123088":  true,
		"8506304800186":  true,
		"8001015009088":  false, // 校验位错误
		"8013015009087":  false, // 月份非法
		"8001015009287":  false, // 公民标识只能是 0/1
		"800101500908":   false,
		"80010150090877": false,
		"80010150090a7":  false,
	}
	for id, want := range cases {
		if got := ValidSAIDNumber(id); got != want {
			t.Fatalf("ValidSAIDNumber(%q)=%v want %v", id, got, want)
		}
	}
}

func TestNormalizeEmailAndPhone(t *testing.T) {
	email, err := NormalizeEmail("  Jane.Doe@Example.COM ")
	if err != nil || email != "jane.doe@example.com" {
		t.Fatalf("normalize email: %q %v", email, err)
	}
	if _, err := NormalizeEmail("Jane <jane@example.com>"); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("display-name form should be rejected, got %v", err)
	}

	phone, err := NormalizePhone("+27 (82) 555-0101")
	if err != nil || phone != "+27825550101" {
		t.Fatalf("normalize phone: %q %v", phone, err)
	}
	for _, bad := range []string{"", "12345", "+27x825550101", "1234567890123456"} {
		if _, err := NormalizePhone(bad); !errors.Is(err, ErrBadRequest) {
			t.Fatalf("NormalizePhone(%q) should fail, got %v", bad, err)
		}
	}
}
