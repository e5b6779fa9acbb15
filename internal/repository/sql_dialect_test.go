package repository

import (
	"strings"
	"testing"
)

func TestLikeOperatorByDialect(t *testing.T) {
	if got := likeOperatorByDialect("postgres"); got != "ILIKE" {
		t.Fatalf("postgres should use ILIKE, got %s", got)
	}
	if got := likeOperatorByDialect("sqlite"); got != "LIKE" {
		t.Fatalf("sqlite should use LIKE, got %s", got)
	}
}

func TestBuildLikeCondition(t *testing.T) {
	cond, args := buildLikeCondition(nil, "50%_off", "email", " ", "subject")
	if len(args) != 2 {
		t.Fatalf("arg count want 2 got %d", len(args))
	}
	if !strings.Contains(cond, "email LIKE ?") || !strings.Contains(cond, "subject LIKE ?") {
		t.Fatalf("unexpected condition: %s", cond)
	}
	if args[0] != `%50\%\_off%` {
		t.Fatalf("wildcards should be escaped, got %v", args[0])
	}
}

func TestBuildLikeConditionEmptyKeyword(t *testing.T) {
	cond, args := buildLikeCondition(nil, "   ", "email")
	if cond != "" || args != nil {
		t.Fatalf("empty keyword should produce no condition, got %q %v", cond, args)
	}
}
