//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"

	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}
	all := models.AllModels()
	_ = db.Migrator().DropTable(all...)
	if err := db.AutoMigrate(all...); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Migrator().DropTable(all...)
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestPostgresUniqueViolationAndSearch(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewTicketRepository(db)
	ticket := &models.Ticket{
		TicketID:    "PGX-ABC-2345",
		Email:       "pg@example.com",
		Subject:     "Login trouble",
		Status:      constants.TicketStatusOpen,
		LastReplyBy: constants.TicketSenderUser,
	}
	if err := repo.Create(ticket); err != nil {
		t.Fatalf("create ticket failed: %v", err)
	}
	dup := *ticket
	dup.ID = 0
	err := repo.Create(&dup)
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation from postgres, got %v", err)
	}
	if col := UniqueViolationColumn(err); col != "ticket_id" {
		t.Fatalf("expected ticket_id column, got %q", col)
	}

	tickets, total, err := repo.List(TicketListFilter{Page: 1, PageSize: 10, Search: "LOGIN"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(tickets) != 1 {
		t.Fatalf("ILIKE search should match case-insensitively, got %d", total)
	}
}

func TestPostgresLikeToggle(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewLikeRepository(db)
	liked, count, err := repo.Toggle(constants.LikeTargetPost, 1, 1)
	if err != nil || !liked || count != 1 {
		t.Fatalf("toggle on want liked=true count=1, got %v %d %v", liked, count, err)
	}
	liked, count, err = repo.Toggle(constants.LikeTargetPost, 1, 1)
	if err != nil || liked || count != 0 {
		t.Fatalf("toggle off want liked=false count=0, got %v %d %v", liked, count, err)
	}
}
