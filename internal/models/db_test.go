package models

import (
	"fmt"
	"testing"
	"time"
)

func TestInitDBZeroPoolKeepsMemoryDatabase(t *testing.T) {
	dsn := fmt.Sprintf("file:models_pool_%d?mode=memory&cache=shared", time.Now().UnixNano())
	if err := InitDB("sqlite", dsn, false, DBPoolConfig{}); err != nil {
		t.Fatalf("init db failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
		DB = nil
	})
	if err := AutoMigrate(); err != nil {
		t.Fatalf("migrate with zero pool config failed: %v", err)
	}
	if !DB.Migrator().HasTable(&Admin{}) {
		t.Fatalf("admins table should survive between statements")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if idle := sqlDB.Stats().Idle; idle == 0 {
		t.Fatalf("idle connection should be retained, stats=%+v", sqlDB.Stats())
	}
}
