package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation 判断是否为唯一索引冲突，兼容 sqlite 与 postgres。
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate key value")
}

// UniqueViolationColumn 尽力解析冲突的列名，无法解析时返回空字符串。
// sqlite: "UNIQUE constraint failed: accounts.email"
// postgres: 约束名 "idx_accounts_email"
func UniqueViolationColumn(err error) string {
	if !IsUniqueViolation(err) {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		name := strings.ToLower(pgErr.ConstraintName)
		if pgErr.TableName != "" {
			name = strings.TrimPrefix(name, "idx_"+strings.ToLower(pgErr.TableName)+"_")
		}
		return name
	}
	msg := err.Error()
	idx := strings.LastIndex(msg, "failed:")
	if idx < 0 {
		return ""
	}
	target := strings.TrimSpace(msg[idx+len("failed:"):])
	// modernc 驱动会追加错误码，如 "accounts.phone (2067)"
	if sp := strings.IndexAny(target, " ("); sp >= 0 {
		target = target[:sp]
	}
	// 复合索引会列出多列，取第一列
	if comma := strings.Index(target, ","); comma >= 0 {
		target = target[:comma]
	}
	if dot := strings.LastIndex(target, "."); dot >= 0 {
		target = target[dot+1:]
	}
	return strings.ToLower(strings.TrimSpace(target))
}
