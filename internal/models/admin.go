package models

import (
	"time"

	"gorm.io/datatypes"
)

// Admin 后台运营账号
type Admin struct {
	ID                 uint       `gorm:"primarykey" json:"id"`                         // 主键
	Username           string     `gorm:"uniqueIndex;size:64;not null" json:"username"` // 登录名
	PasswordHash       string     `gorm:"not null" json:"-"`                            // bcrypt 哈希
	TokenVersion       uint64     `gorm:"not null;default:0" json:"-"`                  // 递增后旧 Token 全部失效
	TokenInvalidBefore *time.Time `json:"-"`                                            // 该时间点前签发的 Token 失效
	IsSuper            bool       `gorm:"not null;default:false" json:"is_super"`       // 超级管理员跳过 RBAC
	LastLoginAt        *time.Time `json:"last_login_at"`                                // 最后登录时间
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}

// AdminAuditLog 后台操作审计
type AdminAuditLog struct {
	ID               uint              `gorm:"primarykey" json:"id"`
	OperatorAdminID  uint              `gorm:"index;not null" json:"operator_admin_id"`
	OperatorUsername string            `gorm:"size:64;not null;default:''" json:"operator_username"`
	Action           string            `gorm:"size:64;index;not null" json:"action"`
	TargetType       string            `gorm:"size:32;index;not null;default:''" json:"target_type"`
	TargetID         string            `gorm:"size:64;index;not null;default:''" json:"target_id"`
	RequestID        string            `gorm:"size:64;not null;default:''" json:"request_id"`
	Detail           datatypes.JSONMap `json:"detail"`
	CreatedAt        time.Time         `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (AdminAuditLog) TableName() string {
	return "admin_audit_logs"
}
