package models

import (
	"time"
)

// Account 前台用户账号，同时承载邮箱与手机两个验证码槽位
type Account struct {
	ID              uint       `gorm:"primarykey" json:"id"`
	Phone           string     `gorm:"uniqueIndex;size:32;not null" json:"phone"`
	Email           string     `gorm:"uniqueIndex;size:255;not null" json:"email"` // 小写存储
	DisplayName     string     `gorm:"size:120;not null;default:''" json:"display_name"`
	AvatarURL       string     `gorm:"size:512;not null;default:''" json:"avatar_url"`
	PasswordHash    string     `gorm:"not null;default:''" json:"-"`
	Verified        bool       `gorm:"not null;default:false" json:"verified"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	PhoneVerifiedAt *time.Time `json:"phone_verified_at"`
	LastLoginAt     *time.Time `json:"last_login_at"`

	EmailOTPHash      string     `gorm:"size:128;not null;default:''" json:"-"`
	EmailOTPExpiresAt *time.Time `json:"-"`
	EmailOTPAttempts  int        `gorm:"not null;default:0" json:"-"`
	EmailOTPSentAt    *time.Time `json:"-"`
	PhoneOTPHash      string     `gorm:"size:128;not null;default:''" json:"-"`
	PhoneOTPExpiresAt *time.Time `json:"-"`
	PhoneOTPAttempts  int        `gorm:"not null;default:0" json:"-"`
	PhoneOTPSentAt    *time.Time `json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Account) TableName() string {
	return "accounts"
}

// HasPassword 是否设置过密码
func (a *Account) HasPassword() bool {
	return a != nil && a.PasswordHash != ""
}

// AccountSummary 对外展示的作者信息
type AccountSummary struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Summary 转换为作者信息
func (a *Account) Summary() AccountSummary {
	if a == nil {
		return AccountSummary{}
	}
	return AccountSummary{ID: a.ID, DisplayName: a.DisplayName, AvatarURL: a.AvatarURL}
}

// RevokedToken 已注销的会话 Token，过期后由定时任务清理
type RevokedToken struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	JTI       string    `gorm:"column:jti;uniqueIndex;size:64;not null" json:"jti"`
	AccountID uint      `gorm:"index;not null" json:"account_id"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (RevokedToken) TableName() string {
	return "revoked_tokens"
}
