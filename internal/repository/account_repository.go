package repository

import (
	"errors"
	"time"

	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/models"

	"gorm.io/gorm"
)

// OTPSlot 验证码槽位写入参数
type OTPSlot struct {
	Hash      string
	ExpiresAt time.Time
	SentAt    time.Time
}

// AccountRepository 账号数据访问接口
type AccountRepository interface {
	GetByID(id uint) (*models.Account, error)
	GetByEmail(email string) (*models.Account, error)
	GetByPhone(phone string) (*models.Account, error)
	ListByIDs(ids []uint) ([]models.Account, error)
	ExistsByEmailOrPhone(email, phone string) (emailTaken bool, phoneTaken bool, err error)
	Create(account *models.Account) error
	UpdateProfile(id uint, fields map[string]interface{}) error
	SetOTP(id uint, channel string, slot OTPSlot) error
	IncrementOTPAttempts(id uint, channel string, limit int) (bool, error)
	ConsumeOTP(id uint, channel string, hash string, now time.Time, limit int) (bool, error)
	SetPassword(id uint, hash string) error
	TouchLastLogin(id uint, at time.Time) error
}

// GormAccountRepository GORM 实现
type GormAccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository 创建账号仓库
func NewAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

func (r *GormAccountRepository) first(query *gorm.DB) (*models.Account, error) {
	var account models.Account
	if err := query.First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetByID 根据 ID 获取账号
func (r *GormAccountRepository) GetByID(id uint) (*models.Account, error) {
	if id == 0 {
		return nil, nil
	}
	return r.first(r.db.Where("id = ?", id))
}

// GetByEmail 根据邮箱获取账号
func (r *GormAccountRepository) GetByEmail(email string) (*models.Account, error) {
	if email == "" {
		return nil, nil
	}
	return r.first(r.db.Where("email = ?", email))
}

// GetByPhone 根据手机号获取账号
func (r *GormAccountRepository) GetByPhone(phone string) (*models.Account, error) {
	if phone == "" {
		return nil, nil
	}
	return r.first(r.db.Where("phone = ?", phone))
}

// ListByIDs 批量获取账号
func (r *GormAccountRepository) ListByIDs(ids []uint) ([]models.Account, error) {
	if len(ids) == 0 {
		return []models.Account{}, nil
	}
	var accounts []models.Account
	if err := r.db.Where("id IN ?", ids).Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// ExistsByEmailOrPhone 分别判断邮箱和手机号是否已被占用
func (r *GormAccountRepository) ExistsByEmailOrPhone(email, phone string) (bool, bool, error) {
	var rows []models.Account
	if err := r.db.Select("id", "email", "phone").
		Where("email = ? OR phone = ?", email, phone).
		Find(&rows).Error; err != nil {
		return false, false, err
	}
	var emailTaken, phoneTaken bool
	for _, row := range rows {
		if row.Email == email {
			emailTaken = true
		}
		if row.Phone == phone {
			phoneTaken = true
		}
	}
	return emailTaken, phoneTaken, nil
}

// Create 创建账号
func (r *GormAccountRepository) Create(account *models.Account) error {
	return r.db.Create(account).Error
}

// UpdateProfile 更新资料字段
func (r *GormAccountRepository) UpdateProfile(id uint, fields map[string]interface{}) error {
	if id == 0 || len(fields) == 0 {
		return nil
	}
	return r.db.Model(&models.Account{}).Where("id = ?", id).Updates(fields).Error
}

func otpColumns(channel string) (hash, expires, attempts, sent string) {
	if channel == constants.OTPChannelPhone {
		return "phone_otp_hash", "phone_otp_expires_at", "phone_otp_attempts", "phone_otp_sent_at"
	}
	return "email_otp_hash", "email_otp_expires_at", "email_otp_attempts", "email_otp_sent_at"
}

// SetOTP 覆盖写入验证码槽位，同时重置尝试次数
func (r *GormAccountRepository) SetOTP(id uint, channel string, slot OTPSlot) error {
	hashCol, expiresCol, attemptsCol, sentCol := otpColumns(channel)
	return r.db.Model(&models.Account{}).Where("id = ?", id).Updates(map[string]interface{}{
		hashCol:     slot.Hash,
		expiresCol:  slot.ExpiresAt,
		attemptsCol: 0,
		sentCol:     slot.SentAt,
	}).Error
}

// IncrementOTPAttempts 在次数低于 limit 时占用一次尝试，返回 false 表示额度已用尽
func (r *GormAccountRepository) IncrementOTPAttempts(id uint, channel string, limit int) (bool, error) {
	_, _, attemptsCol, _ := otpColumns(channel)
	result := r.db.Model(&models.Account{}).
		Where("id = ? AND "+attemptsCol+" < ?", id, limit).
		UpdateColumn(attemptsCol, gorm.Expr(attemptsCol+" + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ConsumeOTP 条件更新清空槽位并标记已验证，只有槽位仍为 hash、未过期且尝试次数未超过 limit 时才生效。
// 返回 false 表示验证码已被并发消费或已失效。
func (r *GormAccountRepository) ConsumeOTP(id uint, channel string, hash string, now time.Time, limit int) (bool, error) {
	hashCol, expiresCol, attemptsCol, _ := otpColumns(channel)
	verifiedCol := "email_verified_at"
	if channel == constants.OTPChannelPhone {
		verifiedCol = "phone_verified_at"
	}
	result := r.db.Model(&models.Account{}).
		Where("id = ? AND "+hashCol+" = ? AND "+expiresCol+" > ? AND "+attemptsCol+" <= ?", id, hash, now, limit).
		Updates(map[string]interface{}{
			hashCol:     "",
			expiresCol:  nil,
			attemptsCol: 0,
			"verified":  true,
			verifiedCol: now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SetPassword 设置密码哈希
func (r *GormAccountRepository) SetPassword(id uint, hash string) error {
	return r.db.Model(&models.Account{}).Where("id = ?", id).Update("password_hash", hash).Error
}

// TouchLastLogin 记录最后登录时间
func (r *GormAccountRepository) TouchLastLogin(id uint, at time.Time) error {
	return r.db.Model(&models.Account{}).Where("id = ?", id).Update("last_login_at", at).Error
}
