package service

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/swiftmeta/internal/cache"
	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/models"
	"github.com/swiftmeta/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const otpSentMessage = "If the account exists, a verification code has been sent."

// AccountJWTClaims 用户会话 Token 声明，sub 为账号 ID，jti 用于注销
type AccountJWTClaims struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	jwt.RegisteredClaims
}

// AccountID 从 sub 解析账号 ID
func (c *AccountJWTClaims) AccountID() uint {
	if c == nil {
		return 0
	}
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// RegisterInput 注册参数
type RegisterInput struct {
	Phone   string
	Email   string
	Name    string
	Captcha CaptchaVerifyPayload
}

// OTPRequestInput 请求登录验证码参数，email 与 phone 二选一
type OTPRequestInput struct {
	Email   string
	Phone   string
	Captcha CaptchaVerifyPayload
}

// OTPVerifyInput 校验验证码参数
type OTPVerifyInput struct {
	Email string
	Phone string
	Code  string
}

// OTPIssueResult 验证码下发结果
type OTPIssueResult struct {
	Message   string    `json:"message"`
	Channel   string    `json:"channel"`
	ExpiresAt time.Time `json:"expires_at"`
	OTP       string    `json:"otp,omitempty"` // 仅 expose_in_response 开启时返回
}

// SessionResult 登录成功结果
type SessionResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   *models.Account `json:"account"`
}

// UpdateProfileInput 资料更新，nil 表示不修改
type UpdateProfileInput struct {
	DisplayName *string
	AvatarURL   *string
}

// AccountAuthService 用户注册、验证码登录与会话管理
type AccountAuthService struct {
	cfg         *config.Config
	accountRepo repository.AccountRepository
	revokedRepo repository.RevokedTokenRepository
	hasher      *OTPHasher
	notifier    *NotificationService
	captcha     *CaptchaService
	now         func() time.Time
}

// NewAccountAuthService 创建用户认证服务
func NewAccountAuthService(
	cfg *config.Config,
	accountRepo repository.AccountRepository,
	revokedRepo repository.RevokedTokenRepository,
	notifier *NotificationService,
	captcha *CaptchaService,
) *AccountAuthService {
	return &AccountAuthService{
		cfg:         cfg,
		accountRepo: accountRepo,
		revokedRepo: revokedRepo,
		hasher:      NewOTPHasher(cfg.OTP.Secret),
		notifier:    notifier,
		captcha:     captcha,
		now:         time.Now,
	}
}

// Register 创建账号并下发邮箱验证码
func (s *AccountAuthService) Register(input RegisterInput) (*OTPIssueResult, error) {
	if err := s.captcha.Verify(constants.CaptchaSceneRegister, input.Captcha); err != nil {
		return nil, err
	}
	phone, err := NormalizePhone(input.Phone)
	if err != nil {
		return nil, err
	}
	email, err := NormalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = phone
	}
	if err := requireLength("name", name, 1, 120); err != nil {
		return nil, err
	}

	emailTaken, phoneTaken, err := s.accountRepo.ExistsByEmailOrPhone(email, phone)
	if err != nil {
		return nil, err
	}
	if phoneTaken {
		return nil, &ConflictError{Field: "phone"}
	}
	if emailTaken {
		return nil, &ConflictError{Field: "email"}
	}

	account := &models.Account{
		Phone:       phone,
		Email:       email,
		DisplayName: name,
	}
	if err := s.accountRepo.Create(account); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, &ConflictError{Field: repository.UniqueViolationColumn(err)}
		}
		return nil, err
	}
	logger.Infow("account_registered", "account_id", account.ID)

	return s.issueOTP(account, constants.OTPChannelEmail, s.registerTTL(), "registration", eventRegisterOTP)
}

// VerifyEmail 校验注册邮箱验证码
func (s *AccountAuthService) VerifyEmail(email, code string) (*models.Account, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCode
	}
	account, err := s.accountRepo.GetByEmail(normalized)
	if err != nil {
		return nil, err
	}
	if err := s.consumeOTP(account, constants.OTPChannelEmail, code); err != nil {
		return nil, err
	}
	return s.accountRepo.GetByID(account.ID)
}

// VerifyPhone 校验手机验证码
func (s *AccountAuthService) VerifyPhone(phone, code string) (*models.Account, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil, ErrInvalidCode
	}
	account, err := s.accountRepo.GetByPhone(normalized)
	if err != nil {
		return nil, err
	}
	if err := s.consumeOTP(account, constants.OTPChannelPhone, code); err != nil {
		return nil, err
	}
	return s.accountRepo.GetByID(account.ID)
}

// RequestPhoneOTP 下发手机验证码，账号不存在时返回相同结果
func (s *AccountAuthService) RequestPhoneOTP(phone string) (*OTPIssueResult, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	account, err := s.accountRepo.GetByPhone(normalized)
	if err != nil {
		return nil, err
	}
	return s.issueOrMask(account, constants.OTPChannelPhone, s.loginTTL(), "phone verification", eventPhoneOTP)
}

// RequestLoginOTP 按标识下发登录验证码，不暴露账号是否存在
func (s *AccountAuthService) RequestLoginOTP(input OTPRequestInput) (*OTPIssueResult, error) {
	if err := s.captcha.Verify(constants.CaptchaSceneLoginOTP, input.Captcha); err != nil {
		return nil, err
	}
	account, channel, err := s.lookupByIdentifier(input.Email, input.Phone)
	if err != nil {
		return nil, err
	}
	return s.issueOrMask(account, channel, s.loginTTL(), "login", eventLoginOTP)
}

// VerifyLoginOTP 校验登录验证码并签发会话
func (s *AccountAuthService) VerifyLoginOTP(input OTPVerifyInput) (*SessionResult, error) {
	account, channel, err := s.lookupByIdentifier(input.Email, input.Phone)
	if err != nil {
		return nil, err
	}
	if err := s.consumeOTP(account, channel, input.Code); err != nil {
		return nil, err
	}
	fresh, err := s.accountRepo.GetByID(account.ID)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, ErrInvalidCode
	}
	return s.startSession(fresh)
}

// PasswordLogin 邮箱密码登录，要求账号已验证
func (s *AccountAuthService) PasswordLogin(email, password string) (*SessionResult, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	account, err := s.accountRepo.GetByEmail(normalized)
	if err != nil {
		return nil, err
	}
	if account == nil || !account.HasPassword() {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !account.Verified {
		return nil, ErrAccountNotVerified
	}
	return s.startSession(account)
}

// SetPassword 设置或修改登录密码
func (s *AccountAuthService) SetPassword(accountID uint, password string) error {
	if err := validatePassword(s.cfg.Security.PasswordPolicy, password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.accountRepo.SetPassword(accountID, string(hash))
}

// GetAccount 获取账号
func (s *AccountAuthService) GetAccount(accountID uint) (*models.Account, error) {
	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// UpdateProfile 更新昵称与头像
func (s *AccountAuthService) UpdateProfile(accountID uint, input UpdateProfileInput) (*models.Account, error) {
	fields := map[string]interface{}{}
	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if err := requireLength("display_name", name, 1, 120); err != nil {
			return nil, err
		}
		fields["display_name"] = name
	}
	if input.AvatarURL != nil {
		avatar := strings.TrimSpace(*input.AvatarURL)
		if avatar != "" && !isHTTPURL(avatar) && !isSitePath(avatar) {
			return nil, invalidField("avatar_url", "must be an http(s) URL")
		}
		if err := requireLength("avatar_url", avatar, 0, 512); err != nil {
			return nil, err
		}
		fields["avatar_url"] = avatar
	}
	if len(fields) > 0 {
		if err := s.accountRepo.UpdateProfile(accountID, fields); err != nil {
			return nil, err
		}
	}
	return s.GetAccount(accountID)
}

// Authenticate 校验会话 Token：签名、过期、注销与账号存在性
func (s *AccountAuthService) Authenticate(ctx context.Context, tokenString string) (*models.Account, *AccountJWTClaims, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, nil, err
	}
	revoked, err := s.isRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		return nil, nil, ErrTokenRevoked
	}
	account, err := s.accountRepo.GetByID(claims.AccountID())
	if err != nil {
		return nil, nil, err
	}
	if account == nil {
		return nil, nil, ErrInvalidToken
	}
	return account, claims, nil
}

// ParseToken 只校验签名与有效期
func (s *AccountAuthService) ParseToken(tokenString string) (*AccountJWTClaims, error) {
	secret := s.cfg.AccountJWT.SecretKey
	if strings.TrimSpace(secret) == "" || strings.TrimSpace(tokenString) == "" {
		return nil, ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	claims := &AccountJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid || claims.AccountID() == 0 || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Logout 注销当前 Token，记录 jti 直到其自然过期
func (s *AccountAuthService) Logout(ctx context.Context, claims *AccountJWTClaims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return ErrInvalidToken
	}
	expiresAt := claims.ExpiresAt.Time
	if err := s.revokedRepo.Revoke(&models.RevokedToken{
		JTI:       claims.ID,
		AccountID: claims.AccountID(),
		ExpiresAt: expiresAt,
	}); err != nil {
		return err
	}
	if err := cache.MarkTokenRevoked(ctx, claims.ID, expiresAt.Sub(s.now())); err != nil {
		logger.Warnw("account_logout_cache_failed", "account_id", claims.AccountID(), "error", err)
	}
	logger.Infow("account_logged_out", "account_id", claims.AccountID())
	return nil
}

// PurgeRevokedTokens 清理已过期的注销记录
func (s *AccountAuthService) PurgeRevokedTokens(now time.Time) (int64, error) {
	return s.revokedRepo.PurgeExpired(now)
}

func (s *AccountAuthService) isRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, hit, err := cache.IsTokenRevokedCached(ctx, jti)
	if err != nil {
		logger.Warnw("account_revocation_cache_failed", "error", err)
	} else if hit {
		return revoked, nil
	}
	return s.revokedRepo.IsRevoked(jti, s.now())
}

func (s *AccountAuthService) startSession(account *models.Account) (*SessionResult, error) {
	now := s.now()
	if err := s.accountRepo.TouchLastLogin(account.ID, now); err != nil {
		return nil, err
	}
	account.LastLoginAt = &now
	token, expiresAt, err := s.generateToken(account, now)
	if err != nil {
		return nil, err
	}
	logger.Infow("account_session_started", "account_id", account.ID)
	return &SessionResult{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

func (s *AccountAuthService) generateToken(account *models.Account, now time.Time) (string, time.Time, error) {
	hours := s.cfg.AccountJWT.ExpireHours
	if hours <= 0 {
		hours = 720
	}
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	claims := AccountJWTClaims{
		Email: account.Email,
		Phone: account.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(account.ID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.AccountJWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *AccountAuthService) lookupByIdentifier(email, phone string) (*models.Account, string, error) {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	switch {
	case email != "" && phone != "":
		return nil, "", invalidField("email", "provide either email or phone, not both")
	case email != "":
		normalized, err := NormalizeEmail(email)
		if err != nil {
			return nil, "", err
		}
		account, err := s.accountRepo.GetByEmail(normalized)
		return account, constants.OTPChannelEmail, err
	case phone != "":
		normalized, err := NormalizePhone(phone)
		if err != nil {
			return nil, "", err
		}
		account, err := s.accountRepo.GetByPhone(normalized)
		return account, constants.OTPChannelPhone, err
	default:
		return nil, "", invalidField("email", "email or phone is required")
	}
}

// issueOrMask 账号不存在或发送过于频繁时返回与成功一致的结果
func (s *AccountAuthService) issueOrMask(account *models.Account, channel string, ttl time.Duration, purpose, event string) (*OTPIssueResult, error) {
	masked := &OTPIssueResult{
		Message:   otpSentMessage,
		Channel:   channel,
		ExpiresAt: s.now().Add(ttl),
	}
	if account == nil {
		return masked, nil
	}
	_, _, _, sentAt := otpSlotOf(account, channel)
	if sentAt != nil && s.now().Sub(*sentAt) < s.sendInterval() {
		logger.Infow("account_otp_resend_suppressed", "account_id", account.ID, "channel", channel)
		return masked, nil
	}
	result, err := s.issueOTP(account, channel, ttl, purpose, event)
	if err != nil {
		return nil, err
	}
	result.Message = otpSentMessage
	return result, nil
}

func (s *AccountAuthService) issueOTP(account *models.Account, channel string, ttl time.Duration, purpose, event string) (*OTPIssueResult, error) {
	code, err := generateOTP()
	if err != nil {
		return nil, err
	}
	now := s.now()
	expiresAt := now.Add(ttl)
	if err := s.accountRepo.SetOTP(account.ID, channel, repository.OTPSlot{
		Hash:      s.hasher.Hash(account.ID, channel, code),
		ExpiresAt: expiresAt,
		SentAt:    now,
	}); err != nil {
		return nil, err
	}

	notifyChannel, to := constants.NotificationChannelEmail, account.Email
	if channel == constants.OTPChannelPhone {
		notifyChannel, to = constants.NotificationChannelSMS, account.Phone
	}
	s.notifier.Dispatch(event, otpMessage(notifyChannel, to, code, purpose, expiresAt))

	result := &OTPIssueResult{
		Message:   "Verification code sent.",
		Channel:   channel,
		ExpiresAt: expiresAt,
	}
	if s.cfg.OTP.ExposeInResponse {
		result.OTP = code
	}
	return result, nil
}

// consumeOTP 所有失败统一返回 ErrInvalidCode
func (s *AccountAuthService) consumeOTP(account *models.Account, channel, code string) error {
	if account == nil {
		return ErrInvalidCode
	}
	code = strings.TrimSpace(code)
	hash, expiresAt, attempts, _ := otpSlotOf(account, channel)
	now := s.now()
	if hash == "" || expiresAt == nil || !now.Before(*expiresAt) {
		return ErrInvalidCode
	}
	limit := s.maxAttempts()
	if attempts >= limit {
		return ErrInvalidCode
	}
	// 比对前先占用一次尝试，并发猜测也不会超出额度
	reserved, err := s.accountRepo.IncrementOTPAttempts(account.ID, channel, limit)
	if err != nil {
		return err
	}
	if !reserved {
		return ErrInvalidCode
	}
	if !s.hasher.Equal(hash, account.ID, channel, code) {
		return ErrInvalidCode
	}
	ok, err := s.accountRepo.ConsumeOTP(account.ID, channel, hash, now, limit)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}
	logger.Infow("account_otp_consumed", "account_id", account.ID, "channel", channel)
	return nil
}

func otpSlotOf(account *models.Account, channel string) (hash string, expiresAt *time.Time, attempts int, sentAt *time.Time) {
	if channel == constants.OTPChannelPhone {
		return account.PhoneOTPHash, account.PhoneOTPExpiresAt, account.PhoneOTPAttempts, account.PhoneOTPSentAt
	}
	return account.EmailOTPHash, account.EmailOTPExpiresAt, account.EmailOTPAttempts, account.EmailOTPSentAt
}

func (s *AccountAuthService) registerTTL() time.Duration {
	return minutesOr(s.cfg.OTP.RegisterExpireMinutes, 15)
}

func (s *AccountAuthService) loginTTL() time.Duration {
	return minutesOr(s.cfg.OTP.LoginExpireMinutes, 10)
}

func (s *AccountAuthService) sendInterval() time.Duration {
	if s.cfg.OTP.SendIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(s.cfg.OTP.SendIntervalSeconds) * time.Second
}

func (s *AccountAuthService) maxAttempts() int {
	if s.cfg.OTP.MaxAttempts <= 0 {
		return 5
	}
	return s.cfg.OTP.MaxAttempts
}

func minutesOr(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Minute
}

func isHTTPURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// isSitePath 仅接受本站绝对路径，"//host" 与 "/\host" 会被浏览器当作其他站点
func isSitePath(raw string) bool {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return false
	}
	parsed, err := url.Parse(raw)
	return err == nil && parsed.Scheme == "" && parsed.Host == ""
}
