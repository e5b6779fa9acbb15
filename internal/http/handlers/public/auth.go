package public

import (
	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"
	"github.com/swiftmeta/internal/service"

	"github.com/gin-gonic/gin"
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Phone          string                       `json:"phone" binding:"required"`
	Email          string                       `json:"email" binding:"required"`
	Name           string                       `json:"name"`
	CaptchaPayload shared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// Register 注册账号并发送邮箱验证码
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}

	result, err := h.AccountAuthService.Register(service.RegisterInput{
		Phone:   req.Phone,
		Email:   req.Email,
		Name:    req.Name,
		Captcha: req.CaptchaPayload.ToServicePayload(),
	})
	if err != nil {
		shared.RespondServiceError(c, err, "registration failed")
		return
	}
	response.Created(c, result.Message, result)
}

// VerifyEmailRequest 邮箱验证请求
type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// VerifyEmail 校验注册邮箱验证码
func (h *Handler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	account, err := h.AccountAuthService.VerifyEmail(req.Email, req.Code)
	if err != nil {
		shared.RespondServiceError(c, err, "verification failed")
		return
	}
	response.SuccessWithMsg(c, "email verified", gin.H{"account": account})
}

// VerifyPhoneRequest 手机验证请求
type VerifyPhoneRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// VerifyPhone 校验手机验证码
func (h *Handler) VerifyPhone(c *gin.Context) {
	var req VerifyPhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	account, err := h.AccountAuthService.VerifyPhone(req.Phone, req.Code)
	if err != nil {
		shared.RespondServiceError(c, err, "verification failed")
		return
	}
	response.SuccessWithMsg(c, "phone verified", gin.H{"account": account})
}

// PhoneOTPRequest 请求手机验证码
type PhoneOTPRequest struct {
	Phone string `json:"phone" binding:"required,phone"`
}

// RequestPhoneOTP 下发手机验证码
func (h *Handler) RequestPhoneOTP(c *gin.Context) {
	var req PhoneOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	result, err := h.AccountAuthService.RequestPhoneOTP(req.Phone)
	if err != nil {
		shared.RespondServiceError(c, err, "failed to send code")
		return
	}
	response.SuccessWithMsg(c, result.Message, result)
}

// LoginOTPRequest 请求登录验证码，email 与 phone 二选一
type LoginOTPRequest struct {
	Email          string                       `json:"email"`
	Phone          string                       `json:"phone"`
	CaptchaPayload shared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// RequestLoginOTP 下发登录验证码
func (h *Handler) RequestLoginOTP(c *gin.Context) {
	var req LoginOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	result, err := h.AccountAuthService.RequestLoginOTP(service.OTPRequestInput{
		Email:   req.Email,
		Phone:   req.Phone,
		Captcha: req.CaptchaPayload.ToServicePayload(),
	})
	if err != nil {
		shared.RespondServiceError(c, err, "failed to send code")
		return
	}
	response.SuccessWithMsg(c, result.Message, result)
}

// VerifyLoginOTPRequest 验证码登录请求
type VerifyLoginOTPRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	Code  string `json:"code" binding:"required"`
}

// VerifyLoginOTP 校验登录验证码并签发会话
func (h *Handler) VerifyLoginOTP(c *gin.Context) {
	var req VerifyLoginOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	session, err := h.AccountAuthService.VerifyLoginOTP(service.OTPVerifyInput{
		Email: req.Email,
		Phone: req.Phone,
		Code:  req.Code,
	})
	if err != nil {
		shared.RespondServiceError(c, err, "login failed")
		return
	}
	response.SuccessWithMsg(c, "login successful", session)
}

// PasswordLoginRequest 密码登录请求
type PasswordLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// PasswordLogin 邮箱密码登录
func (h *Handler) PasswordLogin(c *gin.Context) {
	var req PasswordLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	session, err := h.AccountAuthService.PasswordLogin(req.Email, req.Password)
	if err != nil {
		shared.RespondServiceError(c, err, "login failed")
		return
	}
	response.SuccessWithMsg(c, "login successful", session)
}
