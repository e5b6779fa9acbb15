package public

import (
	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"
	"github.com/swiftmeta/internal/service"

	"github.com/gin-gonic/gin"
)

// GetMe 获取当前账号
func (h *Handler) GetMe(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	account, err := h.AccountAuthService.GetAccount(accountID)
	if err != nil {
		shared.RespondServiceError(c, err, "failed to load account")
		return
	}
	response.Success(c, account)
}

// UpdateProfileRequest 资料更新请求
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

// UpdateMe 更新昵称与头像
func (h *Handler) UpdateMe(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	account, err := h.AccountAuthService.UpdateProfile(accountID, service.UpdateProfileInput{
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		shared.RespondServiceError(c, err, "failed to update profile")
		return
	}
	response.Success(c, account)
}

// SetPasswordRequest 设置密码请求
type SetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// SetPassword 设置登录密码
func (h *Handler) SetPassword(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	var req SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	if err := h.AccountAuthService.SetPassword(accountID, req.Password); err != nil {
		shared.RespondServiceError(c, err, "failed to set password")
		return
	}
	response.SuccessWithMsg(c, "password updated", gin.H{"updated": true})
}

// Logout 注销当前会话 Token
func (h *Handler) Logout(c *gin.Context) {
	claims, ok := getAccountClaims(c)
	if !ok {
		return
	}
	if err := h.AccountAuthService.Logout(c.Request.Context(), claims); err != nil {
		shared.RespondServiceError(c, err, "logout failed")
		return
	}
	response.SuccessWithMsg(c, "logged out", gin.H{"revoked": true})
}
