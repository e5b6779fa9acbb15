package admin

import (
	"time"

	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"

	"github.com/gin-gonic/gin"
)

// LoginRequest 管理员登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 管理员登录响应
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Admin     interface{} `json:"admin"`
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	admin, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		shared.RespondServiceError(c, err, "login failed")
		return
	}
	response.SuccessWithMsg(c, "login successful", LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Admin:     admin,
	})
}

// AdminMe 当前管理员身份与角色
type AdminMe struct {
	ID       uint     `json:"id"`
	Username string   `json:"username"`
	IsSuper  bool     `json:"is_super"`
	Roles    []string `json:"roles"`
}

// GetMe 获取当前管理员
func (h *Handler) GetMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "failed to load roles", err)
		return
	}
	isSuper, _ := c.Get(shared.ContextAdminIsSuper)
	super, _ := isSuper.(bool)
	response.Success(c, AdminMe{
		ID:       adminID,
		Username: currentUsername(c),
		IsSuper:  super,
		Roles:    roles,
	})
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword 修改当前管理员密码，已签发的 Token 随即失效
func (h *Handler) ChangePassword(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	if err := h.AuthService.ChangePassword(adminID, req.OldPassword, req.NewPassword); err != nil {
		shared.RespondServiceError(c, err, "failed to change password")
		return
	}
	response.SuccessWithMsg(c, "password changed", nil)
}

