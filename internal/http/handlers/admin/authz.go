package admin

import (
	"errors"
	"strconv"

	"github.com/swiftmeta/internal/authz"
	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"
	"github.com/swiftmeta/internal/logger"

	"github.com/gin-gonic/gin"
)

// ListRoles 角色及策略列表
func (h *Handler) ListRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "failed to load roles", err)
		return
	}
	response.Success(c, roles)
}

// GetAdminRoles 查询指定管理员角色
func (h *Handler) GetAdminRoles(c *gin.Context) {
	adminID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "failed to load roles", err)
		return
	}
	response.Success(c, gin.H{"admin_id": adminID, "roles": roles})
}

type setAdminRolesPayload struct {
	Roles []string `json:"roles"`
}

// SetAdminRoles 覆盖管理员角色
func (h *Handler) SetAdminRoles(c *gin.Context) {
	adminID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req setAdminRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	admin, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "failed to load admin", err)
		return
	}
	if admin == nil {
		shared.RespondError(c, response.CodeNotFound, "admin not found", nil)
		return
	}
	roles, err := h.AuthzService.SetAdminRoles(adminID, req.Roles)
	if err != nil {
		if errors.Is(err, authz.ErrRoleInvalid) {
			shared.RespondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		shared.RespondError(c, response.CodeInternal, "failed to update roles", err)
		return
	}
	h.recordAudit(c, constants.AuditActionRoleGrant, "admin", strconv.FormatUint(uint64(adminID), 10), map[string]interface{}{
		"roles": roles,
	})
	logger.Infow("admin_authz_roles_updated",
		"operator_admin_id", currentAdminID(c),
		"target_admin_id", adminID,
		"roles", roles,
	)
	response.Success(c, gin.H{"admin_id": adminID, "roles": roles})
}
