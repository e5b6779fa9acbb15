package admin

import (
	"strconv"
	"strings"

	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"
	"github.com/swiftmeta/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListAuditLogs 后台操作审计列表
func (h *Handler) ListAuditLogs(c *gin.Context) {
	page, limit := shared.ParsePagination(c, shared.MaxPageLimit)

	var operatorAdminID uint
	if raw := strings.TrimSpace(c.Query("operator_admin_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			shared.RespondError(c, response.CodeBadRequest, "operator_admin_id is invalid", nil)
			return
		}
		operatorAdminID = uint(parsed)
	}

	items, total, err := h.AuditService.List(repository.AuditLogListFilter{
		Page:            page,
		PageSize:        limit,
		OperatorAdminID: operatorAdminID,
		Action:          c.Query("action"),
	})
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "failed to load audit logs", err)
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, limit, total))
}
