package admin

import (
	"strings"

	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/service"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return shared.GetContextUint(c, shared.ContextAdminID)
}

func currentAdminID(c *gin.Context) uint {
	return shared.OptionalContextUint(c, shared.ContextAdminID)
}

func currentUsername(c *gin.Context) string {
	return shared.ContextString(c, shared.ContextAdminUsername)
}

func currentRequestID(c *gin.Context) string {
	return shared.ContextString(c, "request_id")
}

// recordAudit 补齐操作人与请求 ID 后写入审计日志
func (h *Handler) recordAudit(c *gin.Context, action, targetType, targetID string, detail map[string]interface{}) {
	if h == nil || h.AuditService == nil {
		return
	}
	if strings.TrimSpace(action) == "" {
		return
	}
	h.AuditService.Record(service.AuditRecordInput{
		OperatorAdminID:  currentAdminID(c),
		OperatorUsername: currentUsername(c),
		Action:           action,
		TargetType:       targetType,
		TargetID:         targetID,
		RequestID:        currentRequestID(c),
		Detail:           detail,
	})
	logger.Infow("admin_action_recorded",
		"operator_admin_id", currentAdminID(c),
		"action", action,
		"target_type", targetType,
		"target_id", targetID,
	)
}
