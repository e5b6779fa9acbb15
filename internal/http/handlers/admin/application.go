package admin

import (
	"strconv"
	"strings"

	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"
	"github.com/swiftmeta/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListApplications 申请列表
func (h *Handler) ListApplications(c *gin.Context) {
	page, limit := shared.ParsePagination(c, shared.MaxPageLimit)
	items, total, err := h.ApplicationService.List(repository.ApplicationListFilter{
		Page:     page,
		PageSize: limit,
		Status:   strings.TrimSpace(c.Query("status")),
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		shared.RespondServiceError(c, err, "failed to load applications")
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, limit, total))
}

// UpdateApplicationStatus 更新申请状态，申请人会收到通知
func (h *Handler) UpdateApplicationStatus(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	app, err := h.ApplicationService.UpdateStatus(id, req.Status)
	if err != nil {
		shared.RespondServiceError(c, err, "failed to update application")
		return
	}
	h.recordAudit(c, constants.AuditActionApplicationStatus, "application", strconv.FormatUint(uint64(id), 10), map[string]interface{}{
		"status": app.Status,
	})
	response.Success(c, app)
}
