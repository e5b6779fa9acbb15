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

// ListContacts 联系留言列表
func (h *Handler) ListContacts(c *gin.Context) {
	page, limit := shared.ParsePagination(c, shared.MaxPageLimit)
	items, total, err := h.ContactService.List(repository.ContactListFilter{
		Page:     page,
		PageSize: limit,
		Status:   strings.TrimSpace(c.Query("status")),
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		shared.RespondServiceError(c, err, "failed to load contacts")
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, limit, total))
}

// StatusRequest 状态更新请求
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateContactStatus 更新留言状态
func (h *Handler) UpdateContactStatus(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	contact, err := h.ContactService.UpdateStatus(id, req.Status)
	if err != nil {
		shared.RespondServiceError(c, err, "failed to update contact")
		return
	}
	h.recordAudit(c, constants.AuditActionContactStatus, "contact", strconv.FormatUint(uint64(id), 10), map[string]interface{}{
		"status": contact.Status,
	})
	response.Success(c, contact)
}

// DeleteContact 删除留言
func (h *Handler) DeleteContact(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.ContactService.Delete(id); err != nil {
		shared.RespondServiceError(c, err, "failed to delete contact")
		return
	}
	h.recordAudit(c, constants.AuditActionContactDelete, "contact", strconv.FormatUint(uint64(id), 10), nil)
	response.SuccessWithMsg(c, "contact deleted", nil)
}
