package admin

import (
	"strings"

	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"
	"github.com/swiftmeta/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListTickets 工单列表，按更新时间倒序
func (h *Handler) ListTickets(c *gin.Context) {
	page, limit := shared.ParsePagination(c, shared.MaxPageLimit)
	tickets, total, err := h.TicketService.List(repository.TicketListFilter{
		Page:     page,
		PageSize: limit,
		Status:   strings.TrimSpace(c.Query("status")),
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		shared.RespondServiceError(c, err, "failed to load tickets")
		return
	}
	response.SuccessWithPage(c, tickets, response.BuildPagination(page, limit, total))
}

// GetTicket 工单详情
func (h *Handler) GetTicket(c *gin.Context) {
	ticket, err := h.TicketService.Get(c.Param("id"))
	if err != nil {
		shared.RespondServiceError(c, err, "failed to load ticket")
		return
	}
	response.Success(c, ticket)
}

// ReplyTicketRequest 管理员回复请求
type ReplyTicketRequest struct {
	Message string `json:"message" binding:"required"`
}

// ReplyTicket 以 admin 身份回复工单
func (h *Handler) ReplyTicket(c *gin.Context) {
	var req ReplyTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	ticket, err := h.TicketService.Reply(c.Param("id"), constants.TicketSenderAdmin, req.Message)
	if err != nil {
		shared.RespondServiceError(c, err, "failed to reply ticket")
		return
	}
	h.recordAudit(c, constants.AuditActionTicketReply, "ticket", ticket.TicketID, map[string]interface{}{
		"status": ticket.Status,
	})
	response.Success(c, ticket)
}

// CloseTicket 关闭工单，重复关闭返回原工单
func (h *Handler) CloseTicket(c *gin.Context) {
	ticket, err := h.TicketService.Close(c.Param("id"))
	if err != nil {
		shared.RespondServiceError(c, err, "failed to close ticket")
		return
	}
	h.recordAudit(c, constants.AuditActionTicketClose, "ticket", ticket.TicketID, nil)
	response.Success(c, ticket)
}
