package public

import (
	"strings"

	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"
	"github.com/swiftmeta/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateTicketRequest 创建工单请求
type CreateTicketRequest struct {
	Email    string `json:"email" binding:"required"`
	Subject  string `json:"subject"`
	Message  string `json:"message" binding:"required"`
	Category string `json:"category"`
	Urgency  string `json:"urgency"`
}

// CreateTicket 创建工单
func (h *Handler) CreateTicket(c *gin.Context) {
	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	ticket, err := h.TicketService.Create(service.CreateTicketInput{
		Email:    req.Email,
		Subject:  req.Subject,
		Message:  req.Message,
		Category: req.Category,
		Urgency:  req.Urgency,
	})
	if err != nil {
		shared.RespondServiceError(c, err, "failed to create ticket")
		return
	}
	response.Created(c, "ticket created", ticket)
}

// GetTicket 按工单号查询，包含全部消息
func (h *Handler) GetTicket(c *gin.Context) {
	ticket, err := h.TicketService.Get(c.Param("id"))
	if err != nil {
		shared.RespondServiceError(c, err, "failed to load ticket")
		return
	}
	response.Success(c, ticket)
}

// ReplyTicketRequest 用户回复请求
type ReplyTicketRequest struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

// ReplyTicket 用户回复工单，admin 回复必须走管理端接口
func (h *Handler) ReplyTicket(c *gin.Context) {
	var req ReplyTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	sender := strings.ToLower(strings.TrimSpace(req.Sender))
	if sender == "" {
		sender = constants.TicketSenderUser
	}
	if sender == constants.TicketSenderAdmin {
		shared.RespondServiceError(c, service.ErrTicketSenderDenied, "")
		return
	}
	ticket, err := h.TicketService.Reply(c.Param("id"), sender, req.Message)
	if err != nil {
		shared.RespondServiceError(c, err, "failed to reply ticket")
		return
	}
	response.Success(c, ticket)
}
