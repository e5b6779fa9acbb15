package public

import (
	"github.com/swiftmeta/internal/ai"
	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"
	"github.com/swiftmeta/internal/service"

	"github.com/gin-gonic/gin"
)

// AnalyzeTicketRequest 工单分析请求
type AnalyzeTicketRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message" binding:"required"`
}

// AnalyzeTicket 生成工单分类与改写建议
func (h *Handler) AnalyzeTicket(c *gin.Context) {
	var req AnalyzeTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	analysis, err := h.AIService.Analyze(c.Request.Context(), service.AnalyzeInput{
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		shared.RespondServiceError(c, err, "failed to analyze ticket")
		return
	}
	response.Success(c, analysis)
}

// ChatRequest 助手对话请求
type ChatRequest struct {
	Message string    `json:"message" binding:"required"`
	History []ai.Turn `json:"history"`
}

// Chat 助手对话
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	reply, err := h.AIService.Chat(c.Request.Context(), req.Message, req.History)
	if err != nil {
		shared.RespondServiceError(c, err, "failed to chat")
		return
	}
	response.Success(c, gin.H{"reply": reply})
}
