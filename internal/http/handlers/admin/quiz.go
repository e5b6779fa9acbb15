package admin

import (
	"strings"

	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"
	"github.com/swiftmeta/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListQuizAttempts 测验记录列表
func (h *Handler) ListQuizAttempts(c *gin.Context) {
	page, limit := shared.ParsePagination(c, shared.MaxPageLimit)
	items, total, err := h.QuizService.ListAttempts(repository.QuizAttemptListFilter{
		Page:     page,
		PageSize: limit,
		Email:    strings.TrimSpace(c.Query("email")),
	})
	if err != nil {
		shared.RespondServiceError(c, err, "failed to load quiz attempts")
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, limit, total))
}
