package public

import (
	"errors"

	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"
	"github.com/swiftmeta/internal/service"

	"github.com/gin-gonic/gin"
)

// QuizSubmitRequest 测验提交
type QuizSubmitRequest struct {
	Email   string            `json:"email" binding:"required,email"`
	Answers map[string]string `json:"answers" binding:"required"`
}

// SubmitQuiz 提交测验答案
func (h *Handler) SubmitQuiz(c *gin.Context) {
	var req QuizSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	result, err := h.QuizService.Submit(req.Email, req.Answers)
	if err != nil {
		var locked *service.RetakeLockedError
		switch {
		case errors.As(err, &locked):
			response.ErrorWithData(c, response.CodeForbidden, "Retake locked", gin.H{
				"next_allowed_attempt": locked.NextAllowedAttempt,
			})
		case errors.Is(err, service.ErrQuizKeyEmpty):
			shared.RespondError(c, response.CodeInternal, "quiz is not configured", err)
		default:
			shared.RespondServiceError(c, err, "failed to submit quiz")
		}
		return
	}
	msg := "quiz failed, you can retake after the cooldown"
	if result.Passed {
		msg = "quiz passed"
	}
	response.Created(c, msg, result)
}
