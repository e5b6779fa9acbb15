package admin

import (
	"strconv"

	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"

	"github.com/gin-gonic/gin"
)

// DeletePost 管理员删除帖子，评论与回复一并删除
func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.PostService.AdminDeletePost(id); err != nil {
		shared.RespondServiceError(c, err, "failed to delete post")
		return
	}
	h.recordAudit(c, constants.AuditActionPostDelete, "post", strconv.FormatUint(uint64(id), 10), nil)
	response.SuccessWithMsg(c, "post deleted", nil)
}
