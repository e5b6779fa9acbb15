package public

import (
	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"

	"github.com/gin-gonic/gin"
)

// UploadImage 上传帖子或评论配图
func (h *Handler) UploadImage(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		shared.RespondError(c, response.CodeBadRequest, "file: is required", nil)
		return
	}
	result, err := h.UploadService.SaveImage(c.Request.Context(), file)
	if err != nil {
		shared.RespondServiceError(c, err, "failed to upload image")
		return
	}
	shared.RequestLog(c).Infow("image_uploaded", "account_id", accountID, "id", result.ID, "size", file.Size)
	response.Created(c, "image uploaded", result)
}
