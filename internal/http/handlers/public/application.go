package public

import (
	"errors"
	"net/http"

	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"
	"github.com/swiftmeta/internal/service"

	"github.com/gin-gonic/gin"
)

// ApplicationRequest 报名表单字段
type ApplicationRequest struct {
	FirstName     string `form:"first_name" binding:"required"`
	LastName      string `form:"last_name" binding:"required"`
	IDNumber      string `form:"id_number" binding:"required,sa_id"`
	Gender        string `form:"gender"`
	Email         string `form:"email" binding:"required,email"`
	Phone         string `form:"phone" binding:"omitempty,phone"`
	Location      string `form:"location"`
	Qualification string `form:"qualification"`
	Experience    string `form:"experience"`
	CurrentRole   string `form:"current_role"`
	Portfolio     string `form:"portfolio"`
	Consent       bool   `form:"consent"`
}

// Apply 提交报名申请（multipart）
func (h *Handler) Apply(c *gin.Context) {
	var req ApplicationRequest
	if err := c.ShouldBind(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}

	files := make(map[string]service.ApplicationFile)
	for _, slot := range constants.ApplicationDocumentSlots {
		header, err := c.FormFile(slot)
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				continue
			}
			shared.RespondError(c, response.CodeBadRequest, slot+": invalid file", nil)
			return
		}
		file, err := h.ApplicationService.ReadDocument(header)
		if err != nil {
			shared.RespondServiceError(c, err, "failed to read document")
			return
		}
		files[slot] = file
	}

	app, err := h.ApplicationService.Submit(c.Request.Context(), service.ApplicationInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		IDNumber:      req.IDNumber,
		Gender:        req.Gender,
		Email:         req.Email,
		Phone:         req.Phone,
		Location:      req.Location,
		Qualification: req.Qualification,
		Experience:    req.Experience,
		CurrentRole:   req.CurrentRole,
		Portfolio:     req.Portfolio,
		Consent:       req.Consent,
		Files:         files,
	})
	if err != nil {
		shared.RespondServiceError(c, err, "failed to submit application")
		return
	}
	response.Created(c, "application submitted", gin.H{
		"id":      app.ID,
		"message": "Application submitted successfully",
	})
}

// SearchApplication 按邮箱或身份证号查询进度
func (h *Handler) SearchApplication(c *gin.Context) {
	summary, err := h.ApplicationService.Search(c.Query("query"))
	if err != nil {
		shared.RespondServiceError(c, err, "failed to search application")
		return
	}
	response.Success(c, summary)
}
