package shared

import (
	"errors"

	"github.com/swiftmeta/internal/http/response"
	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		log := RequestLog(c)
		if appErr.ServerSide() {
			log.Errorw("handler_error", "code", appErr.Code, "path", c.FullPath(), "error", appErr)
		} else {
			log.Infow("handler_rejected", "code", appErr.Code, "path", c.FullPath(), "error", appErr)
		}
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// MappedHandlerError 定义业务错误到接口错误响应的映射关系。
type MappedHandlerError struct {
	Target  error
	Code    int
	Message string
}

// 具体业务错误优先于分类错误匹配
var serviceErrorRules = []MappedHandlerError{
	{Target: service.ErrInvalidCode, Code: response.CodeBadRequest, Message: "invalid or expired code"},
	{Target: service.ErrInvalidCredentials, Code: response.CodeUnauthorized, Message: "invalid credentials"},
	{Target: service.ErrPasswordNotSet, Code: response.CodeUnauthorized, Message: "invalid credentials"},
	{Target: service.ErrAccountNotVerified, Code: response.CodeForbidden, Message: "account not verified"},
	{Target: service.ErrTokenRevoked, Code: response.CodeUnauthorized, Message: "token revoked"},
	{Target: service.ErrInvalidToken, Code: response.CodeUnauthorized, Message: "invalid token"},
	{Target: service.ErrCaptchaRequired, Code: response.CodeBadRequest, Message: "captcha required"},
	{Target: service.ErrCaptchaInvalid, Code: response.CodeBadRequest, Message: "captcha invalid"},
	{Target: service.ErrWeakPassword, Code: response.CodeBadRequest, Message: "password too weak"},
	{Target: service.ErrInvalidPassword, Code: response.CodeBadRequest, Message: "current password is incorrect"},
	{Target: service.ErrAdminExists, Code: response.CodeConflict, Message: "admin username already exists"},
	{Target: service.ErrAdminNotFound, Code: response.CodeNotFound, Message: "admin not found"},
	{Target: service.ErrAccountNotFound, Code: response.CodeNotFound, Message: "account not found"},
	{Target: service.ErrTicketNotFound, Code: response.CodeNotFound, Message: "ticket not found"},
	{Target: service.ErrTicketClosed, Code: response.CodeForbidden, Message: "this ticket has been closed, you cannot add new replies"},
	{Target: service.ErrTicketSenderInvalid, Code: response.CodeBadRequest, Message: "sender must be 'user' or 'admin'"},
	{Target: service.ErrTicketSenderDenied, Code: response.CodeForbidden, Message: "admin replies must use the admin endpoint"},
	{Target: service.ErrTicketMessageMissing, Code: response.CodeBadRequest, Message: "message is required"},
	{Target: service.ErrPostNotFound, Code: response.CodeNotFound, Message: "post not found"},
	{Target: service.ErrCommentNotFound, Code: response.CodeNotFound, Message: "comment not found"},
	{Target: service.ErrReplyNotFound, Code: response.CodeNotFound, Message: "reply not found"},
	{Target: service.ErrNotOwner, Code: response.CodeForbidden, Message: "you are not allowed to modify this resource"},
	{Target: service.ErrContactNotFound, Code: response.CodeNotFound, Message: "contact not found"},
	{Target: service.ErrApplicationNotFound, Code: response.CodeNotFound, Message: "application not found"},
	{Target: service.ErrStatusInvalid, Code: response.CodeBadRequest, Message: "status invalid"},
	{Target: service.ErrFileTooLarge, Code: response.CodeBadRequest, Message: "file too large"},
	{Target: service.ErrFileTypeNotAllowed, Code: response.CodeBadRequest, Message: "file type not allowed"},
	{Target: service.ErrImageTooLarge, Code: response.CodeBadRequest, Message: "image dimensions too large"},
	{Target: service.ErrUploadFailed, Code: response.CodeBadGateway, Message: "file upload failed"},
	{Target: service.ErrAIResponseInvalid, Code: response.CodeBadGateway, Message: "AI returned an unreadable answer, please try again"},
	{Target: service.ErrAIUnavailable, Code: response.CodeBadGateway, Message: "AI assistant unavailable"},
	{Target: service.ErrQuizKeyEmpty, Code: response.CodeInternal, Message: "quiz is not configured"},
	{Target: service.ErrNewsUnavailable, Code: response.CodeBadGateway, Message: "news feed unavailable"},
}

var categoryErrorRules = []MappedHandlerError{
	{Target: service.ErrBadRequest, Code: response.CodeBadRequest, Message: "bad request"},
	{Target: service.ErrUnauthorized, Code: response.CodeUnauthorized, Message: "unauthorized"},
	{Target: service.ErrForbidden, Code: response.CodeForbidden, Message: "forbidden"},
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Message: "not found"},
	{Target: service.ErrConflict, Code: response.CodeConflict, Message: "record already exists"},
	{Target: service.ErrUpstream, Code: response.CodeBadGateway, Message: "upstream service unavailable"},
}

// RespondWithMappedError 按规则表映射错误，未命中时返回兜底响应并记录原始错误。
func RespondWithMappedError(c *gin.Context, err error, rules []MappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			if rule.Code >= response.CodeInternal {
				RequestLog(c).Warnw("handler_upstream_error", "path", c.FullPath(), "error", err)
			}
			RespondError(c, rule.Code, rule.Message, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackMsg, err)
}

// RespondServiceError 将 service 层错误转换为统一响应。
func RespondServiceError(c *gin.Context, err error, fallbackMsg string) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		RespondError(c, response.CodeBadRequest, validationErr.Error(), nil)
		return
	}
	var conflictErr *service.ConflictError
	if errors.As(err, &conflictErr) {
		RespondError(c, response.CodeConflict, conflictErr.Error(), nil)
		return
	}
	if fallbackMsg == "" {
		fallbackMsg = "internal server error"
	}
	rules := make([]MappedHandlerError, 0, len(serviceErrorRules)+len(categoryErrorRules))
	rules = append(rules, serviceErrorRules...)
	rules = append(rules, categoryErrorRules...)
	RespondWithMappedError(c, err, rules, response.CodeInternal, fallbackMsg)
}

// RespondBindError 请求体解析失败
func RespondBindError(c *gin.Context, err error) {
	RequestLog(c).Debugw("handler_bind_failed", "path", c.FullPath(), "error", err)
	RespondError(c, response.CodeBadRequest, describeBindError(err), nil)
}
