package service

import (
	"errors"
	"fmt"
)

// 通用错误分类，handler 按 errors.Is 映射状态码
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream service failed")
)

// 认证相关错误
var (
	ErrInvalidCode        = fmt.Errorf("%w: invalid or expired code", ErrBadRequest)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrAccountNotVerified = fmt.Errorf("%w: account not verified", ErrForbidden)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrTokenRevoked       = fmt.Errorf("%w: token revoked", ErrUnauthorized)
	ErrCaptchaRequired    = fmt.Errorf("%w: captcha required", ErrBadRequest)
	ErrCaptchaInvalid     = fmt.Errorf("%w: captcha invalid", ErrBadRequest)
	ErrCaptchaConfig      = errors.New("captcha config invalid")
	ErrWeakPassword       = fmt.Errorf("%w: password too weak", ErrBadRequest)
	ErrPasswordNotSet     = fmt.Errorf("%w: password login not enabled for this account", ErrUnauthorized)
	ErrInvalidPassword    = fmt.Errorf("%w: current password is incorrect", ErrBadRequest)
	ErrAdminExists        = fmt.Errorf("%w: admin username already exists", ErrConflict)
	ErrAdminNotFound      = fmt.Errorf("%w: admin not found", ErrNotFound)
	ErrAccountNotFound    = fmt.Errorf("%w: account not found", ErrNotFound)
)

// 工单相关错误
var (
	ErrTicketNotFound       = fmt.Errorf("%w: ticket not found", ErrNotFound)
	ErrTicketClosed         = fmt.Errorf("%w: this ticket has been closed, you cannot add new replies", ErrForbidden)
	ErrTicketSenderInvalid  = fmt.Errorf("%w: sender must be 'user' or 'admin'", ErrBadRequest)
	ErrTicketSenderDenied   = fmt.Errorf("%w: admin replies must use the admin endpoint", ErrForbidden)
	ErrTicketIDExhausted    = errors.New("ticket id generation exhausted retries")
	ErrTicketMessageMissing = fmt.Errorf("%w: message is required", ErrBadRequest)
)

// 社区相关错误
var (
	ErrPostNotFound    = fmt.Errorf("%w: post not found", ErrNotFound)
	ErrCommentNotFound = fmt.Errorf("%w: comment not found", ErrNotFound)
	ErrReplyNotFound   = fmt.Errorf("%w: reply not found", ErrNotFound)
	ErrNotOwner        = fmt.Errorf("%w: you are not allowed to modify this resource", ErrForbidden)
)

// 其他业务错误
var (
	ErrRetakeLocked        = fmt.Errorf("%w: retake locked", ErrForbidden)
	ErrQuizKeyEmpty        = errors.New("quiz answer key is empty")
	ErrContactNotFound     = fmt.Errorf("%w: contact not found", ErrNotFound)
	ErrApplicationNotFound = fmt.Errorf("%w: application not found", ErrNotFound)
	ErrStatusInvalid       = fmt.Errorf("%w: status invalid", ErrBadRequest)
	ErrUploadFailed        = fmt.Errorf("%w: file upload failed", ErrUpstream)
	ErrAIUnavailable       = fmt.Errorf("%w: AI assistant unavailable", ErrUpstream)
	ErrAIResponseInvalid   = fmt.Errorf("%w: AI returned an unreadable answer, please try again", ErrUpstream)
	ErrNewsUnavailable     = fmt.Errorf("%w: news feed unavailable", ErrUpstream)
)

// 上传相关错误
var (
	ErrFileTooLarge       = fmt.Errorf("%w: file too large", ErrBadRequest)
	ErrFileTypeNotAllowed = fmt.Errorf("%w: file type not allowed", ErrBadRequest)
	ErrImageTooLarge      = fmt.Errorf("%w: image dimensions too large", ErrBadRequest)
)

// ValidationError 字段校验失败，只报告第一个违反的约束
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is 归类为 ErrBadRequest
func (e *ValidationError) Is(target error) bool {
	return target == ErrBadRequest
}

func invalidField(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError 唯一约束冲突，Field 指明冲突字段
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return "record already exists"
	}
	return e.Field + " already exists"
}

// Is 归类为 ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
