package service

import (
	"strings"
	"time"

	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/models"
	"github.com/swiftmeta/internal/repository"

	"gorm.io/datatypes"
)

// AuditRecordInput 后台操作审计记录输入
type AuditRecordInput struct {
	OperatorAdminID  uint
	OperatorUsername string
	Action           string
	TargetType       string
	TargetID         string
	RequestID        string
	Detail           map[string]interface{}
}

// AuditService 后台操作审计
type AuditService struct {
	repo repository.AuditLogRepository
	now  func() time.Time
}

// NewAuditService 创建审计服务
func NewAuditService(repo repository.AuditLogRepository) *AuditService {
	return &AuditService{repo: repo, now: time.Now}
}

// Record 写入审计日志，失败只记日志，不影响主流程
func (s *AuditService) Record(input AuditRecordInput) {
	if s == nil || s.repo == nil {
		return
	}
	if input.OperatorAdminID == 0 || strings.TrimSpace(input.Action) == "" {
		return
	}
	item := &models.AdminAuditLog{
		OperatorAdminID:  input.OperatorAdminID,
		OperatorUsername: strings.TrimSpace(input.OperatorUsername),
		Action:           strings.TrimSpace(input.Action),
		TargetType:       strings.TrimSpace(input.TargetType),
		TargetID:         strings.TrimSpace(input.TargetID),
		RequestID:        strings.TrimSpace(input.RequestID),
		Detail:           datatypes.JSONMap(input.Detail),
		CreatedAt:        s.now(),
	}
	if err := s.repo.Create(item); err != nil {
		logger.Warnw("admin_audit_record_failed", "action", item.Action, "target_id", item.TargetID, "error", err)
	}
}

// List 管理端查询审计日志
func (s *AuditService) List(filter repository.AuditLogListFilter) ([]models.AdminAuditLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AdminAuditLog{}, 0, nil
	}
	filter.Page, filter.PageSize = NormalizePagination(filter.Page, filter.PageSize, 100)
	filter.Action = strings.TrimSpace(filter.Action)
	return s.repo.List(filter)
}
