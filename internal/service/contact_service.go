package service

import (
	"strings"

	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/models"
	"github.com/swiftmeta/internal/repository"
)

// ContactInput 联系表单参数
type ContactInput struct {
	Name      string
	Email     string
	Subject   string
	Message   string
	IPAddress string
	UserAgent string
}

// ContactService 联系表单
type ContactService struct {
	cfg         config.TicketConfig
	contactRepo repository.ContactRepository
	notifier    *NotificationService
}

// NewContactService 创建联系表单服务，通知发往 ticket.admin_email
func NewContactService(cfg config.TicketConfig, contactRepo repository.ContactRepository, notifier *NotificationService) *ContactService {
	return &ContactService{cfg: cfg, contactRepo: contactRepo, notifier: notifier}
}

// Submit 校验并保存留言，通知管理员
func (s *ContactService) Submit(input ContactInput) (*models.Contact, error) {
	name := strings.TrimSpace(input.Name)
	if err := requireLength("name", name, 2, 80); err != nil {
		return nil, err
	}
	email, err := NormalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(input.Subject)
	if err := requireLength("subject", subject, 0, 120); err != nil {
		return nil, err
	}
	message := strings.TrimSpace(input.Message)
	if err := requireLength("message", message, 10, 2000); err != nil {
		return nil, err
	}

	contact := &models.Contact{
		Name:      name,
		Email:     email,
		Subject:   subject,
		Message:   message,
		Status:    constants.ContactStatusNew,
		IPAddress: truncateRunes(strings.TrimSpace(input.IPAddress), 64),
		UserAgent: truncateRunes(strings.TrimSpace(input.UserAgent), 512),
	}
	if err := s.contactRepo.Create(contact); err != nil {
		return nil, err
	}
	logger.Infow("contact_received", "contact_id", contact.ID)
	if admin := strings.TrimSpace(s.cfg.AdminEmail); admin != "" {
		s.notifier.Dispatch(eventContactReceived, contactAdminMessage(admin, contact))
	}
	return contact, nil
}

// List 管理端分页列表
func (s *ContactService) List(filter repository.ContactListFilter) ([]models.Contact, int64, error) {
	filter.Page, filter.PageSize = NormalizePagination(filter.Page, filter.PageSize, 100)
	if filter.Status != "" && !isContactStatus(filter.Status) {
		return nil, 0, ErrStatusInvalid
	}
	return s.contactRepo.List(filter)
}

// UpdateStatus 更新留言状态
func (s *ContactService) UpdateStatus(id uint, status string) (*models.Contact, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !isContactStatus(status) {
		return nil, ErrStatusInvalid
	}
	contact, err := s.contactRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, ErrContactNotFound
	}
	if err := s.contactRepo.UpdateStatus(id, status); err != nil {
		return nil, err
	}
	contact.Status = status
	return contact, nil
}

// Delete 删除留言
func (s *ContactService) Delete(id uint) error {
	deleted, err := s.contactRepo.Delete(id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrContactNotFound
	}
	return nil
}

func isContactStatus(status string) bool {
	switch status {
	case constants.ContactStatusNew, constants.ContactStatusRead, constants.ContactStatusReplied:
		return true
	}
	return false
}

func truncateRunes(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}
