package service

import (
	"strings"
	"time"

	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/metrics"
	"github.com/swiftmeta/internal/models"
	"github.com/swiftmeta/internal/repository"
)

// 工单状态事件，用于指标标签
const (
	ticketEventCreate = "create"
	ticketEventReply  = "reply"
	ticketEventClose  = "close"
)

// CreateTicketInput 创建工单参数
type CreateTicketInput struct {
	Email    string
	Subject  string
	Message  string
	Category string
	Urgency  string
}

// TicketService 工单服务，状态由最后一条消息的发送方决定
type TicketService struct {
	cfg        config.TicketConfig
	ticketRepo repository.TicketRepository
	notifier   *NotificationService
	metrics    *metrics.Registry
	generateID func() (string, error)
	now        func() time.Time
}

// NewTicketService 创建工单服务
func NewTicketService(cfg config.TicketConfig, ticketRepo repository.TicketRepository, notifier *NotificationService, reg *metrics.Registry) *TicketService {
	return &TicketService{
		cfg:        cfg,
		ticketRepo: ticketRepo,
		notifier:   notifier,
		metrics:    reg,
		generateID: GenerateTicketID,
		now:        time.Now,
	}
}

// Create 创建工单，工单号冲突时重试
func (s *TicketService) Create(input CreateTicketInput) (*models.Ticket, error) {
	email, err := NormalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, invalidField("message", "is required")
	}
	if err := requireLength("message", message, 1, 5000); err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		subject = constants.TicketDefaultSubject
	}
	if err := requireLength("subject", subject, 1, 200); err != nil {
		return nil, err
	}
	category, err := optionalEnum("category", input.Category, constants.AITicketCategories)
	if err != nil {
		return nil, err
	}
	urgency, err := optionalEnum("urgency", input.Urgency, constants.AITicketUrgencies)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var ticket *models.Ticket
	for attempt := 0; attempt < ticketIDRetries; attempt++ {
		id, genErr := s.generateID()
		if genErr != nil {
			return nil, genErr
		}
		candidate := &models.Ticket{
			TicketID:    id,
			Email:       email,
			Subject:     subject,
			Status:      constants.TicketStatusOpen,
			LastReplyBy: constants.TicketSenderUser,
			Category:    category,
			Urgency:     urgency,
			Messages: []models.TicketMessage{
				{Sender: constants.TicketSenderUser, Text: message, CreatedAt: now},
			},
		}
		err = s.ticketRepo.Create(candidate)
		if err == nil {
			ticket = candidate
			break
		}
		if !repository.IsUniqueViolation(err) {
			return nil, err
		}
		logger.Warnw("ticket_id_collision", "ticket_id", id, "attempt", attempt+1)
	}
	if ticket == nil {
		return nil, ErrTicketIDExhausted
	}

	s.metrics.ObserveTicketTransition(ticketEventCreate, ticket.Status)
	logger.Infow("ticket_created", "ticket_id", ticket.TicketID)
	s.notifier.Dispatch(eventTicketCreated, ticketCreatedMessage(ticket, message))
	if admin := strings.TrimSpace(s.cfg.AdminEmail); admin != "" {
		s.notifier.Dispatch(eventTicketAdminNotice, ticketAdminNoticeMessage(admin, ticket, message))
	}
	return ticket, nil
}

// Get 按工单号获取工单及全部消息
func (s *TicketService) Get(ticketID string) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.GetByTicketID(ticketID, true)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}
	return ticket, nil
}

// List 管理端分页列表
func (s *TicketService) List(filter repository.TicketListFilter) ([]models.Ticket, int64, error) {
	filter.Page, filter.PageSize = NormalizePagination(filter.Page, filter.PageSize, 100)
	if filter.Status != "" && !isTicketStatus(filter.Status) {
		return nil, 0, ErrStatusInvalid
	}
	return s.ticketRepo.List(filter)
}

// Reply 追加回复：用户回复置为 pending，管理员回复置为 open，已关闭工单拒绝
func (s *TicketService) Reply(ticketID, sender, message string) (*models.Ticket, error) {
	sender = strings.ToLower(strings.TrimSpace(sender))
	var status string
	switch sender {
	case constants.TicketSenderUser:
		status = constants.TicketStatusPending
	case constants.TicketSenderAdmin:
		status = constants.TicketStatusOpen
	default:
		return nil, ErrTicketSenderInvalid
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrTicketMessageMissing
	}
	if err := requireLength("message", message, 1, 5000); err != nil {
		return nil, err
	}

	ticket, err := s.ticketRepo.GetByTicketID(ticketID, false)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}
	if ticket.Status == constants.TicketStatusClosed {
		return nil, ErrTicketClosed
	}

	applied, err := s.ticketRepo.Apply(ticket.ID, repository.TicketTransition{
		Status:      status,
		LastReplyBy: sender,
		Message:     models.TicketMessage{Sender: sender, Text: message, CreatedAt: s.now()},
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrTicketClosed
	}

	updated, err := s.Get(ticket.TicketID)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveTicketTransition(ticketEventReply, updated.Status)
	logger.Infow("ticket_replied", "ticket_id", updated.TicketID, "sender", sender, "status", updated.Status)

	if sender == constants.TicketSenderAdmin {
		s.notifier.Dispatch(eventTicketReply, ticketReplyMessage(updated, message))
	} else if admin := strings.TrimSpace(s.cfg.AdminEmail); admin != "" {
		s.notifier.Dispatch(eventTicketAdminNotice, ticketAdminNoticeMessage(admin, updated, message))
	}
	return updated, nil
}

// Close 关闭工单；重复关闭直接返回当前工单，不追加系统消息
func (s *TicketService) Close(ticketID string) (*models.Ticket, error) {
	ticket, err := s.Get(ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == constants.TicketStatusClosed {
		return ticket, nil
	}

	now := s.now()
	applied, err := s.ticketRepo.Apply(ticket.ID, repository.TicketTransition{
		Status:      constants.TicketStatusClosed,
		LastReplyBy: constants.TicketSenderSystem,
		ClosedAt:    &now,
		Message: models.TicketMessage{
			Sender:    constants.TicketSenderSystem,
			Text:      constants.TicketClosedMessage,
			CreatedAt: now,
		},
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.Get(ticket.TicketID)
	if err != nil {
		return nil, err
	}
	if !applied {
		return updated, nil
	}
	s.metrics.ObserveTicketTransition(ticketEventClose, updated.Status)
	logger.Infow("ticket_closed", "ticket_id", updated.TicketID)
	s.notifier.Dispatch(eventTicketClosed, ticketClosedMessage(updated))
	return updated, nil
}

func isTicketStatus(status string) bool {
	switch status {
	case constants.TicketStatusOpen, constants.TicketStatusPending, constants.TicketStatusClosed:
		return true
	}
	return false
}

// optionalEnum 空值放行，非空时需命中枚举（大小写不敏感），返回规范写法
func optionalEnum(field, value string, allowed []string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, value) {
			return candidate, nil
		}
	}
	return "", invalidField(field, "must be one of %s", strings.Join(allowed, ", "))
}
