package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/models"

	"gorm.io/gorm"
)

// TicketTransition 一次回复或关闭带来的状态变更
type TicketTransition struct {
	Status      string
	LastReplyBy string
	Message     models.TicketMessage
	ClosedAt    *time.Time
}

// TicketRepository 工单数据访问接口
type TicketRepository interface {
	Create(ticket *models.Ticket) error
	GetByTicketID(ticketID string, withMessages bool) (*models.Ticket, error)
	List(filter TicketListFilter) ([]models.Ticket, int64, error)
	Apply(ticketPK uint, transition TicketTransition) (bool, error)
}

// GormTicketRepository GORM 实现
type GormTicketRepository struct {
	db *gorm.DB
}

// NewTicketRepository 创建工单仓库
func NewTicketRepository(db *gorm.DB) *GormTicketRepository {
	return &GormTicketRepository{db: db}
}

// Create 创建工单及首条消息
func (r *GormTicketRepository) Create(ticket *models.Ticket) error {
	return r.db.Create(ticket).Error
}

// GetByTicketID 按对外工单号查询
func (r *GormTicketRepository) GetByTicketID(ticketID string, withMessages bool) (*models.Ticket, error) {
	ticketID = strings.ToUpper(strings.TrimSpace(ticketID))
	if ticketID == "" {
		return nil, nil
	}
	query := r.db.Where("ticket_id = ?", ticketID)
	if withMessages {
		query = query.Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
	}
	var ticket models.Ticket
	if err := query.First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

// List 管理端列表，按最近活动倒序，不带消息
func (r *GormTicketRepository) List(filter TicketListFilter) ([]models.Ticket, int64, error) {
	query := r.db.Model(&models.Ticket{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if cond, args := buildLikeCondition(r.db, filter.Search, "ticket_id", "email", "subject"); cond != "" {
		query = query.Where(cond, args...)
	}
	tickets := make([]models.Ticket, 0)
	total, err := countAndFind(query, filter.Page, filter.PageSize, "updated_at DESC, id DESC", &tickets)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

// Apply 在事务中以 status <> closed 为条件更新工单并追加消息。
// 返回 false 表示工单已关闭，未做任何修改。
func (r *GormTicketRepository) Apply(ticketPK uint, transition TicketTransition) (bool, error) {
	applied := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		now := transition.Message.CreatedAt
		if now.IsZero() {
			now = time.Now()
		}
		updates := map[string]interface{}{
			"status":        transition.Status,
			"last_reply_by": transition.LastReplyBy,
			"updated_at":    now,
		}
		if transition.ClosedAt != nil {
			updates["closed_at"] = *transition.ClosedAt
		}
		result := tx.Model(&models.Ticket{}).
			Where("id = ? AND status <> ?", ticketPK, constants.TicketStatusClosed).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		msg := transition.Message
		msg.TicketPK = ticketPK
		msg.CreatedAt = now
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
