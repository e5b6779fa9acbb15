package models

import (
	"time"
)

// Ticket 客服工单
type Ticket struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	TicketID    string          `gorm:"column:ticket_id;uniqueIndex;size:16;not null" json:"ticket_id"` // AAA-XXX-XXXX
	Email       string          `gorm:"index;size:255;not null" json:"email"`
	Subject     string          `gorm:"size:200;not null" json:"subject"`
	Status      string          `gorm:"index;size:16;not null" json:"status"`
	LastReplyBy string          `gorm:"size:16;not null" json:"last_reply_by"`
	Category    string          `gorm:"size:64;not null;default:''" json:"category,omitempty"`
	Urgency     string          `gorm:"size:16;not null;default:''" json:"urgency,omitempty"`
	ClosedAt    *time.Time      `json:"closed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `gorm:"index" json:"updated_at"`
	Messages    []TicketMessage `gorm:"foreignKey:TicketPK" json:"messages,omitempty"`
}

// TableName 指定表名
func (Ticket) TableName() string {
	return "tickets"
}

// TicketMessage 工单消息，只追加不修改
type TicketMessage struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	TicketPK  uint      `gorm:"column:ticket_pk;index;not null" json:"-"`
	Sender    string    `gorm:"size:16;not null" json:"sender"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `json:"timestamp"`
}

// TableName 指定表名
func (TicketMessage) TableName() string {
	return "ticket_messages"
}
