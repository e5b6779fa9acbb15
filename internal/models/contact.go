package models

import "time"

// Contact 联系表单留言
type Contact struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"size:80;not null" json:"name"`
	Email     string    `gorm:"index;size:255;not null" json:"email"`
	Subject   string    `gorm:"size:120;not null;default:''" json:"subject"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Status    string    `gorm:"index;size:16;not null" json:"status"`
	IPAddress string    `gorm:"size:64;not null;default:''" json:"ip_address"`
	UserAgent string    `gorm:"size:512;not null;default:''" json:"user_agent"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Contact) TableName() string {
	return "contacts"
}
