package models

import (
	"time"

	"gorm.io/datatypes"
)

// ApplicationDocument 已上传的申请材料
type ApplicationDocument struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// Application 培训/岗位报名申请
type Application struct {
	ID            uint    `gorm:"primarykey" json:"id"`
	FirstName     string  `gorm:"size:80;not null" json:"first_name"`
	LastName      string  `gorm:"size:80;not null" json:"last_name"`
	IDNumber      string  `gorm:"column:id_number;uniqueIndex;size:13;not null" json:"id_number"`
	Gender        string  `gorm:"size:16;not null;default:''" json:"gender"`
	Email         string  `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Phone         *string `gorm:"uniqueIndex;size:32" json:"phone,omitempty"` // 可选，空值不参与唯一约束
	Location      string  `gorm:"size:120;not null" json:"location"`
	Qualification string  `gorm:"size:200;not null" json:"qualification"`
	Experience    string  `gorm:"type:text;not null" json:"experience"`
	CurrentRole   string  `gorm:"size:120;not null;default:''" json:"current_role"`
	Portfolio     string  `gorm:"size:512;not null;default:''" json:"portfolio"`
	Consent       bool    `gorm:"not null" json:"consent"`
	Status        string  `gorm:"index;size:16;not null" json:"status"`

	Documents datatypes.JSONType[map[string]ApplicationDocument] `json:"documents"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Application) TableName() string {
	return "applications"
}
