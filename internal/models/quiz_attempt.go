package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuizAttempt 测验提交记录
type QuizAttempt struct {
	ID                 uint                                  `gorm:"primarykey" json:"id"`
	Email              string                                `gorm:"index;size:255;not null" json:"email"`
	Answers            datatypes.JSONType[map[string]string] `json:"answers"`
	Score              int                                   `gorm:"not null" json:"score"`
	Total              int                                   `gorm:"not null" json:"total"`
	Percentage         int                                   `gorm:"not null" json:"percentage"`
	Passed             bool                                  `gorm:"not null" json:"passed"`
	AttemptedAt        time.Time                             `gorm:"index;not null" json:"attempted_at"`
	NextAllowedAttempt *time.Time                            `json:"next_allowed_attempt,omitempty"` // 通过时为空
	CreatedAt          time.Time                             `json:"created_at"`
}

// TableName 指定表名
func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
