package models

import (
	"time"

	"gorm.io/datatypes"
)

// Post 社区帖子
type Post struct {
	ID        uint                        `gorm:"primarykey" json:"id"`
	AuthorID  uint                        `gorm:"index;not null" json:"author_id"`
	Title     string                      `gorm:"size:200;not null" json:"title"`
	Body      string                      `gorm:"type:text;not null" json:"body"`      // Markdown 原文
	BodyHTML  string                      `gorm:"type:text;not null" json:"body_html"` // 渲染并清洗后的 HTML
	Images    datatypes.JSONSlice[string] `json:"images"`
	CreatedAt time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`

	Author *Account `gorm:"foreignKey:AuthorID" json:"-"`
}

// TableName 指定表名
func (Post) TableName() string {
	return "posts"
}

// Comment 帖子评论
type Comment struct {
	ID        uint                        `gorm:"primarykey" json:"id"`
	PostID    uint                        `gorm:"index;not null" json:"post_id"`
	AuthorID  uint                        `gorm:"index;not null" json:"author_id"`
	Text      string                      `gorm:"type:text;not null" json:"text"`
	TextHTML  string                      `gorm:"type:text;not null" json:"text_html"`
	Media     datatypes.JSONSlice[string] `json:"media"`
	Mentions  datatypes.JSONSlice[uint]   `json:"mentions"`
	Edited    bool                        `gorm:"not null;default:false" json:"edited"`
	CreatedAt time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`

	Author *Account `gorm:"foreignKey:AuthorID" json:"-"`
}

// TableName 指定表名
func (Comment) TableName() string {
	return "comments"
}

// Reply 评论下的回复，只有一层
type Reply struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CommentID uint      `gorm:"index;not null" json:"comment_id"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	TextHTML  string    `gorm:"type:text;not null" json:"text_html"`
	Edited    bool      `gorm:"not null;default:false" json:"edited"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Author *Account `gorm:"foreignKey:AuthorID" json:"-"`
}

// TableName 指定表名
func (Reply) TableName() string {
	return "comment_replies"
}

// Like 点赞记录，(target_type, target_id, account_id) 唯一
type Like struct {
	ID         uint      `gorm:"primarykey" json:"-"`
	TargetType string    `gorm:"size:16;not null;uniqueIndex:idx_like_target_account,priority:1" json:"target_type"`
	TargetID   uint      `gorm:"not null;uniqueIndex:idx_like_target_account,priority:2" json:"target_id"`
	AccountID  uint      `gorm:"not null;uniqueIndex:idx_like_target_account,priority:3;index" json:"account_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (Like) TableName() string {
	return "likes"
}
