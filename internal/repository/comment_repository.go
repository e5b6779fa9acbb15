package repository

import (
	"errors"

	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/models"

	"gorm.io/gorm"
)

// CommentRepository 评论与回复数据访问接口
type CommentRepository interface {
	CreateComment(comment *models.Comment) error
	GetComment(id uint) (*models.Comment, error)
	ListByPost(postID uint) ([]models.Comment, error)
	UpdateComment(id uint, fields map[string]interface{}) error
	DeleteComment(id uint) error

	CreateReply(reply *models.Reply) error
	GetReply(id uint) (*models.Reply, error)
	ListReplies(filter ReplyListFilter) ([]models.Reply, int64, error)
	ListRepliesByComments(commentIDs []uint) ([]models.Reply, error)
	UpdateReply(id uint, fields map[string]interface{}) error
	DeleteReply(id uint) error
}

// GormCommentRepository GORM 实现
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository 创建评论仓库
func NewCommentRepository(db *gorm.DB) *GormCommentRepository {
	return &GormCommentRepository{db: db}
}

// CreateComment 创建评论
func (r *GormCommentRepository) CreateComment(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

// GetComment 根据 ID 获取评论
func (r *GormCommentRepository) GetComment(id uint) (*models.Comment, error) {
	if id == 0 {
		return nil, nil
	}
	var comment models.Comment
	if err := r.db.Preload("Author").First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// ListByPost 获取帖子下全部评论，按时间正序
func (r *GormCommentRepository) ListByPost(postID uint) ([]models.Comment, error) {
	comments := make([]models.Comment, 0)
	if err := r.db.Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// UpdateComment 更新评论字段
func (r *GormCommentRepository) UpdateComment(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Comment{}).Where("id = ?", id).Updates(fields).Error
}

// DeleteComment 删除评论及其回复与点赞
func (r *GormCommentRepository) DeleteComment(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return deleteComments(tx, []uint{id})
	})
}

// CreateReply 创建回复
func (r *GormCommentRepository) CreateReply(reply *models.Reply) error {
	return r.db.Create(reply).Error
}

// GetReply 根据 ID 获取回复
func (r *GormCommentRepository) GetReply(id uint) (*models.Reply, error) {
	if id == 0 {
		return nil, nil
	}
	var reply models.Reply
	if err := r.db.Preload("Author").First(&reply, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reply, nil
}

// ListReplies 分页获取评论回复，按时间正序
func (r *GormCommentRepository) ListReplies(filter ReplyListFilter) ([]models.Reply, int64, error) {
	query := r.db.Model(&models.Reply{}).Where("comment_id = ?", filter.CommentID)
	replies := make([]models.Reply, 0)
	total, err := countAndFind(query, filter.Page, filter.PageSize, "created_at ASC, id ASC", &replies, "Author")
	if err != nil {
		return nil, 0, err
	}
	return replies, total, nil
}

// ListRepliesByComments 批量获取多条评论的回复
func (r *GormCommentRepository) ListRepliesByComments(commentIDs []uint) ([]models.Reply, error) {
	replies := make([]models.Reply, 0)
	if len(commentIDs) == 0 {
		return replies, nil
	}
	if err := r.db.Preload("Author").
		Where("comment_id IN ?", commentIDs).
		Order("created_at ASC, id ASC").
		Find(&replies).Error; err != nil {
		return nil, err
	}
	return replies, nil
}

// UpdateReply 更新回复字段
func (r *GormCommentRepository) UpdateReply(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Reply{}).Where("id = ?", id).Updates(fields).Error
}

// DeleteReply 删除回复及其点赞
func (r *GormCommentRepository) DeleteReply(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteLikes(tx, constants.LikeTargetReply, []uint{id}); err != nil {
			return err
		}
		return tx.Delete(&models.Reply{}, id).Error
	})
}
