package public

import (
	"github.com/swiftmeta/internal/http/handlers/shared"
	"github.com/swiftmeta/internal/http/response"
	"github.com/swiftmeta/internal/service"

	"github.com/gin-gonic/gin"
)

const maxReplyPageSize = 50

// PostRequest 创建或更新帖子
type PostRequest struct {
	Title  string   `json:"title" binding:"required"`
	Body   string   `json:"body" binding:"required"`
	Images []string `json:"images"`
}

func (r PostRequest) toInput() service.PostInput {
	return service.PostInput{Title: r.Title, Body: r.Body, Images: r.Images}
}

// ListPosts 帖子列表
func (h *Handler) ListPosts(c *gin.Context) {
	page, limit := shared.ParsePagination(c, shared.MaxPageLimit)
	posts, total, err := h.PostService.ListPosts(page, limit, viewerID(c))
	if err != nil {
		shared.RespondServiceError(c, err, "failed to load posts")
		return
	}
	response.SuccessWithPage(c, posts, response.BuildPagination(page, limit, total))
}

// GetPost 帖子详情
func (h *Handler) GetPost(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.PostService.GetPost(id, viewerID(c))
	if err != nil {
		shared.RespondServiceError(c, err, "failed to load post")
		return
	}
	response.Success(c, detail)
}

// CreatePost 发帖
func (h *Handler) CreatePost(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	post, err := h.PostService.CreatePost(accountID, req.toInput())
	if err != nil {
		shared.RespondServiceError(c, err, "failed to create post")
		return
	}
	response.Created(c, "post created", post)
}

// UpdatePost 作者更新帖子
func (h *Handler) UpdatePost(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	post, err := h.PostService.UpdatePost(accountID, id, req.toInput())
	if err != nil {
		shared.RespondServiceError(c, err, "failed to update post")
		return
	}
	response.Success(c, post)
}

// DeletePost 作者删除帖子
func (h *Handler) DeletePost(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.PostService.DeletePost(accountID, id); err != nil {
		shared.RespondServiceError(c, err, "failed to delete post")
		return
	}
	response.SuccessWithMsg(c, "post deleted", gin.H{"id": id})
}

// TogglePostLike 切换帖子点赞
func (h *Handler) TogglePostLike(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	result, err := h.PostService.TogglePostLike(accountID, id)
	if err != nil {
		shared.RespondServiceError(c, err, "failed to toggle like")
		return
	}
	response.Success(c, result)
}

// CommentRequest 评论请求
type CommentRequest struct {
	Text     string   `json:"text" binding:"required"`
	Media    []string `json:"media"`
	Mentions []uint   `json:"mentions"`
}

// TextRequest 仅包含正文的请求
type TextRequest struct {
	Text string `json:"text" binding:"required"`
}

// CreateComment 发表评论
func (h *Handler) CreateComment(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	postID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	comment, err := h.PostService.CreateComment(accountID, postID, service.CommentInput{
		Text:     req.Text,
		Media:    req.Media,
		Mentions: req.Mentions,
	})
	if err != nil {
		shared.RespondServiceError(c, err, "failed to create comment")
		return
	}
	response.Created(c, "comment created", comment)
}

// UpdateComment 作者编辑评论
func (h *Handler) UpdateComment(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	postID, commentID, ok := parsePostAndComment(c)
	if !ok {
		return
	}
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	comment, err := h.PostService.UpdateComment(accountID, postID, commentID, req.Text)
	if err != nil {
		shared.RespondServiceError(c, err, "failed to update comment")
		return
	}
	response.Success(c, comment)
}

// DeleteComment 评论作者或帖子作者删除评论
func (h *Handler) DeleteComment(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	postID, commentID, ok := parsePostAndComment(c)
	if !ok {
		return
	}
	if err := h.PostService.DeleteComment(accountID, postID, commentID); err != nil {
		shared.RespondServiceError(c, err, "failed to delete comment")
		return
	}
	response.SuccessWithMsg(c, "comment deleted", gin.H{"id": commentID})
}

// ToggleCommentLike 切换评论点赞
func (h *Handler) ToggleCommentLike(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	postID, commentID, ok := parsePostAndComment(c)
	if !ok {
		return
	}
	result, err := h.PostService.ToggleCommentLike(accountID, postID, commentID)
	if err != nil {
		shared.RespondServiceError(c, err, "failed to toggle like")
		return
	}
	response.Success(c, result)
}

// ListReplies 分页查询评论回复
func (h *Handler) ListReplies(c *gin.Context) {
	postID, commentID, ok := parsePostAndComment(c)
	if !ok {
		return
	}
	page, limit := shared.ParsePagination(c, maxReplyPageSize)
	replies, total, err := h.PostService.ListReplies(postID, commentID, page, limit, viewerID(c))
	if err != nil {
		shared.RespondServiceError(c, err, "failed to load replies")
		return
	}
	response.SuccessWithPage(c, replies, response.BuildPagination(page, limit, total))
}

// CreateReply 回复评论
func (h *Handler) CreateReply(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	postID, commentID, ok := parsePostAndComment(c)
	if !ok {
		return
	}
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	reply, err := h.PostService.CreateReply(accountID, postID, commentID, req.Text)
	if err != nil {
		shared.RespondServiceError(c, err, "failed to create reply")
		return
	}
	response.Created(c, "reply created", reply)
}

// UpdateReply 作者编辑回复
func (h *Handler) UpdateReply(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	postID, commentID, ok := parsePostAndComment(c)
	if !ok {
		return
	}
	replyID, ok := shared.ParseUintParam(c, "reply_id")
	if !ok {
		return
	}
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondBindError(c, err)
		return
	}
	reply, err := h.PostService.UpdateReply(accountID, postID, commentID, replyID, req.Text)
	if err != nil {
		shared.RespondServiceError(c, err, "failed to update reply")
		return
	}
	response.Success(c, reply)
}

// DeleteReply 回复作者或帖子作者删除回复
func (h *Handler) DeleteReply(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	postID, commentID, ok := parsePostAndComment(c)
	if !ok {
		return
	}
	replyID, ok := shared.ParseUintParam(c, "reply_id")
	if !ok {
		return
	}
	if err := h.PostService.DeleteReply(accountID, postID, commentID, replyID); err != nil {
		shared.RespondServiceError(c, err, "failed to delete reply")
		return
	}
	response.SuccessWithMsg(c, "reply deleted", gin.H{"id": replyID})
}

// ToggleReplyLike 切换回复点赞
func (h *Handler) ToggleReplyLike(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	postID, commentID, ok := parsePostAndComment(c)
	if !ok {
		return
	}
	replyID, ok := shared.ParseUintParam(c, "reply_id")
	if !ok {
		return
	}
	result, err := h.PostService.ToggleReplyLike(accountID, postID, commentID, replyID)
	if err != nil {
		shared.RespondServiceError(c, err, "failed to toggle like")
		return
	}
	response.Success(c, result)
}

func parsePostAndComment(c *gin.Context) (uint, uint, bool) {
	postID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return 0, 0, false
	}
	commentID, ok := shared.ParseUintParam(c, "comment_id")
	if !ok {
		return 0, 0, false
	}
	return postID, commentID, true
}
