package service

import (
	"strings"

	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/models"
	"github.com/swiftmeta/internal/repository"
)

const (
	postTitleMax     = 200
	postBodyMax      = 20000
	postImagesMax    = 10
	commentTextMax   = 2000
	commentMediaMax  = 4
	replyPageSizeMax = 50
)

// PostInput 创建或更新帖子
type PostInput struct {
	Title  string
	Body   string
	Images []string
}

// CommentInput 创建评论
type CommentInput struct {
	Text     string
	Media    []string
	Mentions []uint
}

// LikeResult 点赞切换结果
type LikeResult struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}

// PostView 帖子列表项
type PostView struct {
	models.Post
	Author       models.AccountSummary `json:"author"`
	LikeCount    int64                 `json:"like_count"`
	CommentCount int64                 `json:"comment_count"`
	Liked        bool                  `json:"liked"`
}

// ReplyView 回复展示
type ReplyView struct {
	models.Reply
	Author    models.AccountSummary `json:"author"`
	LikeCount int64                 `json:"like_count"`
	Liked     bool                  `json:"liked"`
}

// CommentView 评论展示，附带全部回复
type CommentView struct {
	models.Comment
	Author    models.AccountSummary `json:"author"`
	LikeCount int64                 `json:"like_count"`
	Liked     bool                  `json:"liked"`
	Replies   []ReplyView           `json:"replies"`
}

// PostDetail 帖子详情
type PostDetail struct {
	PostView
	Comments []CommentView `json:"comments"`
}

// PostService 社区帖子、评论、回复与点赞
type PostService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	likeRepo    repository.LikeRepository
	accountRepo repository.AccountRepository
	renderer    *ContentRenderer
}

// NewPostService 创建帖子服务
func NewPostService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	likeRepo repository.LikeRepository,
	accountRepo repository.AccountRepository,
	renderer *ContentRenderer,
) *PostService {
	if renderer == nil {
		renderer = NewContentRenderer()
	}
	return &PostService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		likeRepo:    likeRepo,
		accountRepo: accountRepo,
		renderer:    renderer,
	}
}

// ListPosts 帖子分页列表，viewerID 为 0 表示匿名
func (s *PostService) ListPosts(page, pageSize int, viewerID uint) ([]PostView, int64, error) {
	page, pageSize = NormalizePagination(page, pageSize, 100)
	posts, total, err := s.postRepo.List(repository.PostListFilter{Page: page, PageSize: pageSize})
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	likeCounts, err := s.likeRepo.Counts(constants.LikeTargetPost, ids)
	if err != nil {
		return nil, 0, err
	}
	commentCounts, err := s.postRepo.CommentCounts(ids)
	if err != nil {
		return nil, 0, err
	}
	liked, err := s.likedBy(constants.LikeTargetPost, ids, viewerID)
	if err != nil {
		return nil, 0, err
	}
	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, PostView{
			Post:         p,
			Author:       p.Author.Summary(),
			LikeCount:    likeCounts[p.ID],
			CommentCount: commentCounts[p.ID],
			Liked:        liked[p.ID],
		})
	}
	return views, total, nil
}

// GetPost 帖子详情，含评论与回复
func (s *PostService) GetPost(id, viewerID uint) (*PostDetail, error) {
	post, err := s.mustPost(id)
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(post.ID)
	if err != nil {
		return nil, err
	}
	commentIDs := make([]uint, 0, len(comments))
	for _, c := range comments {
		commentIDs = append(commentIDs, c.ID)
	}
	replies, err := s.commentRepo.ListRepliesByComments(commentIDs)
	if err != nil {
		return nil, err
	}
	replyIDs := make([]uint, 0, len(replies))
	for _, r := range replies {
		replyIDs = append(replyIDs, r.ID)
	}

	postLikes, err := s.likeRepo.Count(constants.LikeTargetPost, post.ID)
	if err != nil {
		return nil, err
	}
	postLiked, err := s.likedBy(constants.LikeTargetPost, []uint{post.ID}, viewerID)
	if err != nil {
		return nil, err
	}
	commentLikes, err := s.likeRepo.Counts(constants.LikeTargetComment, commentIDs)
	if err != nil {
		return nil, err
	}
	commentLiked, err := s.likedBy(constants.LikeTargetComment, commentIDs, viewerID)
	if err != nil {
		return nil, err
	}
	replyLikes, err := s.likeRepo.Counts(constants.LikeTargetReply, replyIDs)
	if err != nil {
		return nil, err
	}
	replyLiked, err := s.likedBy(constants.LikeTargetReply, replyIDs, viewerID)
	if err != nil {
		return nil, err
	}

	byComment := make(map[uint][]ReplyView, len(comments))
	for _, r := range replies {
		byComment[r.CommentID] = append(byComment[r.CommentID], ReplyView{
			Reply:     r,
			Author:    r.Author.Summary(),
			LikeCount: replyLikes[r.ID],
			Liked:     replyLiked[r.ID],
		})
	}
	commentViews := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		views := byComment[c.ID]
		if views == nil {
			views = []ReplyView{}
		}
		commentViews = append(commentViews, CommentView{
			Comment:   c,
			Author:    c.Author.Summary(),
			LikeCount: commentLikes[c.ID],
			Liked:     commentLiked[c.ID],
			Replies:   views,
		})
	}

	return &PostDetail{
		PostView: PostView{
			Post:         *post,
			Author:       post.Author.Summary(),
			LikeCount:    postLikes,
			CommentCount: int64(len(comments)),
			Liked:        postLiked[post.ID],
		},
		Comments: commentViews,
	}, nil
}

// CreatePost 发帖
func (s *PostService) CreatePost(authorID uint, input PostInput) (*models.Post, error) {
	post := &models.Post{AuthorID: authorID}
	if err := s.applyPostInput(post, input); err != nil {
		return nil, err
	}
	if err := s.postRepo.Create(post); err != nil {
		return nil, err
	}
	logger.Infow("post_created", "post_id", post.ID, "author_id", authorID)
	return s.postRepo.GetByID(post.ID)
}

// UpdatePost 仅作者可编辑
func (s *PostService) UpdatePost(actorID, id uint, input PostInput) (*models.Post, error) {
	post, err := s.mustPost(id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID {
		return nil, ErrNotOwner
	}
	if err := s.applyPostInput(post, input); err != nil {
		return nil, err
	}
	post.Author = nil
	if err := s.postRepo.Update(post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(post.ID)
}

// DeletePost 仅作者可删除
func (s *PostService) DeletePost(actorID, id uint) error {
	post, err := s.mustPost(id)
	if err != nil {
		return err
	}
	if post.AuthorID != actorID {
		return ErrNotOwner
	}
	return s.deletePost(post)
}

// AdminDeletePost 管理端删除帖子
func (s *PostService) AdminDeletePost(id uint) error {
	post, err := s.mustPost(id)
	if err != nil {
		return err
	}
	return s.deletePost(post)
}

// TogglePostLike 切换帖子点赞
func (s *PostService) TogglePostLike(accountID, postID uint) (*LikeResult, error) {
	if _, err := s.mustPost(postID); err != nil {
		return nil, err
	}
	return s.toggle(constants.LikeTargetPost, postID, accountID)
}

// CreateComment 发表评论，mentions 只保留存在的账号
func (s *PostService) CreateComment(authorID, postID uint, input CommentInput) (*CommentView, error) {
	if _, err := s.mustPost(postID); err != nil {
		return nil, err
	}
	text, html, err := s.renderText("text", input.Text)
	if err != nil {
		return nil, err
	}
	media, err := normalizeMediaURLs("media", input.Media, commentMediaMax)
	if err != nil {
		return nil, err
	}
	mentions, err := s.resolveMentions(input.Mentions)
	if err != nil {
		return nil, err
	}
	comment := &models.Comment{
		PostID:   postID,
		AuthorID: authorID,
		Text:     text,
		TextHTML: html,
		Media:    media,
		Mentions: mentions,
	}
	if err := s.commentRepo.CreateComment(comment); err != nil {
		return nil, err
	}
	saved, err := s.commentRepo.GetComment(comment.ID)
	if err != nil {
		return nil, err
	}
	return &CommentView{Comment: *saved, Author: saved.Author.Summary(), Replies: []ReplyView{}}, nil
}

// UpdateComment 仅评论作者可编辑，标记 edited
func (s *PostService) UpdateComment(actorID, postID, commentID uint, text string) (*models.Comment, error) {
	comment, err := s.mustComment(postID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actorID {
		return nil, ErrNotOwner
	}
	normalized, html, err := s.renderText("text", text)
	if err != nil {
		return nil, err
	}
	if err := s.commentRepo.UpdateComment(comment.ID, map[string]interface{}{
		"text":      normalized,
		"text_html": html,
		"edited":    true,
	}); err != nil {
		return nil, err
	}
	return s.commentRepo.GetComment(comment.ID)
}

// DeleteComment 评论作者或帖子作者可删除
func (s *PostService) DeleteComment(actorID, postID, commentID uint) error {
	post, err := s.mustPost(postID)
	if err != nil {
		return err
	}
	comment, err := s.mustComment(postID, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != actorID && post.AuthorID != actorID {
		return ErrNotOwner
	}
	if err := s.commentRepo.DeleteComment(comment.ID); err != nil {
		return err
	}
	logger.Infow("comment_deleted", "comment_id", comment.ID, "actor_id", actorID)
	return nil
}

// ToggleCommentLike 切换评论点赞
func (s *PostService) ToggleCommentLike(accountID, postID, commentID uint) (*LikeResult, error) {
	if _, err := s.mustComment(postID, commentID); err != nil {
		return nil, err
	}
	return s.toggle(constants.LikeTargetComment, commentID, accountID)
}

// ListReplies 分页获取回复，每页最多 50 条
func (s *PostService) ListReplies(postID, commentID uint, page, pageSize int, viewerID uint) ([]ReplyView, int64, error) {
	if _, err := s.mustComment(postID, commentID); err != nil {
		return nil, 0, err
	}
	page, pageSize = NormalizePagination(page, pageSize, replyPageSizeMax)
	replies, total, err := s.commentRepo.ListReplies(repository.ReplyListFilter{CommentID: commentID, Page: page, PageSize: pageSize})
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uint, 0, len(replies))
	for _, r := range replies {
		ids = append(ids, r.ID)
	}
	counts, err := s.likeRepo.Counts(constants.LikeTargetReply, ids)
	if err != nil {
		return nil, 0, err
	}
	liked, err := s.likedBy(constants.LikeTargetReply, ids, viewerID)
	if err != nil {
		return nil, 0, err
	}
	views := make([]ReplyView, 0, len(replies))
	for _, r := range replies {
		views = append(views, ReplyView{Reply: r, Author: r.Author.Summary(), LikeCount: counts[r.ID], Liked: liked[r.ID]})
	}
	return views, total, nil
}

// CreateReply 回复评论
func (s *PostService) CreateReply(authorID, postID, commentID uint, text string) (*ReplyView, error) {
	if _, err := s.mustComment(postID, commentID); err != nil {
		return nil, err
	}
	normalized, html, err := s.renderText("text", text)
	if err != nil {
		return nil, err
	}
	reply := &models.Reply{CommentID: commentID, AuthorID: authorID, Text: normalized, TextHTML: html}
	if err := s.commentRepo.CreateReply(reply); err != nil {
		return nil, err
	}
	saved, err := s.commentRepo.GetReply(reply.ID)
	if err != nil {
		return nil, err
	}
	return &ReplyView{Reply: *saved, Author: saved.Author.Summary()}, nil
}

// UpdateReply 仅回复作者可编辑
func (s *PostService) UpdateReply(actorID, postID, commentID, replyID uint, text string) (*models.Reply, error) {
	reply, err := s.mustReply(postID, commentID, replyID)
	if err != nil {
		return nil, err
	}
	if reply.AuthorID != actorID {
		return nil, ErrNotOwner
	}
	normalized, html, err := s.renderText("text", text)
	if err != nil {
		return nil, err
	}
	if err := s.commentRepo.UpdateReply(reply.ID, map[string]interface{}{
		"text":      normalized,
		"text_html": html,
		"edited":    true,
	}); err != nil {
		return nil, err
	}
	return s.commentRepo.GetReply(reply.ID)
}

// DeleteReply 回复作者或帖子作者可删除
func (s *PostService) DeleteReply(actorID, postID, commentID, replyID uint) error {
	post, err := s.mustPost(postID)
	if err != nil {
		return err
	}
	reply, err := s.mustReply(postID, commentID, replyID)
	if err != nil {
		return err
	}
	if reply.AuthorID != actorID && post.AuthorID != actorID {
		return ErrNotOwner
	}
	return s.commentRepo.DeleteReply(reply.ID)
}

// ToggleReplyLike 切换回复点赞
func (s *PostService) ToggleReplyLike(accountID, postID, commentID, replyID uint) (*LikeResult, error) {
	if _, err := s.mustReply(postID, commentID, replyID); err != nil {
		return nil, err
	}
	return s.toggle(constants.LikeTargetReply, replyID, accountID)
}

func (s *PostService) deletePost(post *models.Post) error {
	if err := s.postRepo.Delete(post.ID); err != nil {
		return err
	}
	logger.Infow("post_deleted", "post_id", post.ID)
	return nil
}

func (s *PostService) toggle(targetType string, targetID, accountID uint) (*LikeResult, error) {
	if accountID == 0 {
		return nil, ErrUnauthorized
	}
	liked, count, err := s.likeRepo.Toggle(targetType, targetID, accountID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{Liked: liked, Count: count}, nil
}

func (s *PostService) likedBy(targetType string, ids []uint, viewerID uint) (map[uint]bool, error) {
	if viewerID == 0 || len(ids) == 0 {
		return map[uint]bool{}, nil
	}
	return s.likeRepo.LikedBy(targetType, ids, viewerID)
}

func (s *PostService) mustPost(id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *PostService) mustComment(postID, commentID uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetComment(commentID)
	if err != nil {
		return nil, err
	}
	if comment == nil || comment.PostID != postID {
		return nil, ErrCommentNotFound
	}
	return comment, nil
}

func (s *PostService) mustReply(postID, commentID, replyID uint) (*models.Reply, error) {
	if _, err := s.mustComment(postID, commentID); err != nil {
		return nil, err
	}
	reply, err := s.commentRepo.GetReply(replyID)
	if err != nil {
		return nil, err
	}
	if reply == nil || reply.CommentID != commentID {
		return nil, ErrReplyNotFound
	}
	return reply, nil
}

func (s *PostService) applyPostInput(post *models.Post, input PostInput) error {
	title := strings.TrimSpace(input.Title)
	if err := requireLength("title", title, 1, postTitleMax); err != nil {
		return err
	}
	body := strings.TrimSpace(input.Body)
	if err := requireLength("body", body, 1, postBodyMax); err != nil {
		return err
	}
	images, err := normalizeMediaURLs("images", input.Images, postImagesMax)
	if err != nil {
		return err
	}
	html, err := s.renderer.Render(body)
	if err != nil {
		return err
	}
	post.Title = title
	post.Body = body
	post.BodyHTML = html
	post.Images = images
	return nil
}

func (s *PostService) renderText(field, text string) (string, string, error) {
	text = strings.TrimSpace(text)
	if err := requireLength(field, text, 1, commentTextMax); err != nil {
		return "", "", err
	}
	html, err := s.renderer.Render(text)
	if err != nil {
		return "", "", err
	}
	return text, html, nil
}

func (s *PostService) resolveMentions(ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return []uint{}, nil
	}
	seen := make(map[uint]struct{}, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	accounts, err := s.accountRepo.ListByIDs(unique)
	if err != nil {
		return nil, err
	}
	exists := make(map[uint]struct{}, len(accounts))
	for _, a := range accounts {
		exists[a.ID] = struct{}{}
	}
	out := make([]uint, 0, len(unique))
	for _, id := range unique {
		if _, ok := exists[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func normalizeMediaURLs(field string, urls []string, max int) ([]string, error) {
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		u := strings.TrimSpace(raw)
		if u == "" {
			continue
		}
		if !isHTTPURL(u) && !isSitePath(u) {
			return nil, invalidField(field, "must contain http(s) URLs")
		}
		out = append(out, u)
	}
	if len(out) > max {
		return nil, invalidField(field, "must contain at most %d items", max)
	}
	return out, nil
}
