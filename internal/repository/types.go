package repository

// TicketListFilter 管理端工单列表过滤条件
type TicketListFilter struct {
	Page     int
	PageSize int
	Status   string
	Search   string // 匹配工单号、邮箱、主题
}

// PostListFilter 帖子列表过滤条件
type PostListFilter struct {
	Page     int
	PageSize int
	AuthorID uint
}

// ReplyListFilter 评论回复分页
type ReplyListFilter struct {
	CommentID uint
	Page      int
	PageSize  int
}

// ContactListFilter 联系留言过滤条件
type ContactListFilter struct {
	Page     int
	PageSize int
	Status   string
	Search   string
}

// ApplicationListFilter 报名申请过滤条件
type ApplicationListFilter struct {
	Page     int
	PageSize int
	Status   string
	Search   string
}

// QuizAttemptListFilter 测验记录过滤条件
type QuizAttemptListFilter struct {
	Page     int
	PageSize int
	Email    string
}

// AuditLogListFilter 审计日志过滤条件
type AuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	Action          string
}
