package constants

// 工单状态常量
const (
	TicketStatusOpen    = "open"
	TicketStatusPending = "pending"
	TicketStatusClosed  = "closed"
)

// 工单消息发送方
const (
	TicketSenderUser   = "user"
	TicketSenderAdmin  = "admin"
	TicketSenderSystem = "system"
)

// TicketClosedMessage 工单关闭时追加的系统消息
const TicketClosedMessage = "Ticket has been closed by support staff."

// TicketDefaultSubject 未填写主题时的默认值
const TicketDefaultSubject = "No subject"

// 联系表单状态
const (
	ContactStatusNew     = "new"
	ContactStatusRead    = "read"
	ContactStatusReplied = "replied"
)

// 报名申请状态
const (
	ApplicationStatusPending      = "PENDING"
	ApplicationStatusSuccessful   = "SUCCESSFUL"
	ApplicationStatusUnsuccessful = "UNSUCCESSFUL"
	ApplicationStatusSecondIntake = "SECOND_INTAKE"
)

// 报名申请文件槽位
var ApplicationDocumentSlots = []string{"cv", "doc1", "doc2", "doc3", "doc4", "doc5"}

// 点赞目标类型
const (
	LikeTargetPost    = "post"
	LikeTargetComment = "comment"
	LikeTargetReply   = "reply"
)

// 测验题型
const (
	QuizQuestionMCQ    = "mcq"
	QuizQuestionOutput = "output"
)

// 验证码通道
const (
	OTPChannelEmail = "email"
	OTPChannelPhone = "phone"
)

// 通知渠道
const (
	NotificationChannelEmail = "email"
	NotificationChannelSMS   = "sms"
)

// 生成式文本服务提供方
const (
	AIProviderNone   = "none"
	AIProviderGemini = "gemini"
	AIProviderOpenAI = "openai"
)

// AI 工单分析枚举
var (
	AITicketCategories = []string{"Authentication", "Billing", "Bug", "Feature Request", "General", "Other"}
	AITicketUrgencies  = []string{"Low", "Medium", "High"}
	AITicketSentiments = []string{"Calm", "Frustrated", "Angry"}
)

// 验证码提供方
const (
	CaptchaProviderNone  = "none"
	CaptchaProviderImage = "image"
)

// 验证码场景
const (
	CaptchaSceneRegister = "register"
	CaptchaSceneLoginOTP = "login_otp"
)

// 管理端审计动作
const (
	AuditActionRoleGrant         = "role_grant"
	AuditActionTicketClose       = "ticket_close"
	AuditActionTicketReply       = "ticket_reply"
	AuditActionApplicationStatus = "application_status"
	AuditActionContactStatus     = "contact_status"
	AuditActionContactDelete     = "contact_delete"
	AuditActionPostDelete        = "post_delete"
)

// 队列名称
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型
const (
	TaskNotificationSend  = "notification:send"
	TaskRevokedTokenPurge = "revoked_token:purge"
)
