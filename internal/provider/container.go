package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/swiftmeta/internal/ai"
	"github.com/swiftmeta/internal/authz"
	"github.com/swiftmeta/internal/cache"
	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/metrics"
	"github.com/swiftmeta/internal/models"
	"github.com/swiftmeta/internal/queue"
	"github.com/swiftmeta/internal/repository"
	"github.com/swiftmeta/internal/service"
	"github.com/swiftmeta/internal/storage"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client
	Metrics     *metrics.Registry
	Store       *storage.BlobStore

	// Repositories
	AdminRepo        repository.AdminRepository
	AuditLogRepo     repository.AuditLogRepository
	AccountRepo      repository.AccountRepository
	RevokedTokenRepo repository.RevokedTokenRepository
	TicketRepo       repository.TicketRepository
	PostRepo         repository.PostRepository
	CommentRepo      repository.CommentRepository
	LikeRepo         repository.LikeRepository
	QuizAttemptRepo  repository.QuizAttemptRepository
	ContactRepo      repository.ContactRepository
	ApplicationRepo  repository.ApplicationRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	AuditService        *service.AuditService
	NotificationService *service.NotificationService
	CaptchaService      *service.CaptchaService
	AccountAuthService  *service.AccountAuthService
	TicketService       *service.TicketService
	PostService         *service.PostService
	QuizService         *service.QuizService
	ContactService      *service.ContactService
	ApplicationService  *service.ApplicationService
	UploadService       *service.UploadService
	AIService           *service.AIService
	NewsService         *service.NewsService
}

// NewContainer 初始化容器，依赖 models.DB 已连接
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if models.DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	// Redis 不可用时降级为进程内缓存
	if err := cache.InitRedis(ctx, &cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient = nil
	}

	store, err := storage.Open(ctx, storage.Config{
		BucketURL:     cfg.Storage.BucketURL,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("open object storage: %w", err)
	}

	c := &Container{
		Config:      cfg,
		DB:          models.DB,
		QueueClient: queueClient,
		Metrics:     metrics.NewRegistry(),
		Store:       store,
	}

	c.initRepositories()
	if err := c.initServices(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories() {
	db := c.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.AuditLogRepo = repository.NewAuditLogRepository(db)
	c.AccountRepo = repository.NewAccountRepository(db)
	c.RevokedTokenRepo = repository.NewRevokedTokenRepository(db)
	c.TicketRepo = repository.NewTicketRepository(db)
	c.PostRepo = repository.NewPostRepository(db)
	c.CommentRepo = repository.NewCommentRepository(db)
	c.LikeRepo = repository.NewLikeRepository(db)
	c.QuizAttemptRepo = repository.NewQuizAttemptRepository(db)
	c.ContactRepo = repository.NewContactRepository(db)
	c.ApplicationRepo = repository.NewApplicationRepository(db)
}

func (c *Container) initServices() error {
	cfg := c.Config

	authzService, err := authz.NewService(c.DB)
	if err != nil {
		return fmt.Errorf("init authz: %w", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		return fmt.Errorf("bootstrap builtin roles: %w", err)
	}
	c.AuthzService = authzService

	sender, err := service.BuildNotificationSender(cfg.Notification)
	if err != nil {
		return fmt.Errorf("init notification sender: %w", err)
	}
	c.NotificationService = service.NewNotificationService(cfg.Notification, sender, service.NewNotificationQueue(c.QueueClient), c.Metrics)

	completer, err := ai.New(ai.Config{
		Provider:   cfg.AI.Provider,
		APIKey:     cfg.AI.APIKey,
		Model:      cfg.AI.Model,
		BaseURL:    cfg.AI.BaseURL,
		Timeout:    time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.AI.MaxRetries,
	})
	if err != nil {
		logger.Warnw("provider_init_ai_failed", "provider", cfg.AI.Provider, "error", err)
		completer = ai.Disabled{}
	}

	questions, err := service.LoadQuizAnswerKey(cfg.Quiz)
	if err != nil {
		logger.Warnw("provider_load_quiz_key_failed", "error", err)
	}

	c.AuthService = service.NewAuthService(cfg, c.AdminRepo)
	c.AuditService = service.NewAuditService(c.AuditLogRepo)
	c.CaptchaService = service.NewCaptchaService(cfg.Captcha)
	c.AccountAuthService = service.NewAccountAuthService(cfg, c.AccountRepo, c.RevokedTokenRepo, c.NotificationService, c.CaptchaService)
	c.TicketService = service.NewTicketService(cfg.Ticket, c.TicketRepo, c.NotificationService, c.Metrics)
	c.PostService = service.NewPostService(c.PostRepo, c.CommentRepo, c.LikeRepo, c.AccountRepo, service.NewContentRenderer())
	c.QuizService = service.NewQuizService(cfg.Quiz, questions, c.QuizAttemptRepo, c.NotificationService)
	c.ContactService = service.NewContactService(cfg.Ticket, c.ContactRepo, c.NotificationService)
	c.ApplicationService = service.NewApplicationService(cfg.Upload, c.ApplicationRepo, c.Store, c.NotificationService)
	c.UploadService = service.NewUploadService(cfg.Upload, c.Store)
	c.AIService = service.NewAIService(completer, cfg.AI.SystemPrompt, c.Metrics)
	c.NewsService = service.NewNewsService(cfg.News)
	return nil
}

// Close 释放外部资源
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			logger.Warnw("provider_close_storage_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
	return nil
}
