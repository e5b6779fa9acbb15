package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/models"
	"github.com/swiftmeta/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"gorm.io/datatypes"
)

// QuizQuestion 题目答案
type QuizQuestion struct {
	ID      string `mapstructure:"id" json:"id"`
	Type    string `mapstructure:"type" json:"type"`
	Correct string `mapstructure:"correct" json:"correct"`
}

// QuizResult 提交结果
type QuizResult struct {
	AttemptID          uint       `json:"attempt_id"`
	Score              int        `json:"score"`
	Total              int        `json:"total"`
	Percentage         int        `json:"percentage"`
	Passed             bool       `json:"passed"`
	NextAllowedAttempt *time.Time `json:"next_allowed_attempt"`
}

// RetakeLockedError 冷却期内重复提交
type RetakeLockedError struct {
	NextAllowedAttempt time.Time
}

func (e *RetakeLockedError) Error() string {
	return fmt.Sprintf("retake locked until %s", e.NextAllowedAttempt.UTC().Format(time.RFC3339))
}

// Is 归类为 ErrRetakeLocked
func (e *RetakeLockedError) Is(target error) bool {
	return target == ErrRetakeLocked || target == ErrForbidden
}

// LoadQuizAnswerKey 读取答案：优先 quiz.questions，否则从 answer_key_file 读取
func LoadQuizAnswerKey(cfg config.QuizConfig) ([]QuizQuestion, error) {
	var questions []QuizQuestion
	if len(cfg.Questions) > 0 {
		for _, q := range cfg.Questions {
			questions = append(questions, QuizQuestion{ID: q.ID, Type: q.Type, Correct: q.Correct})
		}
	} else if path := strings.TrimSpace(cfg.AnswerKeyFile); path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read quiz answer key: %w", err)
		}
		if err := v.UnmarshalKey("questions", &questions); err != nil {
			return nil, fmt.Errorf("decode quiz answer key: %w", err)
		}
	}
	if len(questions) == 0 {
		return nil, ErrQuizKeyEmpty
	}
	seen := make(map[string]struct{}, len(questions))
	for i := range questions {
		q := &questions[i]
		q.ID = strings.TrimSpace(q.ID)
		q.Type = strings.ToLower(strings.TrimSpace(q.Type))
		if q.ID == "" {
			return nil, fmt.Errorf("quiz question %d: id is required", i)
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("quiz question %s: duplicate id", q.ID)
		}
		seen[q.ID] = struct{}{}
		if q.Type != constants.QuizQuestionMCQ && q.Type != constants.QuizQuestionOutput {
			return nil, fmt.Errorf("quiz question %s: unknown type %q", q.ID, q.Type)
		}
	}
	return questions, nil
}

// QuizService 测验评分与冷却
type QuizService struct {
	cfg         config.QuizConfig
	questions   []QuizQuestion
	attemptRepo repository.QuizAttemptRepository
	notifier    *NotificationService
	now         func() time.Time
}

// NewQuizService 创建测验服务
func NewQuizService(cfg config.QuizConfig, questions []QuizQuestion, attemptRepo repository.QuizAttemptRepository, notifier *NotificationService) *QuizService {
	if cfg.PassPercentage <= 0 {
		cfg.PassPercentage = 50
	}
	if cfg.CooldownDays <= 0 {
		cfg.CooldownDays = 90
	}
	return &QuizService{
		cfg:         cfg,
		questions:   questions,
		attemptRepo: attemptRepo,
		notifier:    notifier,
		now:         time.Now,
	}
}

// Submit 评分并记录；未通过时进入冷却期
func (s *QuizService) Submit(email string, answers map[string]string) (*QuizResult, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if answers == nil {
		return nil, invalidField("answers", "is required")
	}
	if len(s.questions) == 0 {
		return nil, ErrQuizKeyEmpty
	}

	now := s.now()
	latest, err := s.attemptRepo.LatestByEmail(normalized)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.NextAllowedAttempt != nil && now.Before(*latest.NextAllowedAttempt) {
		return nil, &RetakeLockedError{NextAllowedAttempt: *latest.NextAllowedAttempt}
	}

	score := gradeQuiz(s.questions, answers)
	total := len(s.questions)
	percentage := quizPercentage(score, total)
	passed := percentage >= s.cfg.PassPercentage

	attempt := &models.QuizAttempt{
		Email:       normalized,
		Answers:     datatypes.NewJSONType(answers),
		Score:       score,
		Total:       total,
		Percentage:  percentage,
		Passed:      passed,
		AttemptedAt: now,
	}
	if !passed {
		next := now.AddDate(0, 0, s.cfg.CooldownDays)
		attempt.NextAllowedAttempt = &next
	}
	if err := s.attemptRepo.Create(attempt); err != nil {
		return nil, err
	}
	logger.Infow("quiz_submitted", "attempt_id", attempt.ID, "percentage", percentage, "passed", passed)
	s.notifier.Dispatch(eventQuizResult, quizResultMessage(attempt))

	return &QuizResult{
		AttemptID:          attempt.ID,
		Score:              score,
		Total:              total,
		Percentage:         percentage,
		Passed:             passed,
		NextAllowedAttempt: attempt.NextAllowedAttempt,
	}, nil
}

// ListAttempts 管理端查询提交记录
func (s *QuizService) ListAttempts(filter repository.QuizAttemptListFilter) ([]models.QuizAttempt, int64, error) {
	filter.Page, filter.PageSize = NormalizePagination(filter.Page, filter.PageSize, 100)
	filter.Email = strings.ToLower(strings.TrimSpace(filter.Email))
	return s.attemptRepo.List(filter)
}

func gradeQuiz(questions []QuizQuestion, answers map[string]string) int {
	score := 0
	for _, q := range questions {
		answer, ok := answers[q.ID]
		if !ok || answer == "" {
			continue
		}
		switch q.Type {
		case constants.QuizQuestionMCQ:
			if answer == q.Correct {
				score++
			}
		case constants.QuizQuestionOutput:
			if strings.TrimSpace(answer) == strings.TrimSpace(q.Correct) {
				score++
			}
		}
	}
	return score
}

// quizPercentage 四舍五入（远离零）到整数
func quizPercentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(score)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(0)
	return int(pct.IntPart())
}
