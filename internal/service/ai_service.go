package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/swiftmeta/internal/ai"
	"github.com/swiftmeta/internal/constants"
	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/metrics"
)

const (
	maxChatHistory  = 20
	maxChatTurnText = 4000

	defaultAssistantPrompt = "You are the SwiftMeta support assistant. Answer briefly and politely. " +
		"If the user needs account-specific help, suggest opening a support ticket."

	triageInstruction = "You triage customer support messages. Classify the message and rewrite it so a support " +
		"agent can act on it quickly. Respond with a single JSON object only."
)

// TicketAnalysis AI 工单分析结果
type TicketAnalysis struct {
	Category         string `json:"category"`
	Urgency          string `json:"urgency"`
	Sentiment        string `json:"sentiment"`
	SuggestedSubject string `json:"suggested_subject"`
	ImprovedMessage  string `json:"improved_message"`
}

// AnalyzeInput 工单分析参数
type AnalyzeInput struct {
	Subject string
	Message string
}

// AIService 工单分析与聊天助手
type AIService struct {
	completer    ai.TextCompleter
	systemPrompt string
	schema       string
	metrics      *metrics.Registry
}

// NewAIService 创建 AI 服务，completer 为空时视为未启用
func NewAIService(completer ai.TextCompleter, systemPrompt string, reg *metrics.Registry) *AIService {
	if completer == nil {
		completer = ai.Disabled{}
	}
	prompt := strings.TrimSpace(systemPrompt)
	if prompt == "" {
		prompt = defaultAssistantPrompt
	}
	return &AIService{
		completer:    completer,
		systemPrompt: prompt,
		schema:       ticketAnalysisSchema(),
		metrics:      reg,
	}
}

// Enabled 是否配置了可用的服务商
func (s *AIService) Enabled() bool {
	return s.completer.Provider() != constants.AIProviderNone
}

// Analyze 对工单内容给出分类、紧急度与改写建议
func (s *AIService) Analyze(ctx context.Context, input AnalyzeInput) (*TicketAnalysis, error) {
	message := strings.TrimSpace(input.Message)
	if err := requireLength("message", message, 1, 5000); err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(input.Subject)
	if err := requireLength("subject", subject, 0, 200); err != nil {
		return nil, err
	}

	var prompt strings.Builder
	if subject != "" {
		fmt.Fprintf(&prompt, "Subject: %s\n", subject)
	}
	fmt.Fprintf(&prompt, "Message:\n%s", message)

	text, err := s.complete(ctx, ai.CompletionRequest{
		System:     triageInstruction,
		Prompt:     prompt.String(),
		JSONSchema: s.schema,
	})
	if err != nil {
		return nil, err
	}

	var analysis TicketAnalysis
	if err := ai.DecodeValidated(text, s.schema, &analysis); err != nil {
		logger.Warnw("ai_analysis_invalid", "provider", s.completer.Provider(), "error", err)
		return nil, ErrAIResponseInvalid
	}
	return &analysis, nil
}

// Chat 带历史上下文的助手对话，只保留最近的若干轮
func (s *AIService) Chat(ctx context.Context, message string, history []ai.Turn) (string, error) {
	message = strings.TrimSpace(message)
	if err := requireLength("message", message, 1, maxChatTurnText); err != nil {
		return "", err
	}

	turns := make([]ai.Turn, 0, len(history))
	for _, turn := range history {
		role := strings.ToLower(strings.TrimSpace(turn.Role))
		if role == "model" {
			role = ai.RoleAssistant
		}
		if role != ai.RoleUser && role != ai.RoleAssistant {
			return "", invalidField("history", "role must be user or assistant")
		}
		text := truncateRunes(strings.TrimSpace(turn.Text), maxChatTurnText)
		if text == "" {
			continue
		}
		turns = append(turns, ai.Turn{Role: role, Text: text})
	}
	if len(turns) > maxChatHistory {
		turns = turns[len(turns)-maxChatHistory:]
	}

	reply, err := s.complete(ctx, ai.CompletionRequest{
		System:  s.systemPrompt,
		Prompt:  message,
		History: turns,
	})
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrAIResponseInvalid
	}
	return reply, nil
}

func (s *AIService) complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	text, err := s.completer.Complete(ctx, req)
	s.metrics.ObserveCompletion(s.completer.Provider(), err)
	if err != nil {
		if errors.Is(err, ai.ErrDisabled) {
			return "", ErrAIUnavailable
		}
		logger.Warnw("ai_completion_failed", "provider", s.completer.Provider(), "error", err)
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	return text, nil
}

func ticketAnalysisSchema() string {
	str := func(extra map[string]interface{}) map[string]interface{} {
		prop := map[string]interface{}{"type": "string"}
		for k, v := range extra {
			prop[k] = v
		}
		return prop
	}
	schema := map[string]interface{}{
		"type":     "object",
		"required": []string{"category", "urgency", "sentiment", "suggested_subject", "improved_message"},
		"properties": map[string]interface{}{
			"category":          str(map[string]interface{}{"enum": constants.AITicketCategories}),
			"urgency":           str(map[string]interface{}{"enum": constants.AITicketUrgencies}),
			"sentiment":         str(map[string]interface{}{"enum": constants.AITicketSentiments}),
			"suggested_subject": str(map[string]interface{}{"minLength": 1, "maxLength": 200}),
			"improved_message":  str(map[string]interface{}{"minLength": 1}),
		},
	}
	raw, _ := json.Marshal(schema)
	return string(raw)
}
