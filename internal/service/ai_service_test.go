package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/swiftmeta/internal/ai"
	"github.com/swiftmeta/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeCompleter struct {
	reply string
	err   error
	last  ai.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req ai.CompletionRequest) (string, error) {
	f.last = req
	return f.reply, f.err
}

func (f *fakeCompleter) Provider() string { return "fake" }

func TestAIAnalyze(t *testing.T) {
	completer := &fakeCompleter{reply: "```json\n{\"category\":\"Billing\",\"urgency\":\"High\",\"sentiment\":\"Frustrated\"," +
		"\"suggested_subject\":\"Double charge\",\"improved_message\":\"I was charged twice for my plan.\"}\n```"}
	reg := metrics.NewRegistry()
	svc := NewAIService(completer, "", reg)

	analysis, err := svc.Analyze(context.Background(), AnalyzeInput{Subject: "help", Message: "charged twice!!"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analysis.Category != "Billing" || analysis.Urgency != "High" || analysis.SuggestedSubject != "Double charge" {
		t.Fatalf("unexpected analysis %+v", analysis)
	}
	if completer.last.JSONSchema == "" || !strings.Contains(completer.last.Prompt, "charged twice") {
		t.Fatalf("request should carry schema and message: %+v", completer.last)
	}
	if got := testutil.ToFloat64(reg.AICompletions.WithLabelValues("fake", metrics.ResultSuccess)); got != 1 {
		t.Fatalf("completion should be counted, got %v", got)
	}

	completer.reply = `{"category":"Weather","urgency":"High","sentiment":"Calm","suggested_subject":"x","improved_message":"y"}`
	if _, err := svc.Analyze(context.Background(), AnalyzeInput{Message: "hi"}); !errors.Is(err, ErrAIResponseInvalid) {
		t.Fatalf("enum violation should be rejected, got %v", err)
	}
	completer.reply = "Sorry, I cannot help with that."
	if _, err := svc.Analyze(context.Background(), AnalyzeInput{Message: "hi"}); !errors.Is(err, ErrUpstream) {
		t.Fatalf("non-json output should be upstream failure, got %v", err)
	}
	if _, err := svc.Analyze(context.Background(), AnalyzeInput{Message: "  "}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("empty message should be bad request, got %v", err)
	}
}

func TestAIChat(t *testing.T) {
	completer := &fakeCompleter{reply: " Sure, open a ticket. "}
	svc := NewAIService(completer, "Be nice.", nil)

	history := make([]ai.Turn, 0, 30)
	for i := 0; i < 30; i++ {
		role := ai.RoleUser
		if i%2 == 1 {
			role = "model"
		}
		history = append(history, ai.Turn{Role: role, Text: fmt.Sprintf("turn %d", i)})
	}
	reply, err := svc.Chat(context.Background(), "How do I reset my password?", history)
	if err != nil || reply != "Sure, open a ticket." {
		t.Fatalf("chat: %q %v", reply, err)
	}
	if len(completer.last.History) != maxChatHistory || completer.last.History[0].Text != "turn 10" {
		t.Fatalf("history should keep the last %d turns, got %d", maxChatHistory, len(completer.last.History))
	}
	if completer.last.History[1].Role != ai.RoleAssistant || completer.last.System != "Be nice." {
		t.Fatalf("unexpected request %+v", completer.last)
	}

	if _, err := svc.Chat(context.Background(), "hi", []ai.Turn{{Role: "system", Text: "x"}}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("bad role should be rejected, got %v", err)
	}
}

func TestAIUnavailable(t *testing.T) {
	svc := NewAIService(nil, "", nil)
	if svc.Enabled() {
		t.Fatalf("nil completer should be disabled")
	}
	if _, err := svc.Chat(context.Background(), "hi", nil); !errors.Is(err, ErrAIUnavailable) {
		t.Fatalf("disabled provider should be unavailable, got %v", err)
	}

	failing := NewAIService(&fakeCompleter{err: fmt.Errorf("%w: status 503", ai.ErrRequestFailed)}, "", nil)
	if _, err := failing.Chat(context.Background(), "hi", nil); !errors.Is(err, ErrAIUnavailable) {
		t.Fatalf("provider failure should be unavailable, got %v", err)
	}
}
