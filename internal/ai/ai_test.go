package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const triageSchema = `{
  "type": "object",
  "required": ["category", "urgency"],
  "properties": {
    "category": {"type": "string", "enum": ["Bug", "Billing"]},
    "urgency": {"type": "string", "enum": ["Low", "High"]}
  }
}`

func TestNewDisabledWhenProviderNone(t *testing.T) {
	completer, err := New(Config{Provider: " None "})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := completer.Complete(context.Background(), CompletionRequest{Prompt: "x"}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("want ErrDisabled, got %v", err)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{Provider: "gemini", Model: "m"}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("missing key should fail, got %v", err)
	}
	if _, err := New(Config{Provider: "claude", APIKey: "k", Model: "m"}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("unknown provider should fail, got %v", err)
	}
}

func TestGeminiComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1beta/models/gemini-test:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "secret" {
			t.Errorf("missing api key")
		}
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["systemInstruction"]; !ok {
			t.Errorf("system instruction missing")
		}
		contents, _ := body["contents"].([]interface{})
		if len(contents) != 3 {
			t.Errorf("want history + prompt = 3 contents, got %d", len(contents))
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello "},{"text":"there"}]}}]}`))
	}))
	defer server.Close()

	completer, err := New(Config{Provider: "gemini", APIKey: "secret", Model: "gemini-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := completer.Complete(context.Background(), CompletionRequest{
		System: "be brief",
		Prompt: "hi",
		History: []Turn{
			{Role: RoleUser, Text: "earlier"},
			{Role: RoleAssistant, Text: "reply"},
		},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "hello there" {
		t.Fatalf("unexpected output %q", out)
	}
	if completer.Provider() != "gemini" {
		t.Fatalf("unexpected provider %s", completer.Provider())
	}
}

func TestOpenAICompleteRetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"}}]}`))
	}))
	defer server.Close()

	completer, err := New(Config{Provider: "openai", APIKey: "sk-test", Model: "gpt-test", BaseURL: server.URL, MaxRetries: 2})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := completer.Complete(context.Background(), CompletionRequest{Prompt: "hi", JSONSchema: "{}"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != `{"ok":true}` {
		t.Fatalf("unexpected output %q", out)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("want 2 calls, got %d", calls)
	}
}

func TestRetryGivesUpAfterBudget(t *testing.T) {
	var calls int32
	stub := stubCompleter(func(ctx context.Context, req CompletionRequest) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", ErrRequestFailed
	})
	_, err := WithRetry(stub, time.Second, 2).Complete(context.Background(), CompletionRequest{Prompt: "x"})
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("want ErrRequestFailed, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("want 1 call + 2 retries, got %d", calls)
	}
}

func TestExtractJSONStripsFences(t *testing.T) {
	out, err := ExtractJSON("```json\n{\"a\": 1}\n```")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out != `{"a": 1}` {
		t.Fatalf("unexpected %q", out)
	}
	if _, err := ExtractJSON("sorry, I cannot help"); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("want ErrResponseInvalid, got %v", err)
	}
}

func TestDecodeValidatedRejectsMalformedOutput(t *testing.T) {
	var dest struct {
		Category string `json:"category"`
		Urgency  string `json:"urgency"`
	}
	if err := DecodeValidated(`{"category":"Bug","urgency":"High"}`, triageSchema, &dest); err != nil {
		t.Fatalf("valid output rejected: %v", err)
	}
	if dest.Category != "Bug" || dest.Urgency != "High" {
		t.Fatalf("unexpected decode %+v", dest)
	}
	if err := DecodeValidated(`{"category":"Weather","urgency":"High"}`, triageSchema, &dest); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("enum violation should fail, got %v", err)
	}
	if err := DecodeValidated(`{"category":"Bug"`, triageSchema, &dest); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("truncated json should fail, got %v", err)
	}
}

type stubCompleter func(ctx context.Context, req CompletionRequest) (string, error)

func (f stubCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}

func (f stubCompleter) Provider() string { return "stub" }
