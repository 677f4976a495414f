package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashutoshrp06/taskmate/internal/config"
	"github.com/ashutoshrp06/taskmate/internal/conversation"
	"github.com/ashutoshrp06/taskmate/internal/tools"
	"github.com/ashutoshrp06/taskmate/internal/types"
)

// ─── Client ───────────────────────────────────────────────────────────────────

func TestClientGenerate(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("Authorization = %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"content":"hello there"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Endpoint: srv.URL + "/v1/", Model: "m1", APIKey: "secret", MaxTokens: 64})
	out, err := c.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "hello there" {
		t.Errorf("out = %q", out)
	}
	if got.Model != "m1" || got.MaxTokens != 64 || len(got.Messages) != 1 || got.Messages[0].Content != "hi" {
		t.Errorf("request = %+v", got)
	}
}

func TestClientGenerate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, "boom", "status 500"},
		{"no choices", http.StatusOK, `{"choices":[]}`, ErrEmptyResponse.Error()},
		{"bad json", http.StatusOK, `{`, "decode failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(ClientConfig{Endpoint: srv.URL}).Generate(context.Background(), "x")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

// ─── OllamaClient ─────────────────────────────────────────────────────────────

func TestOllamaGenerateAndPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/generate":
			var req GenerateRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Stream {
				t.Error("stream should be false")
			}
			json.NewEncoder(w).Encode(GenerateResponse{Model: req.Model, Response: "echo: " + req.Prompt, Done: true})
		case "/api/tags":
			w.Write([]byte(`{"models":[{"name":"qwen2.5:7b"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewOllamaClient(OllamaConfig{BaseURL: srv.URL, Model: "qwen2.5:7b"})

	out, err := c.Generate(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "echo: ping" {
		t.Errorf("out = %q", out)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

// ─── Retrying ─────────────────────────────────────────────────────────────────

func TestRetrying(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		retries   int
		wantCalls int
		wantErr   bool
	}{
		{"first try", 0, 2, 1, false},
		{"recovers", 2, 2, 3, false},
		{"gives up", 5, 2, 3, true},
		{"no retries", 1, 0, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			gen := GeneratorFunc(func(context.Context, string) (string, error) {
				calls++
				if calls <= tt.failures {
					return "", errors.New("rate limited")
				}
				return "ok", nil
			})

			out, err := NewRetrying(gen, tt.retries, time.Millisecond, nil).Generate(context.Background(), "p")
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "rate limited") {
					t.Errorf("err = %v, want wrapped cause", err)
				}
				return
			}
			if err != nil || out != "ok" {
				t.Errorf("Generate = %q, %v", out, err)
			}
		})
	}
}

func TestRetrying_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	gen := GeneratorFunc(func(context.Context, string) (string, error) {
		calls++
		cancel()
		return "", errors.New("down")
	})

	if _, err := NewRetrying(gen, 3, time.Hour, nil).Generate(ctx, "p"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetrying_PermanentStatusNotRetried(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		wantCalls int
	}{
		{"unauthorized", http.StatusUnauthorized, 1},
		{"not found", http.StatusNotFound, 1},
		{"bad request", http.StatusBadRequest, 1},
		{"rate limited", http.StatusTooManyRequests, 3},
		{"timeout", http.StatusRequestTimeout, 3},
		{"server error", http.StatusBadGateway, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.code)
				w.Write([]byte("nope"))
			}))
			defer srv.Close()

			c := NewClient(ClientConfig{Endpoint: srv.URL})
			_, err := NewRetrying(c, 2, time.Millisecond, nil).Generate(context.Background(), "p")
			if err == nil {
				t.Fatal("expected error")
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			var se *StatusError
			if !errors.As(err, &se) || se.Code != tt.code {
				t.Errorf("err = %v, want wrapped StatusError %d", err, tt.code)
			}
		})
	}
}

// ─── NewFromConfig ────────────────────────────────────────────────────────────

func TestNewFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().LLM

	if _, err := NewFromConfig(cfg, nil); err != nil {
		t.Errorf("ollama: %v", err)
	}
	cfg.Provider = "openai"
	if _, err := NewFromConfig(cfg, nil); err != nil {
		t.Errorf("openai: %v", err)
	}
	cfg.Provider = "telepathy"
	if _, err := NewFromConfig(cfg, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}

// ─── PromptBuilder ────────────────────────────────────────────────────────────

func testTools() []tools.Tool {
	return []tools.Tool{&tools.Definition{
		ToolName:        "create_task",
		ToolDescription: "Create a task",
		Parameters: tools.Object(map[string]tools.Property{
			"title": {Type: tools.TypeString, Description: "Task title"},
		}, "title"),
		Run: func(context.Context, map[string]any, *conversation.Context) types.ToolResult { return types.OK(nil) },
	}}
}

func TestPromptBuilder_ToolCallMode(t *testing.T) {
	b := NewPromptBuilder(0)
	b.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }

	prompt := b.Build(PromptInput{
		Tools:      testTools(),
		Transcript: []Turn{{Role: RoleUser, Content: "buy milk"}},
	})

	for _, want := range []string{
		"- create_task: Create a task",
		"title (string, required)",
		"JSON array of tool calls",
		"USER: buy milk",
		"2026-03-02",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "Do NOT output JSON") {
		t.Error("tool-call mode must not forbid JSON")
	}
	if !strings.HasSuffix(prompt, "ASSISTANT:") {
		t.Error("prompt should end with the assistant cue")
	}
}

func TestPromptBuilder_AnswerMode(t *testing.T) {
	prompt := NewPromptBuilder(120).Build(PromptInput{
		Tools: testTools(),
		Transcript: []Turn{
			{Role: RoleUser, Content: "buy milk"},
			{Role: RoleAssistant, Content: `Called create_task {"title":"Buy milk"}`},
			{Role: RoleToolResults, Content: `create_task: {"id":"t1"}`},
		},
		HasToolResults: true,
	})

	if !strings.Contains(prompt, "Do NOT output JSON") {
		t.Error("answer mode must forbid JSON")
	}
	if !strings.Contains(prompt, "under 120 characters") {
		t.Error("answer mode must state the character budget")
	}
	if !strings.Contains(prompt, "TOOL RESULTS: create_task") {
		t.Error("transcript should include tool results block")
	}
	if strings.Contains(prompt, "JSON array of tool calls") {
		t.Error("answer mode must not ask for tool calls")
	}
}

func TestPromptBuilder_ContextHints(t *testing.T) {
	conv := conversation.New("u1", time.Now(), time.Hour)
	conv.Track(types.TrackEntities{
		Tasks: []types.TaskReference{
			{ID: "t1", Title: "Call Sam", Status: "open"},
			{ID: "t2", Title: "Pay rent"},
		},
		People:        []types.PersonReference{{ID: "p1", Name: "Sam"}},
		LastCreatedID: "t2",
	})
	conv.StartFlow(conversation.FlowReview, nil)

	prompt := NewPromptBuilder(0).Build(PromptInput{Context: conv})

	for _, want := range []string{
		"1. Call Sam (id: t1) [open]",
		"2. Pay rent (id: t2)",
		"- Sam (id: p1)",
		"Last created id: t2",
		"Active flow: review",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing hint %q", want)
		}
	}
}

func TestPromptBuilder_NoHintsForEmptyContext(t *testing.T) {
	conv := conversation.New("u1", time.Now(), time.Hour)
	prompt := NewPromptBuilder(0).Build(PromptInput{Context: conv})
	if strings.Contains(prompt, "What the user was just looking at") {
		t.Error("empty context should produce no hints section")
	}
}
