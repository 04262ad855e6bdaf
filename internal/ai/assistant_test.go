package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

func toolCallResponse(name, args string) GenerateResponse {
	return GenerateResponse{Choices: []Choice{{Message: Message{
		Role: "assistant",
		ToolCalls: []ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: FunctionCall{Name: name, Arguments: args},
		}},
	}}}}
}

// captureServer decodes every request body and answers via respond(n) where
// n is the 1-based request number.
func captureServer(t *testing.T, respond func(w http.ResponseWriter, n int, body map[string]any)) (*ipv4Server, func() []map[string]any) {
	t.Helper()
	var mu sync.Mutex
	var bodies []map[string]any
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		mu.Lock()
		bodies = append(bodies, body)
		n := len(bodies)
		mu.Unlock()
		respond(w, n, body)
	}))
	return srv, func() []map[string]any {
		mu.Lock()
		defer mu.Unlock()
		out := make([]map[string]any, len(bodies))
		copy(out, bodies)
		return out
	}
}

func TestChatExecutesToolCalls(t *testing.T) {
	srv, requests := captureServer(t, func(w http.ResponseWriter, n int, _ map[string]any) {
		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			_ = json.NewEncoder(w).Encode(toolCallResponse("list_all_series", `{}`))
			return
		}
		_ = json.NewEncoder(w).Encode(GenerateResponse{Choices: []Choice{{
			Message: Message{Role: "assistant", Content: "two series available"},
		}}})
	})
	defer srv.Close()

	client := NewClientWithBaseURL("test", 5*time.Second, 1, 0, 0, srv.URL)
	asst := NewAssistant(client, toolsetFixture(t), AssistantOptions{Model: "test-model"})
	var calls []string
	asst.OnToolCall = func(name, args string) { calls = append(calls, name+" "+args) }

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reply, err := asst.Chat(ctx, "what series are there?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "two series available" {
		t.Fatalf("reply = %q", reply)
	}
	if len(calls) != 1 || calls[0] != "list_all_series {}" {
		t.Fatalf("observed calls = %v", calls)
	}

	bodies := requests()
	if len(bodies) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(bodies))
	}
	tools, ok := bodies[0]["tools"].([]any)
	if !ok || len(tools) != 6 {
		t.Fatalf("first request tools = %v", bodies[0]["tools"])
	}
	if bodies[0]["tool_choice"] != "auto" {
		t.Fatalf("tool_choice = %v", bodies[0]["tool_choice"])
	}
	if _, ok := bodies[1]["tools"]; ok {
		t.Fatalf("follow-up request must not carry tools")
	}
	msgs, _ := bodies[1]["messages"].([]any)
	var toolMsg map[string]any
	for _, m := range msgs {
		mm, _ := m.(map[string]any)
		if mm["role"] == "tool" {
			toolMsg = mm
		}
	}
	if toolMsg == nil {
		t.Fatalf("no tool message in follow-up: %v", msgs)
	}
	if toolMsg["tool_call_id"] != "call_1" {
		t.Fatalf("tool_call_id = %v", toolMsg["tool_call_id"])
	}
	if content, _ := toolMsg["content"].(string); !strings.HasPrefix(content, "0: W=1e-06") {
		t.Fatalf("tool result content = %q", content)
	}

	hist := asst.History()
	if len(hist) != 5 {
		t.Fatalf("history length = %d", len(hist))
	}
	if hist[len(hist)-1].Content != "two series available" {
		t.Fatalf("last history message = %+v", hist[len(hist)-1])
	}
}

func TestChatWithoutTools(t *testing.T) {
	srv, requests := captureServer(t, func(w http.ResponseWriter, _ int, _ map[string]any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GenerateResponse{Choices: []Choice{{
			Message: Message{Role: "assistant", Content: "hello"},
		}}})
	})
	defer srv.Close()

	client := NewClientWithBaseURL("test", 5*time.Second, 1, 0, 0, srv.URL)
	asst := NewAssistant(client, toolsetFixture(t), AssistantOptions{Model: "test-model"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reply, err := asst.Chat(ctx, "hi")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "hello" {
		t.Fatalf("reply = %q", reply)
	}
	if n := len(requests()); n != 1 {
		t.Fatalf("expected a single request, got %d", n)
	}
	if len(asst.History()) != 3 {
		t.Fatalf("history = %+v", asst.History())
	}

	asst.Reset()
	hist := asst.History()
	if len(hist) != 1 || hist[0].Role != "system" {
		t.Fatalf("reset history = %+v", hist)
	}
}

func TestChatStreamStreamsNarration(t *testing.T) {
	srv, _ := captureServer(t, func(w http.ResponseWriter, n int, body map[string]any) {
		if stream, _ := body["stream"].(bool); stream {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hello \"}}]}\n\n")
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"world\"}}]}\n\n")
			fmt.Fprintf(w, "data: [DONE]\n\n")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toolCallResponse("show_series", `{"index": 0}`))
	})
	defer srv.Close()

	client := NewClientWithBaseURL("test", 5*time.Second, 1, 0, 0, srv.URL)
	asst := NewAssistant(client, toolsetFixture(t), AssistantOptions{Model: "test-model"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var streamed string
	reply, err := asst.ChatStream(ctx, "show me series 0", func(d string) { streamed += d })
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if reply != "hello world" || streamed != "hello world" {
		t.Fatalf("reply = %q, streamed = %q", reply, streamed)
	}
	hist := asst.History()
	if hist[len(hist)-1].Content != "hello world" {
		t.Fatalf("last history message = %+v", hist[len(hist)-1])
	}
}

func TestTrimHistoryDropsWholeTurns(t *testing.T) {
	asst := NewAssistant(nil, nil, AssistantOptions{HistoryBudget: 30})
	asst.messages = []Message{
		{Role: "system", Content: "s"},
		{Role: "user", Content: strings.Repeat("a", 400)},
		{Role: "assistant", ToolCalls: []ToolCall{{
			ID: "c1", Type: "function",
			Function: FunctionCall{Name: "x", Arguments: strings.Repeat("b", 100)},
		}}},
		{Role: "tool", ToolCallID: "c1", Content: strings.Repeat("c", 100)},
		{Role: "assistant", Content: "done"},
		{Role: "user", Content: "short"},
	}
	asst.trimHistory()

	if len(asst.messages) != 2 {
		t.Fatalf("trimmed history = %+v", asst.messages)
	}
	if asst.messages[0].Role != "system" || asst.messages[1].Content != "short" {
		t.Fatalf("trim kept wrong messages: %+v", asst.messages)
	}
}

func TestTrimHistoryKeepsCurrentTurn(t *testing.T) {
	asst := NewAssistant(nil, nil, AssistantOptions{HistoryBudget: 5})
	asst.messages = []Message{
		{Role: "system", Content: "s"},
		{Role: "user", Content: strings.Repeat("a", 400)},
	}
	asst.trimHistory()
	// The current question is never dropped, even over budget.
	if len(asst.messages) != 2 {
		t.Fatalf("history = %+v", asst.messages)
	}
}

func TestNewAssistantDefaults(t *testing.T) {
	asst := NewAssistant(nil, nil, AssistantOptions{})
	if asst.opts.Model != "gpt-4o" {
		t.Fatalf("default model = %q", asst.opts.Model)
	}
	hist := asst.History()
	if len(hist) != 1 || hist[0].Role != "system" {
		t.Fatalf("initial history = %+v", hist)
	}
	if !strings.Contains(hist[0].Content, "|Y - X|") {
		t.Fatalf("system prompt changed: %q", hist[0].Content)
	}
}
