package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/KaramelBytes/sweepq/internal/utils"
)

const systemPrompt = `You are a helpful assistant for analyzing circuit simulation sweep data.

The database contains parameter sweep series parsed from wide-format CSV exports.
Each series has X and Y data points where the error is calculated as |Y - X|.

You can help users:
- List and explore available parameter series
- Query specific data points
- Calculate error statistics
- Find optimal parameters with minimum error
- Filter series by error thresholds

Always provide clear, concise answers and use the appropriate tools to answer questions.`

// AssistantOptions tune one conversation.
type AssistantOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64

	// HistoryBudget caps the approximate token size of the rolling
	// history; zero disables trimming.
	HistoryBudget int
}

// Assistant drives a tool-calling conversation over a loaded sweep index.
// Each user turn makes at most two model calls: one with the tool
// declarations to let the model pick tools, and, when tools ran, a second
// without them so the model narrates the results.
type Assistant struct {
	client   *Client
	tools    *Toolset
	opts     AssistantOptions
	messages []Message

	// OnToolCall, when set, observes each tool invocation before it runs.
	OnToolCall func(name, arguments string)
}

func NewAssistant(client *Client, tools *Toolset, opts AssistantOptions) *Assistant {
	if opts.Model == "" {
		opts.Model = "gpt-4o"
	}
	return &Assistant{
		client:   client,
		tools:    tools,
		opts:     opts,
		messages: []Message{{Role: "system", Content: systemPrompt}},
	}
}

// Chat sends one user message and returns the assistant's reply.
func (a *Assistant) Chat(ctx context.Context, userMessage string) (string, error) {
	return a.chat(ctx, userMessage, nil)
}

// ChatStream behaves like Chat but streams the reply through onDelta. Only
// the narration phase streams; tool selection needs the full response before
// any tool can run, so a turn answered without tools arrives as one chunk.
func (a *Assistant) ChatStream(ctx context.Context, userMessage string, onDelta func(string)) (string, error) {
	return a.chat(ctx, userMessage, onDelta)
}

func (a *Assistant) chat(ctx context.Context, userMessage string, onDelta func(string)) (string, error) {
	a.messages = append(a.messages, Message{Role: "user", Content: userMessage})
	a.trimHistory()

	resp, err := a.client.Generate(ctx, GenerateRequest{
		Model:       a.opts.Model,
		Messages:    a.messages,
		MaxTokens:   a.opts.MaxTokens,
		Temperature: a.opts.Temperature,
		Tools:       a.tools.Definitions(),
		ToolChoice:  "auto",
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from model")
	}
	msg := resp.Choices[0].Message

	if len(msg.ToolCalls) == 0 {
		a.messages = append(a.messages, Message{Role: "assistant", Content: msg.Content})
		if onDelta != nil {
			onDelta(msg.Content)
		}
		return msg.Content, nil
	}

	a.messages = append(a.messages, msg)
	for _, call := range msg.ToolCalls {
		if a.OnToolCall != nil {
			a.OnToolCall(call.Function.Name, call.Function.Arguments)
		}
		result := a.tools.Execute(call.Function.Name, json.RawMessage(call.Function.Arguments))
		a.messages = append(a.messages, Message{
			Role:       "tool",
			ToolCallID: call.ID,
			Content:    result,
		})
	}

	followup := GenerateRequest{
		Model:       a.opts.Model,
		Messages:    a.messages,
		MaxTokens:   a.opts.MaxTokens,
		Temperature: a.opts.Temperature,
	}
	var reply string
	if onDelta != nil {
		var b strings.Builder
		err = a.client.GenerateStream(ctx, followup, func(d string) {
			b.WriteString(d)
			onDelta(d)
		})
		if err != nil {
			return "", err
		}
		reply = b.String()
	} else {
		resp, err = a.client.Generate(ctx, followup)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("empty response from model")
		}
		reply = resp.Choices[0].Message.Content
	}
	a.messages = append(a.messages, Message{Role: "assistant", Content: reply})
	return reply, nil
}

// Reset clears the conversation, keeping only the system message.
func (a *Assistant) Reset() {
	a.messages = a.messages[:1]
}

// History returns a copy of the conversation so far.
func (a *Assistant) History() []Message {
	out := make([]Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// HistoryTokens estimates the token size of the rolling history.
func (a *Assistant) HistoryTokens() int {
	total := 0
	for _, m := range a.messages {
		total += utils.CountTokens(m.Content)
		for _, tc := range m.ToolCalls {
			total += utils.CountTokens(tc.Function.Arguments)
		}
	}
	return total
}

// trimHistory drops the oldest turns once the history exceeds the budget.
// The system message always stays, and tool results leave together with the
// user turn that caused them so the wire format stays valid.
func (a *Assistant) trimHistory() {
	budget := a.opts.HistoryBudget
	if budget <= 0 {
		return
	}
	for len(a.messages) > 2 && a.HistoryTokens() > budget {
		end := 2
		for end < len(a.messages) && a.messages[end].Role != "user" {
			end++
		}
		a.messages = append(a.messages[:1], a.messages[end:]...)
	}
}
