package agents

import (
	"encoding/json"
	"time"

	"hermes/internal/adapters/ai"
	"hermes/pkg/errors"
)

// Message is a single entry in the conversation trace.
type Message struct {
	Role       ai.MessageRole `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []ai.ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Tokens     int            `json:"tokens,omitempty"`
}

// Conversation is the append-only trace of one query. The system prompt is
// not part of the trace: it is rebuilt on every reasoning round so the
// model always sees the current market session status.
type Conversation struct {
	history       []Message
	currentTokens int
}

// NewConversation creates an empty conversation trace.
func NewConversation() *Conversation {
	return &Conversation{
		history: make([]Message, 0, 16),
	}
}

// AddUserMessage appends the user's query.
func (c *Conversation) AddUserMessage(content string) {
	msg := Message{
		Role:      ai.RoleUser,
		Content:   content,
		Timestamp: time.Now(),
		Tokens:    estimateTokens(content),
	}
	c.history = append(c.history, msg)
	c.currentTokens += msg.Tokens
}

// AddAssistantMessage appends a model reply, with any tool calls it issued.
func (c *Conversation) AddAssistantMessage(content string, toolCalls []ai.ToolCall) {
	msg := Message{
		Role:      ai.RoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
		Timestamp: time.Now(),
		Tokens:    estimateTokens(content) + estimateToolCallTokens(toolCalls),
	}
	c.history = append(c.history, msg)
	c.currentTokens += msg.Tokens
}

// AddToolResult appends a tool execution result, JSON-encoded.
func (c *Conversation) AddToolResult(toolCallID, toolName string, result interface{}) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "marshal tool result")
	}

	content := string(payload)
	msg := Message{
		Role:       ai.RoleTool,
		Content:    content,
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Timestamp:  time.Now(),
		Tokens:     estimateTokens(content),
	}
	c.history = append(c.history, msg)
	c.currentTokens += msg.Tokens
	return nil
}

// History returns the full trace.
func (c *Conversation) History() []Message {
	return c.history
}

// Messages converts the trace to provider messages, prepending the given
// system prompt.
func (c *Conversation) Messages(systemPrompt string) []ai.Message {
	msgs := make([]ai.Message, 0, len(c.history)+1)
	if systemPrompt != "" {
		msgs = append(msgs, ai.Message{Role: ai.RoleSystem, Content: systemPrompt})
	}
	for _, m := range c.history {
		msgs = append(msgs, ai.Message{
			Role:       m.Role,
			Content:    m.Content,
			ToolCalls:  m.ToolCalls,
			ToolCallID: m.ToolCallID,
		})
	}
	return msgs
}

// LastMessage returns the most recent message, or nil when empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.history) == 0 {
		return nil
	}
	return &c.history[len(c.history)-1]
}

// TokenCount returns the current estimated token count of the trace.
func (c *Conversation) TokenCount() int {
	return c.currentTokens
}

// IsComplete reports whether the trace ended with an assistant message that
// issued no tool calls.
func (c *Conversation) IsComplete() bool {
	if len(c.history) == 0 {
		return false
	}
	last := c.history[len(c.history)-1]
	return last.Role == ai.RoleAssistant && len(last.ToolCalls) == 0
}

// estimateTokens gives a rough token estimate, ~4 characters per token.
func estimateTokens(text string) int {
	return len(text) / 4
}

func estimateToolCallTokens(toolCalls []ai.ToolCall) int {
	total := 0
	for _, tc := range toolCalls {
		total += (len(tc.Function.Name) + len(tc.Function.Arguments)) / 4
	}
	return total
}
