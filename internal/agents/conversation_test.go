package agents

import (
	"testing"

	"hermes/internal/adapters/ai"
)

func TestConversation_Basic(t *testing.T) {
	conv := NewConversation()

	if conv.IsComplete() {
		t.Error("empty conversation should not be complete")
	}
	if conv.LastMessage() != nil {
		t.Error("empty conversation should have no last message")
	}

	conv.AddUserMessage("What are today's top gainers?")

	history := conv.History()
	if len(history) != 1 {
		t.Fatalf("expected 1 message, got %d", len(history))
	}
	if history[0].Role != ai.RoleUser {
		t.Errorf("expected role %q, got %q", ai.RoleUser, history[0].Role)
	}
	if conv.IsComplete() {
		t.Error("conversation with only a user message should not be complete")
	}
}

func TestConversation_ToolRoundTrip(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("Analyze OGDC")

	toolCalls := []ai.ToolCall{
		{
			ID:       "call_1",
			Type:     "function",
			Function: ai.FunctionCall{Name: "get_stock_analysis", Arguments: `{"symbol":"OGDC"}`},
		},
	}
	conv.AddAssistantMessage("Let me look that up", toolCalls)

	if conv.IsComplete() {
		t.Error("conversation with pending tool calls should not be complete")
	}

	err := conv.AddToolResult("call_1", "get_stock_analysis", map[string]interface{}{
		"symbol": "OGDC",
		"price_data": map[string]interface{}{
			"current_price": 120.5,
		},
	})
	if err != nil {
		t.Fatalf("AddToolResult failed: %v", err)
	}

	history := conv.History()
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}

	toolMsg := history[2]
	if toolMsg.Role != ai.RoleTool {
		t.Errorf("expected role %q, got %q", ai.RoleTool, toolMsg.Role)
	}
	if toolMsg.ToolCallID != "call_1" {
		t.Errorf("expected tool_call_id 'call_1', got %q", toolMsg.ToolCallID)
	}
	if toolMsg.ToolName != "get_stock_analysis" {
		t.Errorf("expected tool name 'get_stock_analysis', got %q", toolMsg.ToolName)
	}
}

func TestConversation_Complete(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("Analyze OGDC")
	conv.AddAssistantMessage("OGDC closed at 120.50 PKR, down 3.2%", nil)

	if !conv.IsComplete() {
		t.Error("conversation should be complete after an assistant message with no tool calls")
	}

	last := conv.LastMessage()
	if last == nil {
		t.Fatal("LastMessage returned nil")
	}
	if last.Role != ai.RoleAssistant {
		t.Errorf("expected last role %q, got %q", ai.RoleAssistant, last.Role)
	}
}

func TestConversation_Messages(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("hello")
	conv.AddAssistantMessage("hi", nil)

	msgs := conv.Messages("system text")
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages including system, got %d", len(msgs))
	}
	if msgs[0].Role != ai.RoleSystem || msgs[0].Content != "system text" {
		t.Errorf("first message should be the system prompt, got %+v", msgs[0])
	}

	// Without a system prompt only the trace is returned.
	msgs = conv.Messages("")
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages without system prompt, got %d", len(msgs))
	}
}

func TestConversation_TokenTracking(t *testing.T) {
	conv := NewConversation()

	if conv.TokenCount() != 0 {
		t.Errorf("empty conversation should have 0 tokens, got %d", conv.TokenCount())
	}

	conv.AddUserMessage("a reasonably sized user message about stocks")
	afterUser := conv.TokenCount()
	if afterUser == 0 {
		t.Error("token count should grow after a user message")
	}

	conv.AddAssistantMessage("checking", []ai.ToolCall{
		{ID: "call_1", Function: ai.FunctionCall{Name: "get_top_gainers", Arguments: `{"limit":5}`}},
	})
	if conv.TokenCount() <= afterUser {
		t.Error("token count should grow after an assistant message with tool calls")
	}
}
