package agents

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hermes/internal/adapters/ai"
	"hermes/internal/adapters/config"
	"hermes/internal/market"
	"hermes/internal/tools"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

type scriptedStep struct {
	resp *ai.ChatResponse
	err  error
}

// scriptedProvider replays a fixed sequence of chat responses and records
// the requests it received.
type scriptedProvider struct {
	steps    []scriptedStep
	requests []ai.ChatRequest
}

func (p *scriptedProvider) Chat(_ context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	p.requests = append(p.requests, req)
	if len(p.steps) == 0 {
		return nil, errors.New("scripted provider exhausted")
	}
	step := p.steps[0]
	p.steps = p.steps[1:]
	return step.resp, step.err
}

func textResponse(content string) *ai.ChatResponse {
	return &ai.ChatResponse{
		Choices: []ai.Choice{{
			Message:      ai.Message{Role: ai.RoleAssistant, Content: content},
			FinishReason: ai.FinishReasonStop,
		}},
		Usage: ai.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
	}
}

func toolCallResponse(content string, calls ...ai.ToolCall) *ai.ChatResponse {
	return &ai.ChatResponse{
		Choices: []ai.Choice{{
			Message:      ai.Message{Role: ai.RoleAssistant, Content: content, ToolCalls: calls},
			FinishReason: ai.FinishReasonToolCalls,
		}},
		Usage: ai.Usage{PromptTokens: 100, CompletionTokens: 30, TotalTokens: 130},
	}
}

func call(id, name, args string) ai.ToolCall {
	return ai.ToolCall{ID: id, Type: "function", Function: ai.FunctionCall{Name: name, Arguments: args}}
}

func testAgentConfig() config.AgentConfig {
	return config.AgentConfig{
		MaxRounds:        10,
		ReasoningTimeout: 5 * time.Second,
		ToolTimeout:      5 * time.Second,
		MaxStocks:        10,
	}
}

func testOrchestrator(provider ai.ChatProvider, registry *tools.Registry) *Orchestrator {
	if registry == nil {
		registry = tools.NewRegistry()
	}
	return NewOrchestrator(provider, registry, testAgentConfig(), config.AIConfig{Model: "gpt-4o-mini"}, logger.Get())
}

func TestOrchestrator_SingleRound(t *testing.T) {
	provider := &scriptedProvider{steps: []scriptedStep{
		{resp: textResponse("PSX looks quiet today.")},
	}}
	orch := testOrchestrator(provider, nil)

	resp, err := orch.Query(context.Background(), "how is the market?", nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if resp.Text != "PSX looks quiet today." {
		t.Errorf("unexpected answer: %q", resp.Text)
	}
	if resp.Rounds != 1 {
		t.Errorf("expected 1 round, got %d", resp.Rounds)
	}
	if len(provider.requests) != 1 {
		t.Fatalf("expected 1 provider call, got %d", len(provider.requests))
	}

	// Every reasoning request starts with a fresh system prompt.
	first := provider.requests[0].Messages[0]
	if first.Role != ai.RoleSystem {
		t.Errorf("first message should be the system prompt, got role %q", first.Role)
	}
	if !strings.Contains(first.Content, "Pakistan Stock Exchange") {
		t.Error("system prompt should describe the PSX assistant role")
	}
}

func TestOrchestrator_EmptyQuery(t *testing.T) {
	orch := testOrchestrator(&scriptedProvider{}, nil)

	_, err := orch.Query(context.Background(), "   ", nil)
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestOrchestrator_ToolRoundTrip(t *testing.T) {
	registry := tools.NewRegistry()
	var gotArgs map[string]interface{}
	registry.Register(tools.New("get_top_gainers", "top gainers", nil, func(_ context.Context, args map[string]interface{}) (interface{}, error) {
		gotArgs = args
		return map[string]interface{}{
			"stocks": []map[string]interface{}{
				{"symbol": "SHEZ", "price": 285.0, "change_percent": 4.2},
			},
			"count": 1,
		}, nil
	}))

	provider := &scriptedProvider{steps: []scriptedStep{
		{resp: toolCallResponse("", call("call_1", "get_top_gainers", `{"limit":5}`))},
		{resp: textResponse("SHEZ leads the gainers at 285 PKR.")},
	}}
	orch := testOrchestrator(provider, registry)

	resp, err := orch.Query(context.Background(), "top gainers?", nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if gotArgs["limit"] != 5.0 {
		t.Errorf("tool should receive decoded arguments, got %v", gotArgs)
	}
	if resp.Rounds != 2 {
		t.Errorf("expected 2 rounds, got %d", resp.Rounds)
	}
	if resp.Text != "SHEZ leads the gainers at 285 PKR." {
		t.Errorf("unexpected answer: %q", resp.Text)
	}
	if len(resp.Stocks) != 1 || resp.Stocks[0].Symbol != "SHEZ" {
		t.Fatalf("expected the tool's stock in the response, got %+v", resp.Stocks)
	}
	if resp.Usage.TotalTokens != 250 {
		t.Errorf("usage should accumulate across rounds, got %d", resp.Usage.TotalTokens)
	}

	// The second request must carry the tool result back to the model.
	second := provider.requests[1].Messages
	last := second[len(second)-1]
	if last.Role != ai.RoleTool || last.ToolCallID != "call_1" {
		t.Errorf("expected trailing tool message for call_1, got %+v", last)
	}
}

func TestOrchestrator_ConcurrentToolsKeepOrder(t *testing.T) {
	registry := tools.NewRegistry()
	slow := tools.New("slow", "", nil, func(_ context.Context, _ map[string]interface{}) (interface{}, error) {
		time.Sleep(50 * time.Millisecond)
		return map[string]interface{}{"which": "slow"}, nil
	})
	fast := tools.New("fast", "", nil, func(_ context.Context, _ map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{"which": "fast"}, nil
	})
	registry.Register(slow)
	registry.Register(fast)

	provider := &scriptedProvider{steps: []scriptedStep{
		{resp: toolCallResponse("", call("call_1", "slow", "{}"), call("call_2", "fast", "{}"))},
		{resp: textResponse("done")},
	}}
	orch := testOrchestrator(provider, registry)

	_, err := orch.Query(context.Background(), "race them", nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	msgs := provider.requests[1].Messages
	// ...system, user, assistant, tool(call_1), tool(call_2)
	toolMsgs := msgs[len(msgs)-2:]
	if toolMsgs[0].ToolCallID != "call_1" || toolMsgs[1].ToolCallID != "call_2" {
		t.Errorf("tool results must follow request order, got %q then %q",
			toolMsgs[0].ToolCallID, toolMsgs[1].ToolCallID)
	}

	var first map[string]interface{}
	if err := json.Unmarshal([]byte(toolMsgs[0].Content), &first); err != nil {
		t.Fatalf("tool result should be JSON: %v", err)
	}
	if first["which"] != "slow" {
		t.Errorf("call_1 result should come from the slow tool, got %v", first)
	}
}

func TestOrchestrator_ToolErrorFedBack(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(tools.New("get_stock_analysis", "", nil, func(_ context.Context, _ map[string]interface{}) (interface{}, error) {
		return nil, errors.Wrap(errors.ErrUnknownSymbol, "no data for NOPE")
	}))

	provider := &scriptedProvider{steps: []scriptedStep{
		{resp: toolCallResponse("", call("call_1", "get_stock_analysis", `{"symbol":"NOPE"}`))},
		{resp: textResponse("I couldn't find a stock called NOPE.")},
	}}
	orch := testOrchestrator(provider, registry)

	resp, err := orch.Query(context.Background(), "analyze NOPE", nil)
	if err != nil {
		t.Fatalf("tool failure must not abort the loop: %v", err)
	}
	if resp.Text != "I couldn't find a stock called NOPE." {
		t.Errorf("unexpected answer: %q", resp.Text)
	}

	msgs := provider.requests[1].Messages
	last := msgs[len(msgs)-1]
	if !strings.Contains(last.Content, "error") || !strings.Contains(last.Content, "NOPE") {
		t.Errorf("error record should be fed back to the model, got %q", last.Content)
	}
}

func TestOrchestrator_UnknownTool(t *testing.T) {
	provider := &scriptedProvider{steps: []scriptedStep{
		{resp: toolCallResponse("", call("call_1", "no_such_tool", "{}"))},
		{resp: textResponse("never mind")},
	}}
	orch := testOrchestrator(provider, nil)

	_, err := orch.Query(context.Background(), "do something", nil)
	if err != nil {
		t.Fatalf("unknown tool must not abort the loop: %v", err)
	}

	msgs := provider.requests[1].Messages
	last := msgs[len(msgs)-1]
	if !strings.Contains(last.Content, "unknown tool") {
		t.Errorf("expected an unknown-tool error record, got %q", last.Content)
	}
}

func TestOrchestrator_RoundBudget(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(tools.New("get_top_gainers", "", nil, func(_ context.Context, _ map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{"count": 0}, nil
	}))

	// The model never stops asking for tools.
	steps := make([]scriptedStep, 0, 12)
	for i := 0; i < 12; i++ {
		steps = append(steps, scriptedStep{resp: toolCallResponse("", call("call_x", "get_top_gainers", "{}"))})
	}
	provider := &scriptedProvider{steps: steps}
	orch := testOrchestrator(provider, registry)

	resp, err := orch.Query(context.Background(), "loop forever", nil)
	if err != nil {
		t.Fatalf("budget exhaustion must degrade, not fail: %v", err)
	}
	if resp.Rounds != 10 {
		t.Errorf("expected the loop to stop at 10 rounds, got %d", resp.Rounds)
	}
	if len(provider.requests) != 10 {
		t.Errorf("expected 10 provider calls, got %d", len(provider.requests))
	}
	if resp.Text != FallbackAnswer {
		t.Errorf("no assistant text was produced, expected fallback, got %q", resp.Text)
	}
}

func TestOrchestrator_ProviderErrorWithoutText(t *testing.T) {
	provider := &scriptedProvider{steps: []scriptedStep{
		{err: errors.Wrap(errors.ErrExternal, "openai API error (500)")},
	}}
	orch := testOrchestrator(provider, nil)

	resp, err := orch.Query(context.Background(), "hello", nil)
	if err == nil {
		t.Fatal("a first-round provider failure should surface an error")
	}
	if resp.Text != FallbackAnswer {
		t.Errorf("expected fallback text, got %q", resp.Text)
	}
}

func TestOrchestrator_ProviderErrorDegradesToPartialAnswer(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(tools.New("get_top_gainers", "", nil, func(_ context.Context, _ map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{"count": 0}, nil
	}))

	provider := &scriptedProvider{steps: []scriptedStep{
		{resp: toolCallResponse("Checking the gainers now.", call("call_1", "get_top_gainers", "{}"))},
		{err: errors.Wrap(errors.ErrTimeout, "reasoning timed out")},
	}}
	orch := testOrchestrator(provider, registry)

	resp, err := orch.Query(context.Background(), "top gainers?", nil)
	if err != nil {
		t.Fatalf("a later failure with partial text should degrade, got error: %v", err)
	}
	if resp.Text != "Checking the gainers now." {
		t.Errorf("expected the partial answer, got %q", resp.Text)
	}
}

func TestOrchestrator_PortfolioInPrompt(t *testing.T) {
	provider := &scriptedProvider{steps: []scriptedStep{
		{resp: textResponse("Your OGDC position is fine.")},
	}}
	orch := testOrchestrator(provider, nil)

	portfolio := []market.PortfolioPosition{
		{Symbol: "OGDC", Quantity: 500, BuyPrice: decimal.NewFromFloat(118.25)},
	}
	_, err := orch.Query(context.Background(), "how are my holdings?", portfolio)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	system := provider.requests[0].Messages[0].Content
	if !strings.Contains(system, "OGDC") || !strings.Contains(system, "118.25") {
		t.Errorf("system prompt should include the portfolio, got:\n%s", system)
	}
}
