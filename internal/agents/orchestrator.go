package agents

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hermes/internal/adapters/ai"
	"hermes/internal/adapters/config"
	"hermes/internal/market"
	"hermes/internal/metrics"
	"hermes/internal/tools"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Orchestrator drives the reasoning/tool loop for one query at a time. It is
// stateless between queries and safe for concurrent use.
type Orchestrator struct {
	provider ai.ChatProvider
	registry *tools.Registry
	agentCfg config.AgentConfig
	aiCfg    config.AIConfig
	log      *logger.Logger
}

// NewOrchestrator creates the agent loop.
func NewOrchestrator(provider ai.ChatProvider, registry *tools.Registry, agentCfg config.AgentConfig, aiCfg config.AIConfig, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		registry: registry,
		agentCfg: agentCfg,
		aiCfg:    aiCfg,
		log:      log.With("component", "orchestrator"),
	}
}

// Query runs the full loop for one user query: reasoning rounds interleaved
// with tool execution until the model answers without tool calls or the
// round budget runs out. Tool failures are fed back to the model as error
// records; only a reasoning failure with no prior assistant text is fatal.
func (o *Orchestrator) Query(ctx context.Context, query string, portfolio []market.PortfolioPosition) (Response, error) {
	started := time.Now()

	if strings.TrimSpace(query) == "" {
		return Response{}, errors.Wrap(errors.ErrInvalidInput, "query is empty")
	}

	queryID := uuid.NewString()
	o.log.Infow("query started", "query_id", queryID, "portfolio_positions", len(portfolio))

	conv := NewConversation()
	conv.AddUserMessage(query)

	defs := o.registry.Definitions()
	var usage ai.Usage
	rounds := 0

	for rounds < o.agentCfg.MaxRounds {
		rounds++

		choice, err := o.reason(ctx, conv, portfolio, defs)
		if err != nil {
			metrics.AgentCalls.WithLabelValues(o.aiCfg.Model, "error").Inc()
			o.log.Errorw("reasoning round failed", "round", rounds, "error", err)

			resp := o.assemble(conv, queryID, rounds, usage, started)
			if resp.Text == FallbackAnswer {
				return resp, errors.Wrap(err, "agent loop")
			}
			// A partial answer exists; degrade instead of failing.
			return resp, nil
		}
		metrics.AgentCalls.WithLabelValues(o.aiCfg.Model, "success").Inc()
		usage = addUsage(usage, choice.usage)

		conv.AddAssistantMessage(choice.message.Content, choice.message.ToolCalls)

		if len(choice.message.ToolCalls) == 0 {
			return o.assemble(conv, queryID, rounds, usage, started), nil
		}

		o.executeToolCalls(ctx, conv, choice.message.ToolCalls)
	}

	o.log.Warnw("round budget exhausted",
		"error", errors.ErrLoopBudgetExceeded, "rounds", rounds, "tokens", conv.TokenCount())
	return o.assemble(conv, queryID, rounds, usage, started), nil
}

type reasonResult struct {
	message ai.Message
	usage   ai.Usage
}

func (o *Orchestrator) reason(ctx context.Context, conv *Conversation, portfolio []market.PortfolioPosition, defs []ai.ToolDefinition) (*reasonResult, error) {
	reasonCtx, cancel := context.WithTimeout(ctx, o.agentCfg.ReasoningTimeout)
	defer cancel()

	// The prompt is rebuilt every round so session status stays current.
	systemPrompt := BuildSystemPrompt(time.Now(), portfolio)

	resp, err := o.provider.Chat(reasonCtx, ai.ChatRequest{
		Model:       o.aiCfg.Model,
		Messages:    conv.Messages(systemPrompt),
		Tools:       defs,
		Temperature: o.aiCfg.Temperature,
		MaxTokens:   o.aiCfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.Wrap(errors.ErrNoFinalAnswer, "provider returned no choices")
	}

	return &reasonResult{
		message: resp.Choices[0].Message,
		usage:   resp.Usage,
	}, nil
}

// executeToolCalls runs the round's tool calls concurrently, then appends
// the results to the trace in the order the model requested them.
func (o *Orchestrator) executeToolCalls(ctx context.Context, conv *Conversation, calls []ai.ToolCall) {
	results := make([]interface{}, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call ai.ToolCall) {
			defer wg.Done()
			results[i] = o.executeToolCall(ctx, call)
		}(i, call)
	}
	wg.Wait()

	for i, call := range calls {
		if err := conv.AddToolResult(call.ID, call.Function.Name, results[i]); err != nil {
			o.log.Errorw("recording tool result failed", "tool", call.Function.Name, "error", err)
		}
	}
}

// executeToolCall never returns an error: failures become error records the
// model can read and route around.
func (o *Orchestrator) executeToolCall(ctx context.Context, call ai.ToolCall) interface{} {
	name := call.Function.Name

	tool, ok := o.registry.Get(name)
	if !ok {
		o.log.Warnw("model requested unknown tool", "tool", name)
		metrics.ToolExecutions.WithLabelValues(name, "error").Inc()
		return map[string]interface{}{"error": "unknown tool: " + name}
	}

	args := map[string]interface{}{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			metrics.ToolExecutions.WithLabelValues(name, "error").Inc()
			return map[string]interface{}{"error": "invalid tool arguments: " + err.Error()}
		}
	}

	toolCtx, cancel := context.WithTimeout(ctx, o.agentCfg.ToolTimeout)
	defer cancel()

	started := time.Now()
	result, err := tool.Execute(toolCtx, args)
	metrics.ToolLatency.WithLabelValues(name).Observe(time.Since(started).Seconds())

	if err != nil {
		o.log.Warnw("tool execution failed", "tool", name, "error", err)
		metrics.ToolExecutions.WithLabelValues(name, "error").Inc()
		return map[string]interface{}{"error": err.Error()}
	}

	metrics.ToolExecutions.WithLabelValues(name, "success").Inc()
	return result
}

func (o *Orchestrator) assemble(conv *Conversation, queryID string, rounds int, usage ai.Usage, started time.Time) Response {
	resp := Assemble(conv, o.agentCfg.MaxStocks)
	resp.ID = queryID
	resp.Rounds = rounds
	resp.Usage = usage

	metrics.AgentRounds.Observe(float64(rounds))
	metrics.AgentLatency.WithLabelValues(o.aiCfg.Model).Observe(time.Since(started).Seconds())
	metrics.AgentTokens.WithLabelValues(o.aiCfg.Model, "input").Add(float64(usage.PromptTokens))
	metrics.AgentTokens.WithLabelValues(o.aiCfg.Model, "output").Add(float64(usage.CompletionTokens))

	o.log.Infow("query complete",
		"query_id", queryID,
		"rounds", rounds,
		"stocks", len(resp.Stocks),
		"tokens", usage.TotalTokens,
		"duration", time.Since(started))
	return resp
}

func addUsage(a, b ai.Usage) ai.Usage {
	return ai.Usage{
		PromptTokens:     a.PromptTokens + b.PromptTokens,
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
		TotalTokens:      a.TotalTokens + b.TotalTokens,
	}
}
