// Package agent runs user messages through the OpenAI chat-completion API
// with a currency-rate lookup tool exposed via function calling.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"currency-agent-backend/internal/nbu"
)

// ToolNameCurrencyRates is the value reported in ChatResponse.ToolUsed when
// the model invoked the rate lookup.
const ToolNameCurrencyRates = "currency_rates"

// CompletionClient is the slice of the OpenAI client the agent needs.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// RateSource provides exchange rates for the tool. *nbu.Client satisfies it.
type RateSource interface {
	FetchRates(ctx context.Context, valcode, date string) ([]nbu.Rate, error)
	FetchRateRange(ctx context.Context, valcode, start, end string) ([]nbu.Rate, error)
}

type Service struct {
	client CompletionClient
	rates  RateSource
	spec   *Spec
	model  string
	now    func() time.Time
}

func NewService(client CompletionClient, rates RateSource, spec *Spec, model string) *Service {
	return &Service{client: client, rates: rates, spec: spec, model: model, now: time.Now}
}

// Result carries the final model reply plus tool-usage metadata.
type Result struct {
	Reply    string
	ToolUsed string
}

type toolArgs struct {
	Valcode   string `json:"valcode"`
	Date      string `json:"date"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Process sends the session history plus the new user message to the model
// and resolves tool calls until the model produces a text reply. The tool
// loop is capped to keep a misbehaving model from spinning.
func (s *Service) Process(ctx context.Context, history []openai.ChatCompletionMessage, message string) (*Result, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: s.spec.SystemPrompt(s.now()),
	})
	messages = append(messages, history...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	tools := []openai.Tool{{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        s.spec.Tool.Name,
			Description: s.spec.Tool.Description,
			Parameters:  s.spec.Tool.Parameters,
		},
	}}

	toolUsed := ""
	for i := 0; i < s.spec.Style.MaxIterations; i++ {
		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       s.model,
			Temperature: s.spec.Style.Temperature,
			MaxTokens:   s.spec.Style.MaxTokens,
			Messages:    messages,
			Tools:       tools,
		})
		if err != nil {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("chat completion: no choices returned")
		}
		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return &Result{Reply: msg.Content, ToolUsed: toolUsed}, nil
		}

		messages = append(messages, msg)
		for _, tc := range msg.ToolCalls {
			out := s.runTool(ctx, tc.Function.Name, tc.Function.Arguments)
			if tc.Function.Name == s.spec.Tool.Name {
				toolUsed = ToolNameCurrencyRates
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    out,
				ToolCallID: tc.ID,
			})
		}
	}
	return nil, fmt.Errorf("agent exceeded %d tool iterations", s.spec.Style.MaxIterations)
}

// RunToolDirect invokes the currency tool outside a chat turn (test-tool endpoint).
func (s *Service) RunToolDirect(ctx context.Context, argsJSON string) string {
	return s.runTool(ctx, s.spec.Tool.Name, argsJSON)
}

// runTool executes a tool call. Failures are reported back to the model as
// text rather than aborting the turn, so it can explain the problem.
func (s *Service) runTool(ctx context.Context, name, argsJSON string) string {
	if name != s.spec.Tool.Name {
		return fmt.Sprintf("Unknown tool %q.", name)
	}
	var args toolArgs
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return fmt.Sprintf("Parameter error: %v", err)
		}
	}
	log.Printf("[agent] tool call %s valcode=%q date=%q start=%q end=%q",
		name, args.Valcode, args.Date, args.StartDate, args.EndDate)

	var (
		rates []nbu.Rate
		err   error
	)
	if args.StartDate != "" || args.EndDate != "" {
		rates, err = s.rates.FetchRateRange(ctx, args.Valcode, args.StartDate, args.EndDate)
	} else {
		rates, err = s.rates.FetchRates(ctx, args.Valcode, args.Date)
	}
	if err != nil {
		return fmt.Sprintf("Error fetching currency rates: %v", err)
	}
	return nbu.FormatForModel(rates)
}
