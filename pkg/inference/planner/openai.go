package planner

import (
	"context"
	"encoding/json"

	"github.com/go-go-golems/wayfinder/pkg/conversation"
	"github.com/go-go-golems/wayfinder/pkg/inference/tools"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// MakeClient creates an OpenAI compatible client. An empty baseURL keeps the
// library default.
func MakeClient(apiKey string, baseURL string) (*go_openai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("no API key for openai")
	}
	config := go_openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return go_openai.NewClientWithConfig(config), nil
}

// OpenAI plans with structured tool calls through the chat completions API.
type OpenAI struct {
	client      *go_openai.Client
	model       string
	temperature float32
}

var _ Planner = (*OpenAI)(nil)

func NewOpenAI(client *go_openai.Client, model string, temperature float32) *OpenAI {
	return &OpenAI{client: client, model: model, temperature: temperature}
}

func (p *OpenAI) Plan(ctx context.Context, conv *conversation.Conversation, specs []tools.ToolSpec) (Reply, error) {
	req := go_openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    ToOpenAIMessages(conv),
		Temperature: p.temperature,
	}
	if len(specs) > 0 {
		req.Tools = ToOpenAITools(specs)
		req.ToolChoice = "auto"
	}

	log.Debug().
		Str("model", p.model).
		Int("messages", len(req.Messages)).
		Int("tools", len(req.Tools)).
		Msg("openai: planning step")

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Reply{}, errors.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return Reply{}, errors.New("openai returned no choices")
	}
	return replyFromOpenAI(resp.Choices[0].Message), nil
}

func replyFromOpenAI(msg go_openai.ChatCompletionMessage) Reply {
	if len(msg.ToolCalls) == 0 {
		// Some compatible backends answer with the text protocol instead.
		reply, _ := ParseText(msg.Content)
		return reply
	}

	calls := make([]ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				log.Warn().Err(err).
					Str("tool", tc.Function.Name).
					Str("arguments", tc.Function.Arguments).
					Msg("openai: tool call arguments are not a JSON object")
				args = map[string]any{}
			}
		}
		calls = append(calls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: args})
	}

	reply := Call(msg.Content, calls[0])
	if len(calls) > 1 {
		reply.Dropped = calls[1:]
	}
	return reply
}

// ToOpenAITools converts tool specs to OpenAI function tools.
func ToOpenAITools(specs []tools.ToolSpec) []go_openai.Tool {
	ret := make([]go_openai.Tool, 0, len(specs))
	for _, spec := range specs {
		ret = append(ret, go_openai.Tool{
			Type: go_openai.ToolTypeFunction,
			Function: &go_openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Schema(),
			},
		})
	}
	return ret
}

// ToOpenAIMessages replays a conversation as chat messages. Observations that
// answer a structured call become tool messages, the others are sent back as
// "Observation: ..." user messages.
func ToOpenAIMessages(conv *conversation.Conversation) []go_openai.ChatCompletionMessage {
	turns := conv.Turns()
	ret := make([]go_openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case conversation.RoleSystem:
			ret = append(ret, go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleSystem, Content: t.Text})
		case conversation.RoleUser:
			ret = append(ret, go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleUser, Content: t.Text})
		case conversation.RoleAssistant:
			msg := go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleAssistant, Content: t.Text}
			if t.ToolCall != nil && t.ToolCall.ID != "" {
				args, err := json.Marshal(t.ToolCall.Arguments)
				if err != nil {
					args = []byte("{}")
				}
				msg.ToolCalls = []go_openai.ToolCall{{
					ID:   t.ToolCall.ID,
					Type: go_openai.ToolTypeFunction,
					Function: go_openai.FunctionCall{
						Name:      t.ToolCall.Name,
						Arguments: string(args),
					},
				}}
			}
			ret = append(ret, msg)
		case conversation.RoleObservation:
			if t.ToolCallID != "" {
				ret = append(ret, go_openai.ChatCompletionMessage{
					Role:       go_openai.ChatMessageRoleTool,
					Content:    t.Text,
					ToolCallID: t.ToolCallID,
				})
				continue
			}
			ret = append(ret, go_openai.ChatCompletionMessage{
				Role:    go_openai.ChatMessageRoleUser,
				Content: "Observation: " + t.Text,
			})
		}
	}
	return ret
}

// OpenAICompleter runs single-shot completions without tools.
type OpenAICompleter struct {
	client      *go_openai.Client
	model       string
	temperature float32
}

var _ Completer = (*OpenAICompleter)(nil)

func NewOpenAICompleter(client *go_openai.Client, model string, temperature float32) *OpenAICompleter {
	return &OpenAICompleter{client: client, model: model, temperature: temperature}
}

func (c *OpenAICompleter) Complete(ctx context.Context, system string, user string) (string, error) {
	msgs := []go_openai.ChatCompletionMessage{}
	if system != "" {
		msgs = append(msgs, go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleSystem, Content: system})
	}
	msgs = append(msgs, go_openai.ChatCompletionMessage{Role: go_openai.ChatMessageRoleUser, Content: user})

	resp, err := c.client.CreateChatCompletion(ctx, go_openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", errors.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
