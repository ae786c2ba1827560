package planner

import (
	"context"
	"strings"

	"github.com/go-go-golems/wayfinder/pkg/conversation"
	"github.com/go-go-golems/wayfinder/pkg/inference/tools"
	"github.com/jmorganca/ollama/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ChatClient is the part of the ollama client the planners use.
type ChatClient interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

var _ ChatClient = (*api.Client)(nil)

// Ollama plans with the Thought/Action/Args text protocol. The tools are
// described to the model by the system prompt.
type Ollama struct {
	client      ChatClient
	model       string
	temperature float64
}

var _ Planner = (*Ollama)(nil)

func NewOllama(client ChatClient, model string, temperature float64) *Ollama {
	return &Ollama{client: client, model: model, temperature: temperature}
}

func (p *Ollama) Plan(ctx context.Context, conv *conversation.Conversation, specs []tools.ToolSpec) (Reply, error) {
	msgs := ToOllamaMessages(conv)
	log.Debug().
		Str("model", p.model).
		Int("messages", len(msgs)).
		Int("tools", len(specs)).
		Msg("ollama: planning step")

	text, err := chat(ctx, p.client, p.model, p.temperature, msgs)
	if err != nil {
		return Reply{}, err
	}

	reply, perr := ParseText(text)
	if perr != nil {
		log.Debug().Err(perr).Msg("ollama: reply is a final answer")
	}
	return reply, nil
}

// ToOllamaMessages replays a conversation for a text protocol model.
// Observations are sent back as "Observation: ..." user messages.
func ToOllamaMessages(conv *conversation.Conversation) []api.Message {
	turns := conv.Turns()
	ret := make([]api.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case conversation.RoleSystem, conversation.RoleUser:
			ret = append(ret, api.Message{Role: string(t.Role), Content: t.Text})
		case conversation.RoleAssistant:
			text := t.Text
			if text == "" && t.ToolCall != nil {
				text = t.ToolCall.String()
			}
			ret = append(ret, api.Message{Role: string(conversation.RoleAssistant), Content: text})
		case conversation.RoleObservation:
			ret = append(ret, api.Message{Role: string(conversation.RoleUser), Content: "Observation: " + t.Text})
		}
	}
	return ret
}

// OllamaCompleter runs single-shot completions against an ollama model.
type OllamaCompleter struct {
	client      ChatClient
	model       string
	temperature float64
}

var _ Completer = (*OllamaCompleter)(nil)

func NewOllamaCompleter(client ChatClient, model string, temperature float64) *OllamaCompleter {
	return &OllamaCompleter{client: client, model: model, temperature: temperature}
}

func (c *OllamaCompleter) Complete(ctx context.Context, system string, user string) (string, error) {
	msgs := []api.Message{}
	if system != "" {
		msgs = append(msgs, api.Message{Role: string(conversation.RoleSystem), Content: system})
	}
	msgs = append(msgs, api.Message{Role: string(conversation.RoleUser), Content: user})
	return chat(ctx, c.client, c.model, c.temperature, msgs)
}

func chat(ctx context.Context, client ChatClient, model string, temperature float64, msgs []api.Message) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": temperature,
		},
	}

	var sb strings.Builder
	err := client.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "ollama chat")
	}
	return strings.TrimSpace(sb.String()), nil
}
