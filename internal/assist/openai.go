package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	openai "github.com/openai/openai-go/v3"
)

const chatBasePrompt = `You are a personal voice assistant. Answer the user directly and
helpfully. You have no access to the user's files.`

// OpenAI is a chat-completions backend. It keeps a rolling in-memory
// history per agent; unlike the CLI backend there is nothing to resume
// across restarts.
type OpenAI struct {
	client openai.Client
	model  openai.ChatModel

	mu      sync.Mutex
	history map[string][]openai.ChatCompletionMessageParamUnion
}

// maxHistory bounds per-agent context to the most recent exchanges.
const maxHistory = 20

func NewOpenAI(client openai.Client, model string) *OpenAI {
	m := openai.ChatModelGPT4o
	if model != "" {
		m = openai.ChatModel(model)
	}
	return &OpenAI{
		client:  client,
		model:   m,
		history: make(map[string][]openai.ChatCompletionMessageParamUnion),
	}
}

func (o *OpenAI) Name() string { return "openai:" + string(o.model) }

func (o *OpenAI) Respond(ctx context.Context, req Request, emit func(Event)) (Reply, error) {
	o.mu.Lock()
	if req.Reset {
		delete(o.history, req.Agent)
	}
	prior := append([]openai.ChatCompletionMessageParamUnion(nil), o.history[req.Agent]...)
	o.mu.Unlock()

	prompt := chatBasePrompt
	if req.SystemPrompt != "" {
		prompt += "\n\n" + req.SystemPrompt
	}
	if req.VoiceMode {
		prompt += "\n\n" + voicePrompt
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(prior)+2)
	messages = append(messages, openai.SystemMessage(prompt))
	messages = append(messages, prior...)
	messages = append(messages, openai.UserMessage(req.Message))

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    o.model,
	}

	var text strings.Builder
	if emit != nil {
		stream := o.client.Chat.Completions.NewStreaming(ctx, params)
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			text.WriteString(delta)
			emit(Event{Kind: EventText, Text: delta})
		}
		if err := stream.Err(); err != nil {
			return Reply{}, fmt.Errorf("assist: chat stream: %w", err)
		}
	} else {
		resp, err := o.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return Reply{}, fmt.Errorf("assist: chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return Reply{}, errors.New("assist: no choices in response")
		}
		text.WriteString(resp.Choices[0].Message.Content)
	}

	out := strings.TrimSpace(text.String())
	if out == "" {
		return Reply{}, errors.New("assist: empty reply")
	}

	o.mu.Lock()
	h := append(o.history[req.Agent], openai.UserMessage(req.Message), openai.AssistantMessage(out))
	if len(h) > maxHistory {
		h = h[len(h)-maxHistory:]
	}
	o.history[req.Agent] = h
	o.mu.Unlock()

	return Reply{Text: out}, nil
}
