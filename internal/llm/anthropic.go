package llm

import (
	"context"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/kayz/inkwright/internal/config"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

type anthropicProvider struct {
	client *anthropic.Client
	model  string
}

func newAnthropicProvider(cfg config.AIConfig) *anthropicProvider {
	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return &anthropicProvider{
		client: anthropic.NewClient(cfg.APIKey, opts...),
		model:  model,
	}
}

func (p *anthropicProvider) Name() string {
	return "anthropic"
}

func (p *anthropicProvider) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	out := make(chan Chunk, 16)
	go func() {
		defer close(out)

		temperature := req.Temperature
		msgReq := anthropic.MessagesRequest{
			Model:       anthropic.Model(model),
			Messages:    []anthropic.Message{anthropic.NewUserTextMessage(req.Prompt)},
			MaxTokens:   maxTokens,
			Temperature: &temperature,
		}
		if req.System != "" {
			msgReq.System = req.System
		}

		_, err := p.client.CreateMessagesStream(ctx, anthropic.MessagesStreamRequest{
			MessagesRequest: msgReq,
			OnContentBlockDelta: func(data anthropic.MessagesEventContentBlockDeltaData) {
				if data.Delta.Text == nil || *data.Delta.Text == "" {
					return
				}
				select {
				case out <- Chunk{Text: *data.Delta.Text}:
				case <-ctx.Done():
				}
			},
		})
		if err != nil {
			out <- Chunk{Err: err}
			return
		}
		out <- Chunk{Done: true}
	}()
	return out, nil
}
