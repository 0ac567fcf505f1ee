package providers

import (
	"context"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider speaks the OpenAI chat-completions API. A base URL override
// lets it front any OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, providerErrf("openai", "API key not found; set OPENAI_API_KEY")
	}
	if model == "" {
		model = defaultOpenAIModel
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, model: model}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return p.CallWithHistory(ctx, systemPrompt, []Message{{Role: "user", Content: userPrompt}})
}

func (p *OpenAIProvider) CallWithHistory(ctx context.Context, systemPrompt string, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: buildOpenAIMessages(systemPrompt, messages),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", providerErr("openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", providerErrf("openai", "response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildOpenAIMessages(systemPrompt string, messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, openai.SystemMessage(systemPrompt))
	}
	for _, msg := range messages {
		if msg.Role == "assistant" {
			out = append(out, openai.AssistantMessage(msg.Content))
		} else {
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
