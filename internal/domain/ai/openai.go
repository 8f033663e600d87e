package ai

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/arth-1/socialpost/internal/platform/config"
	"github.com/arth-1/socialpost/internal/platform/errors"
	"github.com/arth-1/socialpost/internal/utils"
)

const logTag = "AI"

func init() {
	RegisterText("openai", newOpenAIText)
	RegisterImage("openai", newOpenAIImage)
}

func newOpenAIClient(apiKey, baseURL string) *openai.Client {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

// OpenAIText is a chat-completions backed TextModel.
type OpenAIText struct {
	client *openai.Client
	cfg    config.LLMConfig
	logger *utils.Logger
}

func newOpenAIText(cfg config.LLMConfig, logger *utils.Logger) (TextModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.KindConfig, "ai.openai", "missing OpenAI API key")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = openai.GPT4oMini
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	return &OpenAIText{client: newOpenAIClient(cfg.APIKey, cfg.BaseURL), cfg: cfg, logger: logger}, nil
}

func (o *OpenAIText) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.cfg.ModelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: float32(o.cfg.Temperature),
	})
	if err != nil {
		return "", errors.Wrap(errors.KindNetwork, "ai.openai", "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.KindUnknown, "ai.openai", "chat completion returned no choices")
	}
	o.logger.DebugTag(logTag, "chat completion done: model=%s tokens=%d", resp.Model, resp.Usage.TotalTokens)
	return resp.Choices[0].Message.Content, nil
}

// OpenAIImage is an images-API backed ImageModel.
type OpenAIImage struct {
	client *openai.Client
	cfg    config.ImageGenConfig
	logger *utils.Logger
}

func newOpenAIImage(cfg config.ImageGenConfig, logger *utils.Logger) (ImageModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.KindConfig, "ai.openai", "missing OpenAI API key")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = openai.CreateImageModelDallE3
	}
	if cfg.Size == "" {
		cfg.Size = openai.CreateImageSize1024x1024
	}
	return &OpenAIImage{client: newOpenAIClient(cfg.APIKey, cfg.BaseURL), cfg: cfg, logger: logger}, nil
}

func (o *OpenAIImage) GenerateImage(ctx context.Context, prompt string) (*GeneratedImage, error) {
	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          o.cfg.ModelName,
		N:              1,
		Size:           o.cfg.Size,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindNetwork, "ai.openai", "image request failed", err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrNoImage
	}

	item := resp.Data[0]
	out := &GeneratedImage{URL: item.URL}
	if item.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(item.B64JSON))
		if err != nil {
			return nil, errors.Wrap(errors.KindDecoding, "ai.openai", "invalid base64 image payload", err)
		}
		out.Data = data
		out.MIME = http.DetectContentType(data)
	}
	if item.RevisedPrompt != "" {
		o.logger.DebugTag(logTag, "revised prompt: %s", item.RevisedPrompt)
	}
	return out, nil
}
