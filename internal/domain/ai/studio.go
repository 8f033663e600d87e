package ai

import (
	"context"
	"net/http"
	"strings"

	"github.com/arth-1/socialpost/internal/domain/image"
	"github.com/arth-1/socialpost/internal/platform/errors"
	"github.com/arth-1/socialpost/internal/platform/observability"
	"github.com/arth-1/socialpost/internal/utils"
)

// ErrNoImage is returned when the image model answers without an image.
var ErrNoImage = errors.New(errors.KindUnknown, "ai.generate", "No image was generated.")

const improveTemplate = `You are an AI prompt engineer. Your job is to take a user-provided prompt and improve it so that it is more likely to generate a high-quality image.

The improved prompt should be more detailed and specific than the original prompt.

Original prompt: {prompt}
Improved prompt:`

// PromptImprover rewrites a short prompt into a more detailed one.
type PromptImprover struct {
	model  TextModel
	logger *utils.Logger
}

func NewPromptImprover(model TextModel, logger *utils.Logger) *PromptImprover {
	return &PromptImprover{model: model, logger: logger}
}

func (p *PromptImprover) Improve(ctx context.Context, prompt string) (improved string, err error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New(errors.KindValidation, "ai.improve", "prompt is required")
	}
	ctx, end := observability.StartSpan(ctx, "ai", "improve_prompt")
	defer func() { end(err) }()

	out, err := p.model.Complete(ctx, strings.Replace(improveTemplate, "{prompt}", prompt, 1))
	if err != nil {
		return "", err
	}
	improved = utils.CleanModelText(out)
	if improved == "" {
		return "", errors.New(errors.KindUnknown, "ai.improve", "model returned an empty prompt")
	}
	p.logger.InfoTag(logTag, "prompt improved: %d -> %d chars", len(prompt), len(improved))
	return improved, nil
}

// Downloader fetches a remote image when the model answers with a URL.
type Downloader interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ImageGenerator turns a prompt into an image data URI.
type ImageGenerator struct {
	model      ImageModel
	downloader Downloader
	logger     *utils.Logger
}

func NewImageGenerator(model ImageModel, downloader Downloader, logger *utils.Logger) *ImageGenerator {
	return &ImageGenerator{model: model, downloader: downloader, logger: logger}
}

func (g *ImageGenerator) Generate(ctx context.Context, prompt string) (dataURI string, err error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New(errors.KindValidation, "ai.generate", "prompt is required")
	}
	ctx, end := observability.StartSpan(ctx, "ai", "generate_image")
	defer func() { end(err) }()

	img, err := g.model.GenerateImage(ctx, prompt)
	if err != nil {
		return "", err
	}
	if img == nil {
		return "", ErrNoImage
	}

	data, mime := img.Data, img.MIME
	if len(data) == 0 && img.URL != "" && g.downloader != nil {
		if data, err = g.downloader.Fetch(ctx, img.URL); err != nil {
			return "", err
		}
		mime = ""
	}
	if len(data) == 0 {
		return "", ErrNoImage
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/png"
	}

	g.logger.InfoTag(logTag, "image generated: %s, %d bytes", mime, len(data))
	observability.RecordMetric(ctx, "ai_image_bytes", float64(len(data)), map[string]string{"mime": mime})
	return image.EncodeDataURI(mime, data), nil
}
