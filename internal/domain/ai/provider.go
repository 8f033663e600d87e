// Package ai wraps the generative models behind the studio endpoints: a
// chat model that rewrites prompts and an image model that renders them.
package ai

import (
	"context"
	"fmt"
	"sync"

	"github.com/arth-1/socialpost/internal/platform/config"
	"github.com/arth-1/socialpost/internal/platform/errors"
	"github.com/arth-1/socialpost/internal/utils"
)

// TextModel completes a single user prompt.
type TextModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeneratedImage is what an image model returns: inline bytes, a remote URL,
// or both.
type GeneratedImage struct {
	Data []byte
	MIME string
	URL  string
}

// ImageModel renders a prompt into one image.
type ImageModel interface {
	GenerateImage(ctx context.Context, prompt string) (*GeneratedImage, error)
}

type TextFactory func(cfg config.LLMConfig, logger *utils.Logger) (TextModel, error)
type ImageFactory func(cfg config.ImageGenConfig, logger *utils.Logger) (ImageModel, error)

var (
	registryMu     sync.RWMutex
	textFactories  = map[string]TextFactory{}
	imageFactories = map[string]ImageFactory{}
)

// RegisterText 注册文本模型提供者
func RegisterText(name string, factory TextFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	textFactories[name] = factory
}

// RegisterImage 注册图像模型提供者
func RegisterImage(name string, factory ImageFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	imageFactories[name] = factory
}

// NewTextModel builds the provider registered under cfg.Type.
func NewTextModel(cfg config.LLMConfig, logger *utils.Logger) (TextModel, error) {
	registryMu.RLock()
	factory, ok := textFactories[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.New(errors.KindConfig, "ai.text", fmt.Sprintf("unknown LLM type %q", cfg.Type))
	}
	return factory(cfg, logger)
}

// NewImageModel builds the provider registered under cfg.Type.
func NewImageModel(cfg config.ImageGenConfig, logger *utils.Logger) (ImageModel, error) {
	registryMu.RLock()
	factory, ok := imageFactories[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.New(errors.KindConfig, "ai.image", fmt.Sprintf("unknown image generator type %q", cfg.Type))
	}
	return factory(cfg, logger)
}

// SelectedText resolves the LLM named in selected_module.
func SelectedText(cfg *config.Config, logger *utils.Logger) (TextModel, error) {
	name := cfg.Selected.LLM
	llmCfg, ok := cfg.LLM[name]
	if !ok {
		return nil, errors.New(errors.KindConfig, "ai.text", fmt.Sprintf("selected LLM %q is not configured", name))
	}
	return NewTextModel(llmCfg, logger)
}

// SelectedImage resolves the image generator named in selected_module.
func SelectedImage(cfg *config.Config, logger *utils.Logger) (ImageModel, error) {
	name := cfg.Selected.ImageGen
	imgCfg, ok := cfg.ImageGen[name]
	if !ok {
		return nil, errors.New(errors.KindConfig, "ai.image", fmt.Sprintf("selected image generator %q is not configured", name))
	}
	return NewImageModel(imgCfg, logger)
}
