package studio

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arth-1/socialpost/internal/domain/image"
	"github.com/arth-1/socialpost/internal/platform/errors"
	httptransport "github.com/arth-1/socialpost/internal/transport/http"
	"github.com/arth-1/socialpost/internal/utils"
)

type Improver interface {
	Improve(ctx context.Context, prompt string) (string, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Compressor interface {
	CompressDataURI(ctx context.Context, dataURI string, maxSizeKB float64) (*image.Result, error)
}

type History interface {
	Add(ctx context.Context, prompt, source string) (bool, error)
	List(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// Options wires the studio endpoints. Improver and Generator may be nil
// when no model is configured; their endpoints then answer 503.
type Options struct {
	Improver   Improver
	Generator  Generator
	Compressor Compressor
	History    History
	TopPrompts []string
	Logger     *utils.Logger
}

// Service 提示词、生成、压缩与历史接口
type Service struct {
	opts   Options
	logger *utils.Logger
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type compressRequest struct {
	ImageDataURI string  `json:"imageDataUri"`
	MaxSizeKB    float64 `json:"maxSizeKB"`
}

func NewService(opts Options) (*Service, error) {
	if opts.Compressor == nil {
		return nil, errors.New(errors.KindConfig, "studio.new", "compressor is required")
	}
	if opts.History == nil {
		return nil, errors.New(errors.KindConfig, "studio.new", "history is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.DefaultLogger
	}
	return &Service{opts: opts, logger: logger}, nil
}

// Register 注册工作室相关的HTTP路由
func (s *Service) Register(api, secured *gin.RouterGroup) {
	secured.POST("/improvePrompt", s.handleImprove)
	secured.POST("/generateImage", s.handleGenerate)
	secured.POST("/compressImage", s.handleCompress)
	api.GET("/history", s.handleHistoryGet)
	secured.DELETE("/history", s.handleHistoryDelete)
	api.GET("/prompts/top", s.handleTopPrompts)
	s.logger.InfoTag("HTTP", "工作室服务路由注册完成")
}

func (s *Service) bindPrompt(c *gin.Context) (string, bool) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		httptransport.RespondError(c, http.StatusBadRequest, "Prompt is required")
		return "", false
	}
	return req.Prompt, true
}

func (s *Service) handleImprove(c *gin.Context) {
	if s.opts.Improver == nil {
		httptransport.RespondError(c, http.StatusServiceUnavailable, "Prompt improvement is not configured")
		return
	}
	prompt, ok := s.bindPrompt(c)
	if !ok {
		return
	}
	improved, err := s.opts.Improver.Improve(c.Request.Context(), prompt)
	if err != nil {
		s.logger.ErrorTag("AI", "Error improving prompt: %v", err)
		httptransport.RespondFailure(c, http.StatusInternalServerError, "Failed to improve prompt", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"improvedPrompt": improved})
}

func (s *Service) handleGenerate(c *gin.Context) {
	if s.opts.Generator == nil {
		httptransport.RespondError(c, http.StatusServiceUnavailable, "Image generation is not configured")
		return
	}
	prompt, ok := s.bindPrompt(c)
	if !ok {
		return
	}

	dataURI, err := s.opts.Generator.Generate(c.Request.Context(), prompt)
	if err != nil {
		s.logger.ErrorTag("AI", "Error generating image: %v", err)
		httptransport.RespondFailure(c, http.StatusInternalServerError, "Image generation failed", err)
		return
	}

	// only successful generations enter the history
	if _, err := s.opts.History.Add(c.Request.Context(), prompt, "generate"); err != nil {
		s.logger.WarnTag("历史", "记录提示词失败: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"imageDataUri": dataURI})
}

func (s *Service) handleCompress(c *gin.Context) {
	var req compressRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ImageDataURI == "" {
		httptransport.RespondError(c, http.StatusBadRequest, "Missing image")
		return
	}

	result, err := s.opts.Compressor.CompressDataURI(c.Request.Context(), req.ImageDataURI, req.MaxSizeKB)
	if err != nil {
		switch errors.KindOf(err) {
		case errors.KindValidation, errors.KindDecoding:
			s.logger.WarnTag("压缩", "图片不可压缩: %v", err)
			httptransport.RespondFailure(c, http.StatusBadRequest, "Invalid image", err)
		default:
			s.logger.ErrorTag("压缩", "Error compressing image: %v", err)
			httptransport.RespondFailure(c, http.StatusInternalServerError, "Image compression failed", err)
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Service) handleHistoryGet(c *gin.Context) {
	prompts, err := s.opts.History.List(c.Request.Context())
	if err != nil {
		s.logger.ErrorTag("历史", "读取历史失败: %v", err)
		httptransport.RespondFailure(c, http.StatusInternalServerError, "Failed to load history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": prompts})
}

func (s *Service) handleHistoryDelete(c *gin.Context) {
	if err := s.opts.History.Clear(c.Request.Context()); err != nil {
		s.logger.ErrorTag("历史", "清空历史失败: %v", err)
		httptransport.RespondFailure(c, http.StatusInternalServerError, "Failed to clear history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": []string{}})
}

func (s *Service) handleTopPrompts(c *gin.Context) {
	prompts := s.opts.TopPrompts
	if prompts == nil {
		prompts = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"prompts": prompts})
}
