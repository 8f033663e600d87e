package publish

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arth-1/socialpost/internal/domain/eventbus/repository"
	"github.com/arth-1/socialpost/internal/domain/instagram"
	"github.com/arth-1/socialpost/internal/platform/errors"
	httptransport "github.com/arth-1/socialpost/internal/transport/http"
	"github.com/arth-1/socialpost/internal/utils"
)

const (
	msgMethodNotAllowed = "Method not allowed"
	msgMissingFields    = "Missing image or caption"
	msgPublishFailed    = "Failed to post to Instagram"
)

// Publisher is the part of the Instagram domain the handler needs.
type Publisher interface {
	Publish(ctx context.Context, req instagram.PublishRequest) (*instagram.PublishResult, error)
}

// Request is the JSON body of POST /api/postToInstagram.
type Request struct {
	ImageURL  string `json:"imageUrl"`
	Caption   string `json:"caption"`
	InstaUser string `json:"instaUser"`
	InstaPass string `json:"instaPass"`
}

// Response is the success body.
type Response struct {
	Success bool   `json:"success"`
	MediaID string `json:"mediaId"`
}

// Service Instagram 发布接口
type Service struct {
	publisher Publisher
	audit     repository.PublishRepository
	logger    *utils.Logger
}

// NewService audit may be nil when storage is disabled.
func NewService(publisher Publisher, audit repository.PublishRepository, logger *utils.Logger) (*Service, error) {
	if publisher == nil {
		return nil, errors.New(errors.KindConfig, "publish.new", "publisher is required")
	}
	if logger == nil {
		logger = utils.DefaultLogger
	}
	return &Service{publisher: publisher, audit: audit, logger: logger}, nil
}

// Register 注册发布相关的HTTP路由
func (s *Service) Register(api, secured *gin.RouterGroup) {
	secured.Any("/postToInstagram", s.handlePost)
	if s.audit != nil {
		api.GET("/publishes", s.handleRecent)
		api.GET("/publishes/stats", s.handleStats)
	}
	s.logger.InfoTag("HTTP", "发布服务路由注册完成")
}

func (s *Service) handlePost(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		httptransport.RespondError(c, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.WarnTag("Instagram", "请求体解析失败: %v", err)
		httptransport.RespondError(c, http.StatusBadRequest, msgMissingFields)
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" || strings.TrimSpace(req.Caption) == "" {
		httptransport.RespondError(c, http.StatusBadRequest, msgMissingFields)
		return
	}

	result, err := s.publisher.Publish(c.Request.Context(), instagram.PublishRequest{
		Image:    req.ImageURL,
		Caption:  req.Caption,
		Username: req.InstaUser,
		Password: req.InstaPass,
	})
	if err != nil {
		s.logger.ErrorTag("Instagram", "Error posting to Instagram: [%s] %v", errors.KindOf(err), err)
		httptransport.RespondFailure(c, http.StatusInternalServerError, msgPublishFailed, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, MediaID: result.MediaID})
}

func (s *Service) handleRecent(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		httptransport.RespondError(c, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}
	records, err := s.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		s.logger.ErrorTag("审计", "读取发布记录失败: %v", err)
		httptransport.RespondFailure(c, http.StatusInternalServerError, "Failed to load publish history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"publishes": records})
}

func (s *Service) handleStats(c *gin.Context) {
	stats, err := s.audit.Stats(c.Request.Context())
	if err != nil {
		s.logger.ErrorTag("审计", "统计发布记录失败: %v", err)
		httptransport.RespondFailure(c, http.StatusInternalServerError, "Failed to load publish stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
