package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	domainai "github.com/arth-1/socialpost/internal/domain/ai"
	domainauth "github.com/arth-1/socialpost/internal/domain/auth"
	"github.com/arth-1/socialpost/internal/domain/eventbus"
	"github.com/arth-1/socialpost/internal/domain/eventbus/infrastructure"
	"github.com/arth-1/socialpost/internal/domain/eventbus/repository"
	"github.com/arth-1/socialpost/internal/domain/history"
	historystore "github.com/arth-1/socialpost/internal/domain/history/store"
	domainimage "github.com/arth-1/socialpost/internal/domain/image"
	"github.com/arth-1/socialpost/internal/domain/instagram"
	platformconfig "github.com/arth-1/socialpost/internal/platform/config"
	platformerrors "github.com/arth-1/socialpost/internal/platform/errors"
	platformlogging "github.com/arth-1/socialpost/internal/platform/logging"
	platformobservability "github.com/arth-1/socialpost/internal/platform/observability"
	platformstorage "github.com/arth-1/socialpost/internal/platform/storage"
	httptransport "github.com/arth-1/socialpost/internal/transport/http"
	httppublish "github.com/arth-1/socialpost/internal/transport/http/publish"
	httpstudio "github.com/arth-1/socialpost/internal/transport/http/studio"
	httpsystem "github.com/arth-1/socialpost/internal/transport/http/system"
	"github.com/arth-1/socialpost/internal/utils"
)

// Version is set at build time with -ldflags.
var Version = "dev"

const shutdownTimeout = 15 * time.Second

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	loader                *platformconfig.Loader
	config                *platformconfig.Config
	configPath            string
	logProvider           *platformlogging.Logger
	logger                *utils.Logger
	slogger               *slog.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	db                    *gorm.DB
	events                *eventbus.AsyncEventBus
	audit                 repository.PublishRepository
	history               *history.Service
	improver              *domainai.PromptImprover
	generator             *domainai.ImageGenerator
	pipeline              *domainimage.Pipeline
	compressor            *domainimage.Compressor
	fetcher               *instagram.RemoteFetcher
	publisher             *instagram.Publisher
	authToken             *domainauth.AuthToken
}

// Run 启动整个服务生命周期，负责加载配置、初始化依赖和优雅关停。
func Run(ctx context.Context) error {
	return RunWithLoader(ctx, nil)
}

// RunWithLoader is Run with a custom configuration loader; nil uses the
// default search paths.
func RunWithLoader(ctx context.Context, loader *platformconfig.Loader) error {
	state := &appState{loader: loader}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		state.close(context.Background())
		return err
	}

	logger := state.logger
	logBootstrapGraph(logger, steps)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		state.close(context.Background())
		return fmt.Errorf("启动 Http 服务失败: %w", err)
	}
	logger.InfoTag("引导", "服务已成功启动")

	err := waitForShutdown(signalCtx, groupCtx, cancel, logger, group)
	state.close(context.Background())
	return err
}

// close releases resources in reverse initialisation order. It tolerates a
// partially initialised state.
func (s *appState) close(ctx context.Context) {
	if s.publisher != nil {
		s.publisher.Wait()
	}
	if s.events != nil {
		s.events.Stop()
	}
	if s.history != nil {
		if err := s.history.Close(ctx); err != nil {
			s.logger.WarnTag("历史", "历史存储未正常关闭: %v", err)
		}
	}
	if s.db != nil {
		if err := platformstorage.Close(s.db); err != nil {
			s.logger.WarnTag("存储", "数据库未正常关闭: %v", err)
		}
	}
	if shutdown := s.observabilityShutdown; shutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			s.logger.WarnTag("引导", "可观测性未正常关闭: %v", err)
		}
	}
	if s.logProvider != nil {
		_ = s.logProvider.Close()
	}
}

func logBootstrapGraph(logger *utils.Logger, steps []initStep) {
	if logger == nil {
		return
	}
	logger.InfoTag("引导", "初始化依赖关系概览")
	for _, step := range steps {
		deps := "-"
		if len(step.DependsOn) > 0 {
			deps = strings.Join(step.DependsOn, ", ")
		}
		logger.InfoTag("引导", "%s (%s) <- %s", step.ID, step.Title, deps)
	}
	logger.InfoTag("引导", "启动服务")
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Initialise database",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "events:init-bus",
			Title:     "Initialise event bus and audit handler",
			DependsOn: []string{"storage:init-database"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventsStep,
		},
		{
			ID:        "history:init-store",
			Title:     "Initialise prompt history",
			DependsOn: []string{"storage:init-database", "events:init-bus"},
			Kind:      platformerrors.KindStorage,
			Execute:   initHistoryStep,
		},
		{
			ID:        "image:init-compressor",
			Title:     "Initialise image pipeline and compressor",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initImageStep,
		},
		{
			ID:        "instagram:init-publisher",
			Title:     "Initialise Instagram publisher",
			DependsOn: []string{"image:init-compressor", "events:init-bus"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initPublisherStep,
		},
		{
			ID:        "ai:init-models",
			Title:     "Initialise prompt and image models",
			DependsOn: []string{"instagram:init-publisher"},
			Kind:      platformerrors.KindConfig,
			Execute:   initAIStep,
		},
		{
			ID:        "auth:init-tokens",
			Title:     "Initialise API token verifier",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindConfig,
			Execute:   initAuthStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	loader := state.loader
	if loader == nil {
		loader = platformconfig.NewLoader()
	}
	result, err := loader.Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logProvider, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}

	state.logProvider = logProvider
	state.logger = logProvider.Legacy()
	state.slogger = logProvider.Slog()
	utils.DefaultLogger = state.logger

	state.logger.InfoTag(
		"引导",
		"日志模块就绪 [%s] %s",
		state.config.Log.Level,
		state.configPath,
	)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	cfg := platformobservability.Config{
		Enabled: state.config.Observability.Enabled || strings.EqualFold(state.config.Log.Level, "debug"),
	}

	shutdown, err := platformobservability.Setup(ctx, cfg, state.slogger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func initDatabaseStep(_ context.Context, state *appState) error {
	if !state.config.Storage.Enabled {
		state.logger.InfoTag("存储", "SQLite 存储未启用，发布审计仅写日志")
		return nil
	}
	db, err := platformstorage.Open(platformstorage.Config{DSN: state.config.Storage.DSN})
	if err != nil {
		return err
	}
	state.db = db
	state.logger.InfoTag("存储", "数据库就绪: %s", state.config.Storage.DSN)
	return nil
}

func initEventsStep(ctx context.Context, state *appState) error {
	bus := eventbus.NewAsyncEventBus(4).WithLogger(state.logger)
	bus.Start()
	state.events = bus

	if state.db != nil {
		state.audit = infrastructure.NewPublishRepository(state.db)
		pruneAudit(ctx, state)
	}
	handler := eventbus.NewAuditHandler(state.audit, state.logger)
	if err := eventbus.SetupEventHandlers(bus, handler); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "events:init-bus", "failed to subscribe audit handler", err)
	}
	return nil
}

// pruneAudit drops publish records older than storage.audit_retention.
// A failure is logged and does not block startup.
func pruneAudit(ctx context.Context, state *appState) {
	retention := state.config.Storage.AuditRetention
	if retention <= 0 {
		return
	}
	removed, err := state.audit.DeleteBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		state.logger.WarnTag("审计", "清理过期发布记录失败: %v", err)
		return
	}
	if removed > 0 {
		state.logger.InfoTag("审计", "已清理 %d 条超过 %s 的发布记录", removed, retention)
	}
}

func initHistoryStep(_ context.Context, state *appState) error {
	cfg := state.config.History
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	storeCfg := historystore.Config{Driver: driver}
	if driver == historystore.DriverRedis {
		storeCfg.Redis = &historystore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		}
	}

	s, err := historystore.New(storeCfg, historystore.Dependencies{SQLiteDB: state.db})
	if err != nil {
		return err
	}
	state.history = history.NewService(s, cfg.Limit, state.events, state.logger)
	state.logger.InfoTag("历史", "提示词历史就绪 [%s]，上限 %d 条", storeCfg.Driver, state.history.Limit())
	return nil
}

func initImageStep(_ context.Context, state *appState) error {
	state.pipeline = domainimage.NewPipeline(domainimage.PipelineOptions{
		Security: state.config.Security,
		Logger:   state.logger,
	})
	c := state.config.Compression
	state.compressor = domainimage.NewCompressor(domainimage.Options{
		MaxDimension:     c.MaxDimension,
		InitialQuality:   c.InitialQuality,
		MinQuality:       c.MinQuality,
		QualityStep:      c.QualityStep,
		DefaultMaxSizeKB: c.DefaultMaxSizeKB,
	}, state.pipeline, state.logger)
	return nil
}

func initPublisherStep(_ context.Context, state *appState) error {
	cfg := state.config.Instagram
	state.fetcher = instagram.NewRemoteFetcher(cfg.RequestTimeout, cfg.MaxImageBytes, state.logger)
	state.publisher = instagram.NewPublisher(instagram.Options{
		Config:     cfg,
		Fetcher:    state.fetcher,
		Pipeline:   state.pipeline,
		Compressor: state.compressor,
		Events:     state.events,
		Logger:     state.logger,
	})
	if cfg.Username == "" || cfg.Password == "" {
		state.logger.WarnTag("Instagram", "未配置默认 Instagram 账号，请求需自带 instaUser/instaPass")
	}
	return nil
}

// initAIStep leaves a model unset when it cannot be built; the matching
// endpoint then answers 503 instead of failing startup.
func initAIStep(_ context.Context, state *appState) error {
	text, err := domainai.SelectedText(state.config, state.logger)
	if err != nil {
		state.logger.WarnTag("AI", "提示词优化不可用: %v", err)
	} else {
		state.improver = domainai.NewPromptImprover(text, state.logger)
	}

	img, err := domainai.SelectedImage(state.config, state.logger)
	if err != nil {
		state.logger.WarnTag("AI", "图片生成不可用: %v", err)
	} else {
		state.generator = domainai.NewImageGenerator(img, state.fetcher, state.logger)
	}
	return nil
}

func initAuthStep(_ context.Context, state *appState) error {
	authCfg := state.config.Server.Auth
	if !authCfg.Enabled {
		return nil
	}
	if state.config.Server.Token == platformconfig.DefaultConfig().Server.Token {
		state.logger.WarnTag("认证", "server.token 仍为默认值，请尽快修改")
	}
	token, err := domainauth.NewAuthToken(state.config.Server.Token, authCfg.Issuer)
	if err != nil {
		return err
	}
	state.authToken = token.WithTTL(authCfg.Expiry)
	return nil
}

// buildRouter registers every service on a fresh engine.
func buildRouter(state *appState) (*httptransport.Router, error) {
	var authMiddleware gin.HandlerFunc
	if state.authToken != nil {
		authMiddleware = domainauth.Middleware(state.authToken, state.logger)
	}

	router, err := httptransport.Build(httptransport.Options{
		Config:         state.config,
		Logger:         state.logger,
		AuthMiddleware: authMiddleware,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:build-router", "failed to build router", err)
	}

	publishService, err := httppublish.NewService(state.publisher, state.audit, state.logger)
	if err != nil {
		return nil, err
	}
	studioOpts := httpstudio.Options{
		Compressor: state.compressor,
		History:    state.history,
		TopPrompts: state.config.TopPrompts,
		Logger:     state.logger,
	}
	// typed nils must not leak into the interfaces
	if state.improver != nil {
		studioOpts.Improver = state.improver
	}
	if state.generator != nil {
		studioOpts.Generator = state.generator
	}
	studioService, err := httpstudio.NewService(studioOpts)
	if err != nil {
		return nil, err
	}

	publishService.Register(router.API, router.Secured)
	studioService.Register(router.API, router.Secured)
	httpsystem.NewService(Version, nil, state.logger).Register(router.API)
	return router, nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	router, err := buildRouter(state)
	if err != nil {
		return nil, err
	}
	config := state.config
	logger := state.logger

	addr := net.JoinHostPort(config.Server.IP, strconv.Itoa(config.Server.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "Gin 服务已启动，访问地址 http://%s", addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "HTTP 服务关闭失败: %v", err)
			} else {
				logger.InfoTag("HTTP", "HTTP 服务已优雅关闭")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "HTTP 服务启动失败: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

// waitForShutdown returns when a signal arrives or a server goroutine
// fails, then waits for the group within shutdownTimeout.
func waitForShutdown(
	signalCtx context.Context,
	groupCtx context.Context,
	cancel context.CancelFunc,
	logger *utils.Logger,
	g *errgroup.Group,
) error {
	select {
	case <-signalCtx.Done():
		logger.InfoTag("引导", "收到系统信号 %v，正在进行资源清理", context.Cause(signalCtx))
	case <-groupCtx.Done():
		logger.WarnTag("引导", "服务异常退出，正在进行资源清理")
	}

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("引导", "服务关闭过程中出现错误: %v", err)
			return err
		}
		logger.InfoTag("引导", "所有服务已成功关闭")
	case <-time.After(shutdownTimeout):
		logger.ErrorTag("引导", "服务关闭超时，已强制退出")
		return errors.New("服务关闭超时")
	}
	return nil
}
