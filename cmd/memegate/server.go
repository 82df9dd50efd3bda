package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/memegate/api"
	"github.com/BaSui01/memegate/api/handlers"
	"github.com/BaSui01/memegate/config"
	"github.com/BaSui01/memegate/internal/metrics"
	"github.com/BaSui01/memegate/internal/server"
	"github.com/BaSui01/memegate/internal/telemetry"
	"github.com/BaSui01/memegate/llm/image"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 持有网关的全部运行时组件：提供者、handlers、指标与两个监听端口
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	otel   *telemetry.Providers

	// Prometheus 命名空间
	namespace string

	httpManager    *server.Manager
	metricsManager *server.Manager

	provider      image.Provider
	memeHandler   *handlers.MemeHandler
	healthHandler *handlers.HealthHandler

	metricsCollector *metrics.Collector
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) *Server {
	return &Server{
		cfg:       cfg,
		logger:    logger,
		otel:      otelProviders,
		namespace: "memegate",
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start builds the handler chain and starts the API and metrics listeners.
func (s *Server) Start() error {
	handler, err := s.buildHandler()
	if err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	if err := s.startHTTPServer(handler); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if err := s.startMetricsServer(); err != nil {
		_ = s.httpManager.Shutdown(context.Background())
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("provider", s.provider.Name()),
		zap.String("model", s.provider.Model()),
		zap.Bool("api_key_configured", s.provider.Configured()),
	)
	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

func (s *Server) initProvider() error {
	providerCfg, err := s.cfg.ImageProviderConfig()
	if err != nil {
		return err
	}
	provider, err := image.NewProvider(providerCfg, image.WithLogger(s.logger))
	if err != nil {
		return err
	}
	s.provider = provider

	if !provider.Configured() {
		// 保持启动，请求时返回 500 "API key not configured"
		s.logger.Warn("image provider API key not configured",
			zap.String("provider", provider.Name()))
	}
	return nil
}

func (s *Server) initHandlers() {
	s.metricsCollector = metrics.NewCollector(s.namespace, s.logger)

	s.memeHandler = handlers.NewMemeHandler(s.provider, handlers.MemeHandlerConfig{
		MaxBodyBytes:  s.cfg.Server.MaxBodyBytes,
		MaxImageBytes: s.cfg.Provider.MaxImageBytes,
		EnhancePrompt: s.cfg.Provider.EnhancePrompt,
	}, s.metricsCollector, s.logger)

	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.NewProviderKeyCheck(s.provider))
}

// buildHandler wires routes and the middleware chain.
func (s *Server) buildHandler() (http.Handler, error) {
	if err := s.initProvider(); err != nil {
		return nil, err
	}
	s.initHandlers()

	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// 网关：方法检查在 handler 内完成，保证非 POST 返回 JSON 405
	mux.HandleFunc("/api/generate-meme", s.memeHandler.HandleGenerate)

	mux.HandleFunc("/", s.healthHandler.HandleInfo(api.InfoResponse{
		Service:   "memegate",
		Version:   Version,
		Provider:  s.provider.Name(),
		Model:     s.provider.Model(),
		Endpoints: []string{"POST /api/generate-meme", "GET /health", "GET /healthz", "GET /ready", "GET /version"},
	}))

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		MetricsMiddleware(s.metricsCollector),
		RequestLogger(s.logger),
		CORS(s.cfg.CORS.AllowedOrigins),
	), nil
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

func (s *Server) startHTTPServer(handler http.Handler) error {
	serverConfig := server.Config{
		Name:            "api",
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)
	return s.httpManager.Start()
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

func (s *Server) startMetricsServer() error {
	if s.cfg.Server.MetricsPort == 0 {
		s.logger.Info("Metrics server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Name:            "metrics",
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.ReadTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)
	return s.metricsManager.Start()
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown blocks until a signal, ctx cancellation or an API server failure.
func (s *Server) WaitForShutdown(ctx context.Context) error {
	if s.httpManager == nil {
		return nil
	}
	return s.httpManager.WaitForShutdown(ctx)
}

// Shutdown stops both listeners in parallel, then flushes telemetry.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Starting graceful shutdown...")

	if s.cfg.Server.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range []*server.Manager{s.httpManager, s.metricsManager} {
		if m == nil {
			continue
		}
		g.Go(func() error {
			return m.Shutdown(gctx)
		})
	}
	err := g.Wait()

	if otelErr := s.otel.Shutdown(ctx); otelErr != nil {
		s.logger.Error("telemetry shutdown error", zap.Error(otelErr))
	}

	if err != nil {
		return err
	}
	s.logger.Info("Graceful shutdown completed")
	return nil
}
