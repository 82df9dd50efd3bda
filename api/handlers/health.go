package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/memegate/api"
	"github.com/BaSui01/memegate/llm/image"
	"github.com/BaSui01/memegate/types"
)

// =============================================================================
// 🏥 健康检查 Handler
// =============================================================================

// HealthHandler 健康检查处理器
type HealthHandler struct {
	logger *zap.Logger
	checks []HealthCheck
	mu     sync.RWMutex
}

// HealthCheck 健康检查接口
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		logger: logger,
		checks: make([]HealthCheck, 0),
	}
}

// RegisterCheck 注册健康检查
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleHealth 处理 /health 请求，不依赖上游与配置，始终返回 {"status":"ok"}
// @Summary 健康检查
// @Tags 健康
// @Produce json
// @Success 200 {object} api.HealthResponse
// @Router /health [get]
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

// HandleHealthz 处理 /healthz 请求（Kubernetes 风格）
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

// HandleReady 处理 /ready 请求（就绪检查）
// @Summary 准备情况检查
// @Tags 健康
// @Produce json
// @Success 200 {object} api.ReadinessResponse "服务已准备就绪"
// @Failure 503 {object} api.ReadinessResponse "服务尚未准备好"
// @Router /ready [get]
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.RLock()
	checks := make([]HealthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := api.ReadinessResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Checks:    make(map[string]api.CheckResult),
	}

	allHealthy := true
	for _, check := range checks {
		start := time.Now()
		err := check.Check(ctx)
		latency := time.Since(start)

		result := api.CheckResult{
			Status:  "pass",
			Latency: latency.String(),
		}

		if err != nil {
			result.Status = "fail"
			result.Message = err.Error()
			allHealthy = false

			h.logger.Warn("readiness check failed",
				zap.String("check", check.Name()),
				zap.Error(err),
				zap.Duration("latency", latency),
			)
		}

		status.Checks[check.Name()] = result
	}

	if !allHealthy {
		status.Status = "not_ready"
		WriteJSON(w, http.StatusServiceUnavailable, status)
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// HandleVersion 处理 /version 请求
func (h *HealthHandler) HandleVersion(version, buildTime, gitCommit string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, api.VersionResponse{
			Version:   version,
			BuildTime: buildTime,
			GitCommit: gitCommit,
		})
	}
}

// HandleInfo 处理根路径，其余未注册路径返回 JSON 404
func (h *HealthHandler) HandleInfo(info api.InfoResponse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			WriteErrorMessage(w, http.StatusNotFound, types.ErrInvalidRequest, "Not found", nil)
			return
		}
		WriteJSON(w, http.StatusOK, info)
	}
}

// =============================================================================
// 🔧 内置健康检查实现
// =============================================================================

// ProviderKeyCheck 在提供者缺少 API Key 时报告未就绪
type ProviderKeyCheck struct {
	provider image.Provider
}

// NewProviderKeyCheck 创建提供者配置检查
func NewProviderKeyCheck(p image.Provider) *ProviderKeyCheck {
	return &ProviderKeyCheck{provider: p}
}

func (c *ProviderKeyCheck) Name() string {
	return "provider:" + c.provider.Name()
}

func (c *ProviderKeyCheck) Check(ctx context.Context) error {
	if !c.provider.Configured() {
		return errors.New("API key not configured")
	}
	return nil
}
