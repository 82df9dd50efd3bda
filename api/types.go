package api

import "time"

// =============================================================================
// 表情包生成
// =============================================================================

// GenerateMemeRequest 是 POST /api/generate-meme 的 JSON 请求体。
// ImageData 可以是裸 base64，也可以带 data:<mime>;base64, 前缀。
type GenerateMemeRequest struct {
	ImageData string `json:"imageData"`
	Prompt    string `json:"prompt"`
}

// ErrorResponse 是所有失败响应的统一结构。
type ErrorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// 健康与服务信息
// =============================================================================

// HealthResponse 是 /health 与 /healthz 的响应。
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse 是 /ready 的响应。
type ReadinessResponse struct {
	Status    string                 `json:"status"` // "ready", "not_ready"
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult 单个就绪检查结果
type CheckResult struct {
	Status  string `json:"status"` // "pass", "fail"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// VersionResponse 是 /version 的响应。
type VersionResponse struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// InfoResponse 是根路径返回的服务信息。
type InfoResponse struct {
	Service   string   `json:"service"`
	Version   string   `json:"version"`
	Provider  string   `json:"provider"`
	Model     string   `json:"model"`
	Endpoints []string `json:"endpoints"`
}
