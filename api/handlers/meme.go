package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/memegate/api"
	"github.com/BaSui01/memegate/llm/image"
	"github.com/BaSui01/memegate/types"
)

// =============================================================================
// 🖼️ 表情包生成 Handler
// =============================================================================

const (
	defaultMaxBodyBytes  = 50 << 20
	defaultMaxImageBytes = 10 << 20
	multipartMemory      = 32 << 20
)

// ProviderObserver 接收每次上游调用的结果，用于指标统计
type ProviderObserver interface {
	RecordProviderRequest(provider, model, outcome string, duration time.Duration)
	RecordNormalizationFailure(provider, reason string)
}

// MemeHandlerConfig 网关的请求限制与 prompt 策略
type MemeHandlerConfig struct {
	MaxBodyBytes  int64
	MaxImageBytes int64
	EnhancePrompt bool
}

// MemeHandler 实现 POST /api/generate-meme：校验请求、调用提供者、归一化响应。
// 每个请求独立处理，处理器本身无可变状态。
type MemeHandler struct {
	provider image.Provider
	observer ProviderObserver
	cfg      MemeHandlerConfig
	logger   *zap.Logger
}

// NewMemeHandler 创建表情包生成处理器，observer 可以为 nil
func NewMemeHandler(provider image.Provider, cfg MemeHandlerConfig, observer ProviderObserver, logger *zap.Logger) *MemeHandler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = defaultMaxImageBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemeHandler{
		provider: provider,
		observer: observer,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "meme_handler")),
	}
}

// HandleGenerate 处理 /api/generate-meme
// @Summary 生成表情包
// @Tags 表情包
// @Accept json,mpfd
// @Produce json
// @Success 200 {object} image.Result
// @Failure 400 {object} api.ErrorResponse
// @Failure 500 {object} api.ErrorResponse
// @Router /api/generate-meme [post]
func (h *MemeHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrMethodNotAllowed, "Method not allowed", h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)

	req, gwErr := h.parseRequest(r)
	if gwErr != nil {
		WriteError(w, gwErr, h.logger)
		return
	}

	if req.ImageData == "" || req.Prompt == "" {
		WriteError(w, types.NewInvalidRequestError("Missing imageData or prompt"), h.logger)
		return
	}

	if !h.provider.Configured() {
		WriteError(w, types.NewError(types.ErrConfig, "API key not configured").
			WithHTTPStatus(http.StatusInternalServerError).
			WithProvider(h.provider.Name()), h.logger)
		return
	}

	genReq, gwErr := h.buildGenerateRequest(req)
	if gwErr != nil {
		WriteError(w, gwErr, h.logger)
		return
	}

	result, err := h.generate(r, genReq)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

func (h *MemeHandler) parseRequest(r *http.Request) (*api.GenerateMemeRequest, *types.Error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return h.parseMultipart(r)
	}

	var req api.GenerateMemeRequest
	if err := DecodeJSONBody(r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// parseMultipart 接受 file 上传字段，或 imageData 文本字段
func (h *MemeHandler) parseMultipart(r *http.Request) (*api.GenerateMemeRequest, *types.Error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isBodyTooLarge(err) {
			return nil, types.NewError(types.ErrPayloadTooLarge, "Request body too large").WithCause(err)
		}
		return nil, types.NewInvalidRequestError("Invalid multipart form").WithCause(err)
	}

	req := &api.GenerateMemeRequest{
		ImageData: r.FormValue("imageData"),
		Prompt:    r.FormValue("prompt"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return req, nil
	case err != nil:
		return nil, types.NewInvalidRequestError("Invalid file upload").WithCause(err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxImageBytes+1))
	if err != nil {
		return nil, types.NewInvalidRequestError("Invalid file upload").WithCause(err)
	}
	if len(data) == 0 {
		return nil, types.NewInvalidRequestError("Empty file")
	}
	if int64(len(data)) > h.cfg.MaxImageBytes {
		return nil, h.tooLarge()
	}

	declared, _, _ := mime.ParseMediaType(header.Header.Get("Content-Type"))
	mimeType := image.DetectMimeType(data, declared)
	req.ImageData = "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return req, nil
}

func (h *MemeHandler) buildGenerateRequest(req *api.GenerateMemeRequest) (*image.GenerateRequest, *types.Error) {
	payload, declared := image.StripDataURL(req.ImageData)
	if payload == "" {
		return nil, types.NewInvalidRequestError("Empty image data")
	}
	data, err := image.DecodeImage(payload)
	if err != nil {
		return nil, types.NewInvalidRequestError("Invalid image data: expected base64").WithCause(err)
	}
	if int64(len(data)) > h.cfg.MaxImageBytes {
		return nil, h.tooLarge()
	}

	return &image.GenerateRequest{
		ImageData: payload,
		MimeType:  image.DetectMimeType(data, declared),
		Prompt:    image.BuildPrompt(req.Prompt, h.cfg.EnhancePrompt),
	}, nil
}

func (h *MemeHandler) tooLarge() *types.Error {
	return types.NewInvalidRequestError(fmt.Sprintf("File too large. Maximum size is %s", formatBytes(h.cfg.MaxImageBytes)))
}

// generate 调用提供者并归一化，不做任何重试
func (h *MemeHandler) generate(r *http.Request, req *image.GenerateRequest) (*image.Result, error) {
	name, model := h.provider.Name(), h.provider.Model()

	start := time.Now()
	raw, err := h.provider.Generate(r.Context(), req)
	elapsed := time.Since(start)

	if err != nil {
		h.observe(name, model, outcomeOf(err), elapsed)
		return nil, err
	}

	result, err := image.Normalize(h.provider.Kind(), raw.Body)
	if err != nil {
		h.observe(name, model, outcomeOf(err), elapsed)
		if h.observer != nil {
			h.observer.RecordNormalizationFailure(name, image.NormalizeReason(err))
		}
		if gwErr, ok := types.AsError(err); ok {
			gwErr.WithProvider(name)
		}
		return nil, err
	}

	h.observe(name, model, "success", elapsed)
	reqID, _ := types.RequestID(r.Context())
	h.logger.Debug("meme generated",
		zap.String("request_id", reqID),
		zap.String("provider", name),
		zap.String("model", model),
		zap.Duration("upstream_latency", elapsed))
	return result, nil
}

func (h *MemeHandler) observe(provider, model, outcome string, d time.Duration) {
	if h.observer != nil {
		h.observer.RecordProviderRequest(provider, model, outcome, d)
	}
}

// outcomeOf 把错误折叠成低基数的指标标签
func outcomeOf(err error) string {
	code := types.GetErrorCode(err)
	if code == "" {
		code = types.ErrInternalError
	}
	return strings.ToLower(string(code))
}

func formatBytes(n int64) string {
	const mb = 1 << 20
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
