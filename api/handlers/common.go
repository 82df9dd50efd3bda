package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/memegate/api"
	"github.com/BaSui01/memegate/types"
)

// =============================================================================
// 🎯 响应辅助函数
// =============================================================================

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	// 编码失败时响应头已写出，无法再改状态码
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError 写入 {"error": message} 响应。
// 非 *types.Error 的错误按 500 处理，消息取 err.Error()，为空时回退到通用文案。
func WriteError(w http.ResponseWriter, err error, logger *zap.Logger) {
	gwErr := asGatewayError(err)
	status := gwErr.Status()

	if logger != nil {
		fields := []zap.Field{
			zap.String("code", string(gwErr.Code)),
			zap.String("message", gwErr.Message),
			zap.Int("status", status),
		}
		if gwErr.Provider != "" {
			fields = append(fields, zap.String("provider", gwErr.Provider))
		}
		if gwErr.Cause != nil {
			fields = append(fields, zap.Error(gwErr.Cause))
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Warn("request failed", fields...)
		}
	}

	WriteJSON(w, status, api.ErrorResponse{Error: gwErr.Message})
}

// WriteErrorMessage 写入简单错误消息
func WriteErrorMessage(w http.ResponseWriter, status int, code types.ErrorCode, message string, logger *zap.Logger) {
	WriteError(w, types.NewError(code, message).WithHTTPStatus(status), logger)
}

func asGatewayError(err error) *types.Error {
	if gwErr, ok := types.AsError(err); ok {
		return gwErr
	}
	msg := ""
	if err != nil {
		msg = strings.TrimSpace(err.Error())
	}
	return types.NewInternalError(msg).WithCause(err)
}

// =============================================================================
// 🛡️ 请求验证辅助函数
// =============================================================================

// DecodeJSONBody 解码 JSON 请求体。请求体超过 MaxBytesReader 上限时返回 413。
// 调用方负责写出返回的错误。
func DecodeJSONBody(r *http.Request, dst any) *types.Error {
	if r.Body == nil || r.Body == http.NoBody {
		return types.NewInvalidRequestError("Invalid JSON body")
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if isBodyTooLarge(err) {
			return types.NewError(types.ErrPayloadTooLarge, "Request body too large").WithCause(err)
		}
		return types.NewInvalidRequestError("Invalid JSON body").WithCause(err)
	}
	return nil
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	// multipart 解析不总是保留错误链
	return err != nil && strings.Contains(err.Error(), "request body too large")
}

// =============================================================================
// 📊 响应包装器（用于捕获状态码）
// =============================================================================

// ResponseWriter 包装 http.ResponseWriter 以捕获状态码
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
	Written    bool
}

// NewResponseWriter 创建新的 ResponseWriter
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader 重写 WriteHeader 以捕获状态码
func (rw *ResponseWriter) WriteHeader(code int) {
	if !rw.Written {
		rw.StatusCode = code
		rw.Written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write 重写 Write 以标记已写入
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.Written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Flush 透传给底层 Flusher
func (rw *ResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
