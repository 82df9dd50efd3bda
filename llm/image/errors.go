package image

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/BaSui01/memegate/types"
)

// defaultUpstreamMessage is reported when the upstream error body carries nothing usable.
const defaultUpstreamMessage = "Failed to generate image"

const (
	authHint  = "Check that the image provider API key is configured correctly"
	modelHint = "Check the configured model name and endpoint"
)

// ExtractErrorMessage 从上游错误响应中提取可读的错误消息。
// 依次尝试 error.message、字符串形式的 error、顶层 message，最后回退到默认文案。
func ExtractErrorMessage(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return defaultUpstreamMessage
	}

	if len(payload.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
		var flat string
		if err := json.Unmarshal(payload.Error, &flat); err == nil && flat != "" {
			return flat
		}
	}
	if payload.Message != "" {
		return payload.Message
	}
	return defaultUpstreamMessage
}

// MapUpstreamError 将上游非 2xx 响应映射为 *types.Error。
// 鉴权类失败统一重映射为 403，模型不可用重映射为 400，其余保留上游状态码。
func MapUpstreamError(status int, body []byte, provider string) *types.Error {
	msg := ExtractErrorMessage(body)
	lower := strings.ToLower(msg)

	switch {
	case isAuthFailure(status, lower):
		return types.NewError(types.ErrForbidden, withHint(msg, authHint)).
			WithHTTPStatus(http.StatusForbidden).
			WithProvider(provider)
	case isModelFailure(status, lower):
		return types.NewError(types.ErrModelNotFound, withHint(msg, modelHint)).
			WithHTTPStatus(http.StatusBadRequest).
			WithProvider(provider)
	default:
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return types.NewError(types.ErrUpstreamError, msg).
			WithHTTPStatus(status).
			WithProvider(provider)
	}
}

func isAuthFailure(status int, lowerMsg string) bool {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return true
	}
	for _, needle := range []string{"api key", "api_key", "apikey", "permission", "unauthenticated", "unauthorized"} {
		if strings.Contains(lowerMsg, needle) {
			return true
		}
	}
	return false
}

func isModelFailure(status int, lowerMsg string) bool {
	if status == http.StatusNotFound {
		return true
	}
	if !strings.Contains(lowerMsg, "model") {
		return false
	}
	return strings.Contains(lowerMsg, "not found") ||
		strings.Contains(lowerMsg, "not supported") ||
		strings.Contains(lowerMsg, "does not exist")
}

func withHint(msg, hint string) string {
	msg = strings.TrimRight(strings.TrimSpace(msg), ".")
	if msg == "" {
		return hint + "."
	}
	return msg + ". " + hint + "."
}

// mapTransportError classifies a failed round trip. parent is the caller's context,
// used to tell client cancellation apart from our own outbound deadline.
func mapTransportError(parent context.Context, err error, provider string) *types.Error {
	redactURLError(err)

	if errors.Is(parent.Err(), context.Canceled) {
		return types.NewError(types.ErrCanceled, "Request canceled").
			WithCause(err).
			WithProvider(provider)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return types.NewError(types.ErrUpstreamTimeout, "Image provider timed out").
			WithCause(err).
			WithProvider(provider)
	}

	return types.NewInternalError("").WithCause(err).WithProvider(provider)
}

// redactURLError strips the query string from *url.Error so keys passed as
// ?key= never reach logs.
func redactURLError(err error) {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return
	}
	if i := strings.IndexByte(uerr.URL, '?'); i >= 0 {
		uerr.URL = uerr.URL[:i]
	}
}
