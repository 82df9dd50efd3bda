package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/memegate/api"
	"github.com/BaSui01/memegate/llm/image"
	"github.com/BaSui01/memegate/types"
)

// =============================================================================
// 🧪 测试辅助类型
// =============================================================================

// fakeProvider 记录收到的请求并返回预设结果
type fakeProvider struct {
	kind       image.ProviderKind
	configured bool
	body       string
	err        error

	mu    sync.Mutex
	calls []*image.GenerateRequest
}

func (f *fakeProvider) Generate(_ context.Context, req *image.GenerateRequest) (*image.RawResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &image.RawResponse{StatusCode: http.StatusOK, Body: []byte(f.body)}, nil
}

func (f *fakeProvider) Kind() image.ProviderKind { return f.kind }
func (f *fakeProvider) Name() string             { return string(f.kind) }
func (f *fakeProvider) Model() string            { return "test-model" }
func (f *fakeProvider) Configured() bool         { return f.configured }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type observation struct {
	provider, model, outcome string
}

type recordingObserver struct {
	mu        sync.Mutex
	requests  []observation
	normFails []string
}

func (o *recordingObserver) RecordProviderRequest(provider, model, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, observation{provider, model, outcome})
}

func (o *recordingObserver) RecordNormalizationFailure(_ string, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.normFails = append(o.normFails, reason)
}

const geminiImageReply = `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"aW1n"}}]}}]}`

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/generate-meme", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	h(w, r)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.Error
}

// =============================================================================
// 🧪 MemeHandler 测试
// =============================================================================

func TestMemeHandler_Success(t *testing.T) {
	provider := &fakeProvider{kind: image.KindMultimodal, configured: true, body: geminiImageReply}
	observer := &recordingObserver{}
	h := NewMemeHandler(provider, MemeHandlerConfig{}, observer, zap.NewNop())

	w := postJSON(t, h.HandleGenerate, `{"imageData":"data:image/png;base64,Zm9v","prompt":"freeze"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, geminiImageReply, w.Body.String())

	require.Equal(t, 1, provider.callCount())
	call := provider.calls[0]
	assert.Equal(t, "Zm9v", call.ImageData)
	assert.Equal(t, "image/png", call.MimeType)
	assert.Equal(t, "freeze", call.Prompt)

	assert.Equal(t, []observation{{"gemini", "test-model", "success"}}, observer.requests)
	assert.Empty(t, observer.normFails)
}

func TestMemeHandler_GenericProviderNormalized(t *testing.T) {
	provider := &fakeProvider{kind: image.KindGenericImage, configured: true, body: `{"data":[{"b64_json":"aW1n"}]}`}
	h := NewMemeHandler(provider, MemeHandlerConfig{}, nil, zap.NewNop())

	w := postJSON(t, h.HandleGenerate, `{"imageData":"Zm9v","prompt":"freeze"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"aW1n"}}]}}]}`, w.Body.String())
}

func TestMemeHandler_EnhancePrompt(t *testing.T) {
	provider := &fakeProvider{kind: image.KindMultimodal, configured: true, body: geminiImageReply}
	h := NewMemeHandler(provider, MemeHandlerConfig{EnhancePrompt: true}, nil, zap.NewNop())

	w := postJSON(t, h.HandleGenerate, `{"imageData":"Zm9v","prompt":"add a hat"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, image.BuildPrompt("add a hat", true), provider.calls[0].Prompt)
}

func TestMemeHandler_RequestErrors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		configured bool
		limits     MemeHandlerConfig
		wantStatus int
		wantError  string
	}{
		{
			name:       "wrong method",
			method:     http.MethodGet,
			configured: true,
			wantStatus: http.StatusMethodNotAllowed,
			wantError:  "Method not allowed",
		},
		{
			name:       "invalid json",
			body:       `{"imageData":`,
			configured: true,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid JSON body",
		},
		{
			name:       "empty body",
			body:       ``,
			configured: true,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid JSON body",
		},
		{
			name:       "missing prompt",
			body:       `{"imageData":"Zm9v"}`,
			configured: true,
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing imageData or prompt",
		},
		{
			name:       "missing image",
			body:       `{"prompt":"x"}`,
			configured: true,
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing imageData or prompt",
		},
		{
			name:       "missing fields win over missing key",
			body:       `{}`,
			configured: false,
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing imageData or prompt",
		},
		{
			name:       "no api key",
			body:       `{"imageData":"Zm9v","prompt":"x"}`,
			configured: false,
			wantStatus: http.StatusInternalServerError,
			wantError:  "API key not configured",
		},
		{
			name:       "invalid base64",
			body:       `{"imageData":"data:image/png;base64,@@@@","prompt":"x"}`,
			configured: true,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid image data: expected base64",
		},
		{
			name:       "empty payload after prefix",
			body:       `{"imageData":"data:image/png;base64,","prompt":"x"}`,
			configured: true,
			wantStatus: http.StatusBadRequest,
			wantError:  "Empty image data",
		},
		{
			name:       "image over limit",
			body:       `{"imageData":"Zm9vYmFy","prompt":"x"}`,
			configured: true,
			limits:     MemeHandlerConfig{MaxImageBytes: 4},
			wantStatus: http.StatusBadRequest,
			wantError:  "File too large. Maximum size is 4 bytes",
		},
		{
			name:       "body over limit",
			body:       `{"imageData":"` + strings.Repeat("A", 256) + `","prompt":"x"}`,
			configured: true,
			limits:     MemeHandlerConfig{MaxBodyBytes: 64},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantError:  "Request body too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{kind: image.KindMultimodal, configured: tt.configured, body: geminiImageReply}
			h := NewMemeHandler(provider, tt.limits, nil, zap.NewNop())

			method := tt.method
			if method == "" {
				method = http.MethodPost
			}
			w := httptest.NewRecorder()
			r := httptest.NewRequest(method, "/api/generate-meme", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", "application/json")
			h.HandleGenerate(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, decodeError(t, w))
			assert.Zero(t, provider.callCount(), "provider must not be called")
		})
	}
}

func TestMemeHandler_MethodNotAllowedSetsAllow(t *testing.T) {
	h := NewMemeHandler(&fakeProvider{configured: true}, MemeHandlerConfig{}, nil, nil)
	w := httptest.NewRecorder()
	h.HandleGenerate(w, httptest.NewRequest(http.MethodPut, "/api/generate-meme", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, http.MethodPost, w.Header().Get("Allow"))
}

func TestMemeHandler_UpstreamErrorPassthrough(t *testing.T) {
	upstream := types.NewError(types.ErrForbidden, "API key invalid. Check that the image provider API key is configured correctly.").
		WithHTTPStatus(http.StatusForbidden).
		WithProvider("gemini")
	provider := &fakeProvider{kind: image.KindMultimodal, configured: true, err: upstream}
	observer := &recordingObserver{}
	h := NewMemeHandler(provider, MemeHandlerConfig{}, observer, zap.NewNop())

	w := postJSON(t, h.HandleGenerate, `{"imageData":"Zm9v","prompt":"x"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, decodeError(t, w), "API key")
	assert.Equal(t, []observation{{"gemini", "test-model", "forbidden"}}, observer.requests)
}

func TestMemeHandler_PlainErrorBecomes500(t *testing.T) {
	provider := &fakeProvider{kind: image.KindMultimodal, configured: true, err: assert.AnError}
	h := NewMemeHandler(provider, MemeHandlerConfig{}, nil, zap.NewNop())

	w := postJSON(t, h.HandleGenerate, `{"imageData":"Zm9v","prompt":"x"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, assert.AnError.Error(), decodeError(t, w))
}

func TestMemeHandler_TextOnlyReply(t *testing.T) {
	provider := &fakeProvider{
		kind:       image.KindMultimodal,
		configured: true,
		body:       `{"candidates":[{"content":{"parts":[{"text":"I can't edit photos of people"}]}}]}`,
	}
	observer := &recordingObserver{}
	h := NewMemeHandler(provider, MemeHandlerConfig{}, observer, zap.NewNop())

	w := postJSON(t, h.HandleGenerate, `{"imageData":"Zm9v","prompt":"x"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	msg := decodeError(t, w)
	assert.True(t, strings.HasPrefix(msg, "No image was generated."), msg)
	assert.Equal(t, []string{image.ReasonNoImage}, observer.normFails)
	assert.Equal(t, "no_image", observer.requests[0].outcome)
}

func TestMemeHandler_UnrecognizedGenericReply(t *testing.T) {
	provider := &fakeProvider{kind: image.KindGenericImage, configured: true, body: `{"status":"queued"}`}
	h := NewMemeHandler(provider, MemeHandlerConfig{}, nil, zap.NewNop())

	w := postJSON(t, h.HandleGenerate, `{"imageData":"Zm9v","prompt":"x"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Unexpected response format from image API", decodeError(t, w))
}

func TestMemeHandler_Multipart(t *testing.T) {
	provider := &fakeProvider{kind: image.KindMultimodal, configured: true, body: geminiImageReply}
	h := NewMemeHandler(provider, MemeHandlerConfig{}, nil, zap.NewNop())

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "me.png")
	require.NoError(t, err)
	_, err = fw.Write(png)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("prompt", "freeze"))
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/generate-meme", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	h.HandleGenerate(w, r)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, 1, provider.callCount())
	assert.Equal(t, "image/png", provider.calls[0].MimeType)
	assert.Equal(t, "freeze", provider.calls[0].Prompt)
	assert.NotEmpty(t, provider.calls[0].ImageData)
}

func TestMemeHandler_MultipartImageDataField(t *testing.T) {
	provider := &fakeProvider{kind: image.KindMultimodal, configured: true, body: geminiImageReply}
	h := NewMemeHandler(provider, MemeHandlerConfig{}, nil, zap.NewNop())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("imageData", "data:image/jpeg;base64,Zm9v"))
	require.NoError(t, mw.WriteField("prompt", "freeze"))
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/generate-meme", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	h.HandleGenerate(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Zm9v", provider.calls[0].ImageData)
	assert.Equal(t, "image/jpeg", provider.calls[0].MimeType)
}

func TestMemeHandler_ConcurrentRequests(t *testing.T) {
	provider := &fakeProvider{kind: image.KindMultimodal, configured: true, body: geminiImageReply}
	h := NewMemeHandler(provider, MemeHandlerConfig{}, &recordingObserver{}, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/generate-meme", strings.NewReader(`{"imageData":"Zm9v","prompt":"x"}`))
			h.HandleGenerate(w, r)
			assert.Equal(t, http.StatusOK, w.Code)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, provider.callCount())
}
