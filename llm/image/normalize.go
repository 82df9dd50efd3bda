package image

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/BaSui01/memegate/types"
)

// CanonicalFieldNames maps the snake_case names used by some multimodal endpoints
// to the camelCase names of the canonical shape.
var CanonicalFieldNames = map[string]string{
	"inline_data":            "inlineData",
	"mime_type":              "mimeType",
	"file_data":              "fileData",
	"file_uri":               "fileUri",
	"finish_reason":          "finishReason",
	"finish_message":         "finishMessage",
	"safety_ratings":         "safetyRatings",
	"usage_metadata":         "usageMetadata",
	"prompt_token_count":     "promptTokenCount",
	"candidates_token_count": "candidatesTokenCount",
	"total_token_count":      "totalTokenCount",
	"model_version":          "modelVersion",
	"response_id":            "responseId",
	"prompt_feedback":        "promptFeedback",
	"block_reason":           "blockReason",
}

// NativeFieldNames is the inverse of CanonicalFieldNames.
var NativeFieldNames = invert(CanonicalFieldNames)

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// TranslateKeys returns a deep copy of v with object keys renamed through names.
// A key is left alone when its translated name is already present in the same object.
func TranslateKeys(v any, names map[string]string) any {
	switch val := v.(type) {
	case map[string]any:
		if val == nil {
			return val
		}
		out := make(map[string]any, len(val))
		for k, child := range val {
			key := k
			if renamed, ok := names[k]; ok {
				if _, clash := val[renamed]; !clash {
					key = renamed
				}
			}
			out[key] = TranslateKeys(child, names)
		}
		return out
	case []any:
		if val == nil {
			return val
		}
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = TranslateKeys(child, names)
		}
		return out
	default:
		return v
	}
}

// NormalizeError reasons, used as metric labels.
const (
	ReasonInvalidJSON  = "invalid_json"
	ReasonUnrecognized = "unrecognized_shape"
	ReasonNoCandidates = "no_candidates"
	ReasonNoImage      = "no_image"
)

const unexpectedFormat = "Unexpected response format from image API"

// Normalize 将提供者的成功响应转换为统一的 Result。
// 已是 candidates 结构的响应（无论 kind）都走多模态路径，因此对规范输出再次归一化结果不变。
func Normalize(kind ProviderKind, body []byte) (*Result, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, normalizationError(ReasonInvalidJSON, unexpectedFormat, err)
	}

	if _, ok := doc["candidates"]; ok || kind == KindMultimodal {
		return normalizeCandidates(doc)
	}
	return normalizeGeneric(doc)
}

// normalizeGeneric handles the first data item carrying b64_json or url, then top-level image/url.
func normalizeGeneric(doc map[string]any) (*Result, error) {
	if items, ok := doc["data"].([]any); ok {
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if b64 := stringField(entry, "b64_json"); b64 != "" {
				payload, declared := StripDataURL(b64)
				return NewImageResult(mimeOrPNG(declared), payload, SourceBase64), nil
			}
			if u := stringField(entry, "url"); u != "" {
				return NewImageResult("image/png", u, SourceURL), nil
			}
		}
	}

	if img := stringField(doc, "image"); img != "" {
		if looksLikeURL(img) {
			return NewImageResult("image/png", img, SourceURL), nil
		}
		payload, declared := StripDataURL(img)
		return NewImageResult(mimeOrPNG(declared), payload, SourceBase64), nil
	}
	if u := stringField(doc, "url"); u != "" {
		return NewImageResult("image/png", u, SourceURL), nil
	}

	return nil, normalizationError(ReasonUnrecognized, unexpectedFormat, nil)
}

func normalizeCandidates(doc map[string]any) (*Result, error) {
	translated, _ := TranslateKeys(doc, CanonicalFieldNames).(map[string]any)

	encoded, err := json.Marshal(translated)
	if err != nil {
		return nil, normalizationError(ReasonInvalidJSON, unexpectedFormat, err)
	}
	var typed struct {
		Candidates     []Candidate `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
	}
	if err := json.Unmarshal(encoded, &typed); err != nil {
		return nil, normalizationError(ReasonUnrecognized, unexpectedFormat, err)
	}

	res := &Result{Candidates: typed.Candidates, raw: translated}

	if len(typed.Candidates) == 0 {
		if reason := typed.PromptFeedback.BlockReason; reason != "" {
			return nil, noImageError("Prompt blocked: " + reason)
		}
		return nil, normalizationError(ReasonNoCandidates, unexpectedFormat, nil)
	}

	parts := 0
	finish := ""
	for _, c := range typed.Candidates {
		parts += len(c.Content.Parts)
		if finish == "" {
			finish = c.FinishReason
		}
	}
	if parts == 0 {
		if finish != "" && finish != "STOP" {
			return nil, noImageError("Finish reason: " + finish)
		}
		return nil, normalizationError(ReasonNoCandidates, unexpectedFormat, nil)
	}

	if _, ok := res.FirstImage(); !ok {
		detail := strings.Join(res.Texts(), " ")
		if detail == "" {
			detail = "The provider returned text instead of an image."
		}
		return nil, noImageError(truncate(detail, 500))
	}
	return res, nil
}

// NormalizeReason extracts the metric label for a normalization failure.
func NormalizeReason(err error) string {
	if e, ok := types.AsError(err); ok {
		if e.Code == types.ErrNoImage {
			return ReasonNoImage
		}
		if r, ok := e.Cause.(reasonError); ok {
			return r.reason
		}
	}
	return ReasonUnrecognized
}

type reasonError struct {
	reason string
	err    error
}

func (r reasonError) Error() string {
	if r.err != nil {
		return r.reason + ": " + r.err.Error()
	}
	return r.reason
}

func (r reasonError) Unwrap() error { return r.err }

func normalizationError(reason, msg string, cause error) *types.Error {
	return types.NewError(types.ErrNormalization, msg).
		WithHTTPStatus(http.StatusInternalServerError).
		WithCause(reasonError{reason: reason, err: cause})
}

func noImageError(detail string) *types.Error {
	return types.NewError(types.ErrNoImage, fmt.Sprintf("No image was generated. %s", detail)).
		WithHTTPStatus(http.StatusInternalServerError)
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func mimeOrPNG(declared string) string {
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	return "image/png"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
