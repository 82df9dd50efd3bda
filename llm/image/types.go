package image

import (
	"context"
	"fmt"
	"strings"
)

// ProviderKind selects which upstream API shape a provider speaks.
type ProviderKind string

const (
	// KindGenericImage is a "banana"-style images/generations API returning data[].b64_json.
	KindGenericImage ProviderKind = "banana"
	// KindMultimodal is a Gemini-style generateContent API returning candidates[].content.parts.
	KindMultimodal ProviderKind = "gemini"
)

// ParseProviderKind resolves a configured provider selector.
// Empty input selects the generic image API, matching the original deployment default.
func ParseProviderKind(s string) (ProviderKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "banana", "nano-banana", "banana-pro", "generic":
		return KindGenericImage, nil
	case "gemini", "google", "multimodal":
		return KindMultimodal, nil
	default:
		return "", fmt.Errorf("unknown image provider %q (supported: banana, gemini)", s)
	}
}

// GenerateRequest is what the gateway hands to a provider.
type GenerateRequest struct {
	// ImageData is base64 with any data-URL prefix already stripped.
	ImageData string `json:"image_data"`
	// MimeType is the declared or sniffed MIME type of the image.
	MimeType string `json:"mime_type,omitempty"`
	Prompt   string `json:"prompt"`
}

// RawResponse is a successful (2xx) upstream reply, not yet interpreted.
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// Provider calls one image-generation backend.
type Provider interface {
	// Generate forwards the image and prompt upstream. Non-2xx replies and transport
	// failures come back as *types.Error.
	Generate(ctx context.Context, req *GenerateRequest) (*RawResponse, error)

	// Kind reports the response shape the normalizer should expect.
	Kind() ProviderKind

	// Name is used in logs, metrics and error attribution.
	Name() string

	// Model is the effective model identifier sent upstream.
	Model() string

	// Configured reports whether an API key is present.
	Configured() bool
}
