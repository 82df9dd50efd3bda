package image

import (
	"maps"
	"time"
)

const (
	// DefaultTimeout bounds a single outbound generation call.
	DefaultTimeout = 60 * time.Second

	DefaultBananaEndpoint = "https://api.ulazai.com/v1/images/generations"
	DefaultBananaModel    = "nano-banana-pro"
	DefaultBananaSize     = "1024x1024"

	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel    = "gemini-2.5-flash-image"
)

// ProviderConfig is built once at startup and never mutated afterwards.
type ProviderConfig struct {
	Kind         ProviderKind      `json:"kind" yaml:"kind"`
	Endpoint     string            `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	APIKey       string            `json:"-" yaml:"api_key"`
	Model        string            `json:"model,omitempty" yaml:"model,omitempty"`
	ExtraHeaders map[string]string `json:"extra_headers,omitempty" yaml:"extra_headers,omitempty"`
	Timeout      time.Duration     `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultBananaConfig returns the default generic image API configuration.
func DefaultBananaConfig() ProviderConfig {
	return ProviderConfig{
		Kind:     KindGenericImage,
		Endpoint: DefaultBananaEndpoint,
		Model:    DefaultBananaModel,
		Timeout:  DefaultTimeout,
	}
}

// DefaultGeminiConfig returns the default multimodal generateContent configuration.
func DefaultGeminiConfig() ProviderConfig {
	return ProviderConfig{
		Kind:     KindMultimodal,
		Endpoint: DefaultGeminiEndpoint,
		Model:    DefaultGeminiModel,
		Timeout:  DefaultTimeout,
	}
}

// withDefaults fills unset fields from the kind's defaults and detaches the header map
// from the caller's copy.
func (c ProviderConfig) withDefaults() ProviderConfig {
	var def ProviderConfig
	switch c.Kind {
	case KindMultimodal:
		def = DefaultGeminiConfig()
	default:
		def = DefaultBananaConfig()
	}
	if c.Kind == "" {
		c.Kind = def.Kind
	}
	if c.Endpoint == "" {
		c.Endpoint = def.Endpoint
	}
	if c.Model == "" {
		c.Model = def.Model
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	c.ExtraHeaders = maps.Clone(c.ExtraHeaders)
	return c
}
