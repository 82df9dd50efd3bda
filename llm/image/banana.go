package image

import (
	"context"
	"strings"
)

// BananaProvider 通过 images/generations 风格的通用图像 API 生成图像。
type BananaProvider struct {
	cfg ProviderConfig
	t   *transport
}

// NewBananaProvider 创建通用图像 API 提供者，未设置的字段取默认值。
func NewBananaProvider(cfg ProviderConfig, opts ...Option) *BananaProvider {
	cfg.Kind = KindGenericImage
	cfg = cfg.withDefaults()
	return &BananaProvider{
		cfg: cfg,
		t:   newTransport("banana", cfg, opts),
	}
}

func (p *BananaProvider) Name() string       { return "banana" }
func (p *BananaProvider) Kind() ProviderKind { return KindGenericImage }
func (p *BananaProvider) Model() string      { return p.cfg.Model }
func (p *BananaProvider) Configured() bool   { return strings.TrimSpace(p.cfg.APIKey) != "" }

type bananaRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Image          string `json:"image"`
	NumImages      int    `json:"num_images"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

// Generate 将 base64 图像与 prompt 以 Bearer 鉴权 POST 到配置的端点。
func (p *BananaProvider) Generate(ctx context.Context, req *GenerateRequest) (*RawResponse, error) {
	body := bananaRequest{
		Model:          p.cfg.Model,
		Prompt:         req.Prompt,
		Image:          req.ImageData,
		NumImages:      1,
		Size:           DefaultBananaSize,
		ResponseFormat: "b64_json",
	}
	headers := map[string]string{
		"Authorization": "Bearer " + p.cfg.APIKey,
	}
	return p.t.postJSON(ctx, p.cfg.Endpoint, headers, body)
}
