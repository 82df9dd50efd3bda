package image

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"google.golang.org/genai"

	"github.com/BaSui01/memegate/types"
)

// GeminiProvider 使用 Gemini generateContent 接口进行原生多模态图像生成。
type GeminiProvider struct {
	cfg ProviderConfig
	t   *transport
}

// NewGeminiProvider creates a multimodal provider.
func NewGeminiProvider(cfg ProviderConfig, opts ...Option) *GeminiProvider {
	cfg.Kind = KindMultimodal
	cfg = cfg.withDefaults()
	return &GeminiProvider{
		cfg: cfg,
		t:   newTransport("gemini", cfg, opts),
	}
}

func (p *GeminiProvider) Name() string       { return "gemini" }
func (p *GeminiProvider) Kind() ProviderKind { return KindMultimodal }
func (p *GeminiProvider) Model() string      { return p.cfg.Model }
func (p *GeminiProvider) Configured() bool   { return strings.TrimSpace(p.cfg.APIKey) != "" }

type geminiGenerateRequest struct {
	Contents         []*genai.Content       `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	Temperature        float64  `json:"temperature"`
	TopK               int      `json:"topK"`
	TopP               float64  `json:"topP"`
	MaxOutputTokens    int      `json:"maxOutputTokens"`
	ResponseModalities []string `json:"responseModalities"`
}

// defaultGenerationConfig mirrors the sampling settings the meme frontend was tuned with.
var defaultGenerationConfig = geminiGenerationConfig{
	Temperature:        1,
	TopK:               40,
	TopP:               0.95,
	MaxOutputTokens:    8192,
	ResponseModalities: []string{"IMAGE"},
}

// Generate sends the prompt text followed by the inline image.
func (p *GeminiProvider) Generate(ctx context.Context, req *GenerateRequest) (*RawResponse, error) {
	data, err := DecodeImage(req.ImageData)
	if err != nil {
		return nil, types.NewInvalidRequestError("Invalid image data").WithCause(err).WithProvider(p.Name())
	}

	body := geminiGenerateRequest{
		Contents: []*genai.Content{{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{Text: req.Prompt},
				{InlineData: &genai.Blob{
					MIMEType: DetectMimeType(data, req.MimeType),
					Data:     data,
				}},
			},
		}},
		GenerationConfig: defaultGenerationConfig,
	}

	return p.t.postJSON(ctx, p.endpoint(), nil, body)
}

// endpoint 构造 generateContent URL。Endpoint 中含 {model} 占位符时视为完整 URL 模板。
func (p *GeminiProvider) endpoint() string {
	base := strings.TrimRight(p.cfg.Endpoint, "/")
	var u string
	if strings.Contains(base, "{model}") {
		u = strings.ReplaceAll(base, "{model}", url.PathEscape(p.cfg.Model))
	} else {
		u = fmt.Sprintf("%s/v1beta/models/%s:generateContent", base, url.PathEscape(p.cfg.Model))
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "key=" + url.QueryEscape(p.cfg.APIKey)
}
