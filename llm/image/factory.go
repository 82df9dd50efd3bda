package image

import "fmt"

// NewProvider 根据 cfg.Kind 构造对应的提供者。
func NewProvider(cfg ProviderConfig, opts ...Option) (Provider, error) {
	switch cfg.Kind {
	case KindGenericImage, "":
		return NewBananaProvider(cfg, opts...), nil
	case KindMultimodal:
		return NewGeminiProvider(cfg, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported provider kind %q", cfg.Kind)
	}
}
