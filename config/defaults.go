// =============================================================================
// 📦 memegate 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/memegate/llm/image"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Provider:  DefaultProviderConfig(),
		CORS:      DefaultCORSConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        3001,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    90 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		MaxBodyBytes:    50 << 20,
	}
}

// DefaultProviderConfig 返回默认提供者配置
// Endpoint 与 Model 留空，由 image 包按类型补齐
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Kind:          string(image.KindGenericImage),
		Timeout:       image.DefaultTimeout,
		MaxImageBytes: 10 << 20,
	}
}

// DefaultCORSConfig 返回默认跨域配置
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{
			"http://localhost:5173",
			"https://www.241543903.xyz",
			"https://241543903.xyz",
		},
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "memegate",
		SampleRate:   0.1,
	}
}
