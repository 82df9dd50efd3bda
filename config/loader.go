// =============================================================================
// 📦 memegate 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + .env 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("MEMEGATE").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 旧版环境变量 → MEMEGATE_ 环境变量
// .env 中的值仅在真实环境变量缺失时生效
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/memegate/llm/image"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 memegate 的完整配置结构，加载后只读
type Config struct {
	// Server 服务器配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Provider 上游图像提供者配置
	Provider ProviderConfig `yaml:"provider" env:"PROVIDER"`

	// CORS 跨域配置
	CORS CORSConfig `yaml:"cors" env:"CORS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口，0 表示关闭
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时，需大于 provider.timeout
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 请求体上限（字节）
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
}

// ProviderConfig 图像提供者配置
type ProviderConfig struct {
	// 提供者类型: banana, gemini
	Kind string `yaml:"kind" env:"KIND"`
	// API Key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 端点，留空使用该类型的默认值
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
	// 模型名称，留空使用该类型的默认值
	Model string `yaml:"model" env:"MODEL"`
	// 额外请求头，环境变量格式 k=v,k2=v2
	ExtraHeaders map[string]string `yaml:"extra_headers" env:"EXTRA_HEADERS"`
	// 单次上游调用超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 解码后图像大小上限（字节）
	MaxImageBytes int64 `yaml:"max_image_bytes" env:"MAX_IMAGE_BYTES"`
	// 是否把客户端 prompt 包装进表情包模板
	EnhancePrompt bool `yaml:"enhance_prompt" env:"ENHANCE_PROMPT"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	// 允许的来源，包含 "*" 时放行所有来源
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	dotEnvPath string
	envPrefix  string
	legacyEnv  bool
	validators []func(*Config) error

	dotEnv map[string]string
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "MEMEGATE",
		dotEnvPath: ".env",
		legacyEnv:  true,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithDotEnvPath 设置 .env 文件路径，空字符串表示不读取
func (l *Loader) WithDotEnvPath(path string) *Loader {
	l.dotEnvPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithLegacyEnv 控制是否读取旧部署使用的无前缀变量（PORT、GEMINI_API_KEY 等）
func (l *Loader) WithLegacyEnv(enabled bool) *Loader {
	l.legacyEnv = enabled
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 读取 .env（不写入进程环境）
	if err := l.loadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 4. 旧版变量名
	if l.legacyEnv {
		l.loadLegacyEnv(cfg)
	}

	// 5. 从带前缀的环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 6. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadDotEnv() error {
	l.dotEnv = nil
	if l.dotEnvPath == "" {
		return nil
	}
	values, err := godotenv.Read(l.dotEnvPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	l.dotEnv = values
	return nil
}

// lookup 先查真实环境变量，再查 .env
func (l *Loader) lookup(key string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return l.dotEnv[key]
}

// firstOf 返回第一个非空变量的值
func (l *Loader) firstOf(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(l.lookup(k)); v != "" {
			return v
		}
	}
	return ""
}

// loadLegacyEnv 兼容旧部署的变量名
func (l *Loader) loadLegacyEnv(cfg *Config) {
	if v := l.firstOf("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.HTTPPort = port
		}
	}
	if v := l.firstOf("IMAGE_API_PROVIDER"); v != "" {
		cfg.Provider.Kind = v
	}
	if v := l.firstOf("BANANA_PRO_API_KEY", "NANO_BANANA_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}

	kind, err := image.ParseProviderKind(cfg.Provider.Kind)
	if err != nil {
		// Validate 会报告该错误
		return
	}
	switch kind {
	case image.KindGenericImage:
		if v := l.firstOf("BANANA_API_ENDPOINT"); v != "" {
			cfg.Provider.Endpoint = v
		}
	case image.KindMultimodal:
		if v := l.firstOf("GEMINI_MODEL"); v != "" {
			cfg.Provider.Model = v
		}
	}

	// 逗号分隔的来源列表整体替换默认值
	if v := l.firstOf("FRONTEND_URL"); v != "" {
		if origins := splitList(v); len(origins) > 0 {
			cfg.CORS.AllowedOrigins = origins
		}
	}
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := l.lookup(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			field.Set(reflect.ValueOf(splitList(value)))
		}

	case reflect.Map:
		// 支持 k=v,k2=v2 形式的字符串映射
		if field.Type().Key().Kind() != reflect.String || field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		m := make(map[string]string)
		for _, pair := range splitList(value) {
			k, v, ok := strings.Cut(pair, "=")
			if !ok || strings.TrimSpace(k) == "" {
				return fmt.Errorf("invalid map entry %q, want key=value", pair)
			}
			m[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		field.Set(reflect.ValueOf(m))
	}

	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	// 验证服务器配置
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}
	if c.Server.MetricsPort != 0 && c.Server.MetricsPort == c.Server.HTTPPort {
		errs = append(errs, "metrics port must differ from HTTP port")
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, "max_body_bytes must be positive")
	}

	// 验证 Provider 配置
	if _, err := image.ParseProviderKind(c.Provider.Kind); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Provider.Timeout <= 0 {
		errs = append(errs, "provider timeout must be positive")
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= c.Provider.Timeout {
		errs = append(errs, "server write_timeout must exceed provider timeout")
	}
	if c.Provider.MaxImageBytes <= 0 {
		errs = append(errs, "max_image_bytes must be positive")
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ImageProviderConfig 转换为 image 包使用的提供者配置
func (c *Config) ImageProviderConfig() (image.ProviderConfig, error) {
	kind, err := image.ParseProviderKind(c.Provider.Kind)
	if err != nil {
		return image.ProviderConfig{}, err
	}
	headers := make(map[string]string, len(c.Provider.ExtraHeaders))
	for k, v := range c.Provider.ExtraHeaders {
		headers[k] = v
	}
	return image.ProviderConfig{
		Kind:         kind,
		Endpoint:     c.Provider.Endpoint,
		APIKey:       c.Provider.APIKey,
		Model:        c.Provider.Model,
		ExtraHeaders: headers,
		Timeout:      c.Provider.Timeout,
	}, nil
}
