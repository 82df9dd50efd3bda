// =============================================================================
// memegate 主入口
// =============================================================================
// 表情包生成网关：HTTP 服务、健康检查、Prometheus 指标与命令行生成工具
//
// 使用方法:
//
//	memegate serve                        # 启动服务
//	memegate serve --config config.yaml   # 指定配置文件
//	memegate version                      # 显示版本信息
//	memegate health --addr http://localhost:3001
//	memegate generate --image me.jpg --out 241543903-meme.png
// =============================================================================

// @title memegate API
// @version 1.0.0
// @description Turns an uploaded photo into the "241543903" heads-in-freezers meme via an upstream image generation API.
// @BasePath /
// @schemes http https

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/memegate/client"
	"github.com/BaSui01/memegate/config"
	"github.com/BaSui01/memegate/internal/telemetry"
	"github.com/BaSui01/memegate/llm/image"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const defaultOutputFile = "241543903-meme.png"

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "memegate",
		Short: "memegate - 241543903 meme generation gateway",
		Long: `memegate accepts a photo and a prompt, forwards them to an upstream
image generation API and returns the generated meme in one canonical shape.`,
		SilenceUsage: true,
	}
	root.SetOut(stdout)

	root.AddCommand(
		newServeCommand(),
		newVersionCommand(),
		newHealthCommand(),
		newGenerateCommand(),
	)
	return root
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func newServeCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (YAML)")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting memegate",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	otelProviders, err := telemetry.Init(ctx, cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	srv := NewServer(cfg, logger, otelProviders)
	if err := srv.Start(); err != nil {
		logger.Error("Failed to start server", zap.Error(err))
		return err
	}

	waitErr := srv.WaitForShutdown(ctx)
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	logger.Info("memegate stopped")
	return waitErr
}

// =============================================================================
// 📋 version 命令
// =============================================================================

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "memegate %s\n", Version)
			fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
			fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
		},
	}
}

// =============================================================================
// 🏥 health 命令
// =============================================================================

func newHealthCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(&client.Config{BaseURL: addr, Timeout: 5 * time.Second})
			if err := c.Health(cmd.Context()); err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:3001", "Server address")
	return cmd
}

// =============================================================================
// 🖼️ generate 命令
// =============================================================================

func newGenerateCommand() *cobra.Command {
	var (
		addr      string
		imagePath string
		outPath   string
		prompt    string
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Send a photo to a running gateway and save the meme",
		Long: `Send a photo to a running memegate server and write the generated image to disk.

Examples:
  memegate generate --image me.jpg
  memegate generate --image me.jpg --out meme.png --addr http://localhost:3001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			photo, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			if prompt == "" {
				prompt = image.MemePrompt
			}

			c := client.New(&client.Config{BaseURL: addr, Timeout: timeout})
			img, err := c.GenerateImage(ctx, client.ImageDataURL(photo, ""), prompt)
			if err != nil {
				return err
			}
			data, err := c.Fetch(ctx, img)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s, %d bytes)\n", outPath, img.MimeType, len(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:3001", "Server address")
	cmd.Flags().StringVar(&imagePath, "image", "", "Path to the source photo (required)")
	cmd.Flags().StringVar(&outPath, "out", defaultOutputFile, "Where to write the generated image")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Prompt (defaults to the 241543903 meme prompt)")
	cmd.Flags().DurationVar(&timeout, "timeout", 90*time.Second, "Request timeout")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}
