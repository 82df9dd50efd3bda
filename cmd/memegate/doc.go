// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 memegate 服务端程序入口。

# 概述

cmd/memegate 是表情包生成网关的可执行入口，基于 cobra 提供 serve、
version、health、generate 子命令。配置来自 YAML 文件、.env 文件与
环境变量，日志使用 zap，指标通过独立端口暴露给 Prometheus。

# 核心类型

  - Server：组装图像提供者、handlers 与中间件链，管理 API 与 Metrics 双端口
  - Middleware：HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 路由：POST /api/generate-meme、/health、/healthz、/ready、/version、/
  - 中间件链：Recovery → RequestID → SecurityHeaders → OTelTracing →
    MetricsMiddleware → RequestLogger → CORS
  - 优雅关闭：信号监听后用 errgroup 并行关闭 API 与 Metrics 服务器，
    再刷新 OpenTelemetry 导出器
  - generate 子命令：读取本地照片，调用运行中的网关并把结果写入 241543903-meme.png
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
