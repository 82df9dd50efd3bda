// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 memegate HTTP API 的请求处理器实现。

# 概述

handlers 包实现表情包生成网关以及健康检查端点。所有 Handler 均遵循
标准 net/http 接口，失败响应统一为 {"error": "<message>"}。

# 核心类型

  - MemeHandler：处理 POST /api/generate-meme，校验 → 调用提供者 → 归一化
  - HealthHandler：/health、/healthz、/ready、/version 与根路径信息
  - HealthCheck：可插拔就绪检查接口，内置 ProviderKeyCheck
  - ResponseWriter：包装 http.ResponseWriter 以捕获状态码
  - ProviderObserver：上游调用结果回调，由 metrics.Collector 实现

# 校验顺序

方法（405）→ 请求体解析（400，超限 413）→ 必填字段（400）→
API Key（500）→ 图像解码与大小（400）→ 上游调用 → 归一化。
*/
package handlers
