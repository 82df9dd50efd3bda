// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集，覆盖 HTTP 请求与上游
图像提供者两个维度。

# 概述

Collector 使用 promauto 自动注册指标，所有指标按 namespace 隔离。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、请求/响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - 提供者指标：provider_requests_total 按 provider/model/outcome
    分组，outcome 为 success 或小写错误码；provider_request_duration_seconds
    记录上游耗时；normalization_failures_total 按 provider/reason 分组。

Collector 满足 handlers.ProviderObserver 接口。
*/
package metrics
