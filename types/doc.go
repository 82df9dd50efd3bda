// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 memegate 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 llm/image、api/handlers、
cmd 等上层模块提供统一的错误契约与 context 传播工具。

# 核心类型

  - Error / ErrorCode：网关错误（GatewayError），含 HTTP 状态码与 Provider 标记
  - StatusForCode：ErrorCode → HTTP 状态码默认映射

# 主要能力

  - 错误工具链：AsError / GetErrorCode / IsErrorCode
  - 常用错误构造：NewInvalidRequestError / NewInternalError
  - Context 传播：WithRequestID / RequestID
*/
package types
