// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 image 提供表情包生成网关背后的图像提供者适配与响应归一化。

# 概述

网关对外只暴露一种响应结构（Result），而上游可能是两种完全不同的
API：images/generations 风格的通用图像 API（"banana"）与 Gemini
generateContent 风格的多模态 API。本包负责屏蔽两者在请求格式、
鉴权方式和响应结构上的差异。

# 核心接口

  - Provider：Generate、Kind、Name、Model、Configured。
  - BananaProvider：Bearer 鉴权，请求体携带 model/prompt/image/
    num_images/size/response_format。
  - GeminiProvider：API Key 通过 ?key= 传递，contents 中依次放置
    文本 prompt 与 inlineData 图像。
  - Normalize：将上游成功响应转换为 Result，失败时返回
    NORMALIZATION_FAILED 或 NO_IMAGE。

# 错误映射

上游非 2xx 响应经 MapUpstreamError 处理：鉴权失败统一映射为 403
并附带配置提示；模型不存在映射为 400；其余保留上游状态码。
超时为 504，调用方取消为 499，其它传输错误为 500。
*/
package image
