// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动、
优雅关闭与系统信号监听。

# 核心类型

  - Manager：持有 http.Server、net.Listener 与异步错误通道，
    提供 Start/Shutdown/WaitForShutdown 等生命周期方法。
    memegate 用两个 Manager 分别承载 API 端口与 metrics 端口。
  - Config：监听地址、读写超时、空闲超时、最大请求头大小与
    优雅关闭超时。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务。
  - 随机端口：Addr 为 ":0" 时可通过 BoundAddr 取得实际地址。
  - 信号监听：WaitForShutdown 监听 SIGINT/SIGTERM、ctx 取消或
    服务异常退出，关闭顺序由调用方决定。
  - 优雅关闭：Shutdown 在 ShutdownTimeout 内排空进行中的请求。
*/
package server
