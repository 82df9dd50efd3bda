// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 memegate 的 HTTP 中间件和图像提供者调用提供 TracerProvider 与 MeterProvider。
// 当遥测功能禁用时保持 noop 实现，不连接任何外部服务。
package telemetry
