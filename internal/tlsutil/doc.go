// Package tlsutil 为上游图像提供者调用构建出站 HTTP 客户端，
// 使用安全加固的 TLS 设置（TLS 1.2+，仅 AEAD 密码套件），超时由请求 context 控制。
package tlsutil
