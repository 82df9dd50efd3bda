// Package config 提供 memegate 的配置管理功能。
//
// 配置在启动时加载一次，之后只读：默认值 → YAML 文件 → 旧版环境变量
// （PORT、IMAGE_API_PROVIDER、GEMINI_API_KEY 等）→ MEMEGATE_ 前缀环境变量。
// .env 文件中的值只在真实环境变量缺失时生效。
package config
