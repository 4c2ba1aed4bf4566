package api

import "time"

// API服务默认配置值
const (
	defaultHTTPEnabled = true
	defaultHTTPHost    = "0.0.0.0"

	// defaultHTTPPort 默认HTTP端口
	defaultHTTPPort = 28090

	defaultHTTPEnableWebSocket = true
	defaultHTTPEnableMetrics   = true

	defaultHTTPReadTimeout     = 15 * time.Second
	defaultHTTPWriteTimeout    = 30 * time.Second
	defaultHTTPShutdownTimeout = 5 * time.Second

	defaultWSReadBufferSize  = 1024
	defaultWSWriteBufferSize = 1024
)
