package api

import (
	"time"

	"github.com/weisyn/scriptindex/pkg/types"
)

// APIOptions API服务配置选项
type APIOptions struct {
	HTTP HTTPConfig `json:"http"`
}

// HTTPConfig HTTP API配置
type HTTPConfig struct {
	Enabled bool   `json:"enabled"` // 是否启用HTTP服务（总开关）
	Host    string `json:"host"`    // 监听地址
	Port    int    `json:"port"`    // 监听端口

	EnableWebSocket bool `json:"enable_websocket"` // 是否启用WebSocket（/ws）
	EnableMetrics   bool `json:"enable_metrics"`   // 是否暴露 /metrics

	ReadTimeout     time.Duration `json:"read_timeout"`     // 读取超时时间
	WriteTimeout    time.Duration `json:"write_timeout"`    // 写入超时时间
	ShutdownTimeout time.Duration `json:"shutdown_timeout"` // 优雅关闭超时

	// WebSocket 缓冲区
	WSReadBufferSize  int `json:"ws_read_buffer_size"`
	WSWriteBufferSize int `json:"ws_write_buffer_size"`
}

// Config API配置实现
type Config struct {
	options *APIOptions
}

// New 创建API配置实现
func New(userConfig *types.UserAPIConfig) *Config {
	defaultOptions := createDefaultAPIOptions()

	if userConfig != nil {
		convertAndMergeUserConfig(defaultOptions, userConfig)
	}

	return &Config{
		options: defaultOptions,
	}
}

func createDefaultAPIOptions() *APIOptions {
	return &APIOptions{
		HTTP: HTTPConfig{
			Enabled:           defaultHTTPEnabled,
			Host:              defaultHTTPHost,
			Port:              defaultHTTPPort,
			EnableWebSocket:   defaultHTTPEnableWebSocket,
			EnableMetrics:     defaultHTTPEnableMetrics,
			ReadTimeout:       defaultHTTPReadTimeout,
			WriteTimeout:      defaultHTTPWriteTimeout,
			ShutdownTimeout:   defaultHTTPShutdownTimeout,
			WSReadBufferSize:  defaultWSReadBufferSize,
			WSWriteBufferSize: defaultWSWriteBufferSize,
		},
	}
}

// convertAndMergeUserConfig 只覆盖用户显式设置的字段
func convertAndMergeUserConfig(options *APIOptions, userConfig *types.UserAPIConfig) {
	if userConfig.HTTPEnabled != nil {
		options.HTTP.Enabled = *userConfig.HTTPEnabled
	}
	if userConfig.HTTPHost != nil {
		options.HTTP.Host = *userConfig.HTTPHost
	}
	if userConfig.HTTPPort != nil {
		options.HTTP.Port = *userConfig.HTTPPort
	}
	if userConfig.EnableWS != nil {
		options.HTTP.EnableWebSocket = *userConfig.EnableWS
	}
}

// GetOptions 获取完整的API配置选项
func (c *Config) GetOptions() *APIOptions {
	return c.options
}
