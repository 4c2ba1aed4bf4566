package app

import (
	"go.uber.org/fx"

	"github.com/weisyn/scriptindex/pkg/interfaces/config"
	"github.com/weisyn/scriptindex/pkg/types"
)

// Option 应用程序选项函数类型
type Option func(*options)

// options 应用程序选项
// 实现config.AppOptions接口
type options struct {
	// 配置文件路径
	configFilePath string

	// 用户配置（优先级最高）
	appConfig *types.AppConfig

	// API支持开关 (默认启用)
	enableAPI bool

	// 只读模式，启动时不写入索引
	readOnly bool

	// 附加的 fx 选项（命令行子命令取用服务）
	extra []fx.Option
}

// 编译时校验options是否实现了config.AppOptions接口
var _ config.AppOptions = (*options)(nil)

// WithConfigFile 设置配置文件路径
func WithConfigFile(configPath string) Option {
	return func(o *options) {
		o.configFilePath = configPath
	}
}

// WithAppConfig 直接指定配置（优先级高于配置文件）
func WithAppConfig(cfg *types.AppConfig) Option {
	return func(o *options) {
		o.appConfig = cfg
	}
}

// WithoutAPI 禁用API模块
func WithoutAPI() Option {
	return func(o *options) {
		o.enableAPI = false
	}
}

// WithReadOnly 只读启动：空索引时不写入创世区块
func WithReadOnly() Option {
	return func(o *options) {
		o.readOnly = true
	}
}

// WithFxOptions 追加 fx 选项，例如 fx.Populate
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) {
		o.extra = append(o.extra, opts...)
	}
}

// newOptions 创建选项
func newOptions(opts ...Option) *options {
	options := &options{
		enableAPI: true,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// applyReadOnly 只读模式下关闭创世区块写入，不修改调用方传入的配置
func (o *options) applyReadOnly() {
	if !o.readOnly {
		return
	}
	cfg := *o.GetAppConfig()
	sh := types.UserScriptHistoryConfig{}
	if cfg.ScriptHistory != nil {
		sh = *cfg.ScriptHistory
	}
	indexGenesis := false
	sh.IndexGenesis = &indexGenesis
	cfg.ScriptHistory = &sh
	o.appConfig = &cfg
}

// provide 以接口形式提供给配置模块
func (o *options) provide() config.AppOptions {
	return o
}

// GetAppConfig 返回应用程序配置
func (o *options) GetAppConfig() *types.AppConfig {
	if o.appConfig == nil {
		return &types.AppConfig{}
	}
	return o.appConfig
}
