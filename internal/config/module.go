// Package config 提供应用配置管理功能
package config

import (
	scripthistoryconfig "github.com/weisyn/scriptindex/internal/config/scripthistory"
	"github.com/weisyn/scriptindex/pkg/interfaces/config"
	"github.com/weisyn/scriptindex/pkg/types"
	"go.uber.org/fx"
)

// ConfigParams 定义配置模块的依赖参数
type ConfigParams struct {
	fx.In

	// 应用配置选项
	AppOptions config.AppOptions `optional:"true"`
}

// ConfigOutput 定义配置模块的输出结构
type ConfigOutput struct {
	fx.Out

	// 配置提供者
	Provider config.Provider
}

// Module 返回配置模块
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			ProvideConfigServices,
			func(provider config.Provider) *scripthistoryconfig.Config {
				return scripthistoryconfig.New(provider.GetScriptHistory())
			},
		),
	)
}

// ProvideConfigServices 提供配置服务
func ProvideConfigServices(params ConfigParams) (ConfigOutput, error) {
	var appConfig *types.AppConfig
	if params.AppOptions != nil {
		appConfig = params.AppOptions.GetAppConfig()
	}

	provider := NewProvider(appConfig)

	// 启动前校验索引配置，避免带着无效分页参数运行
	if err := scripthistoryconfig.New(provider.GetScriptHistory()).Validate(); err != nil {
		return ConfigOutput{}, err
	}

	return ConfigOutput{
		Provider: provider,
	}, nil
}
