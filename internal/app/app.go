package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"github.com/weisyn/scriptindex/internal/config"
	"github.com/weisyn/scriptindex/pkg/types"
)

// ConfigPathEnv 配置文件路径环境变量
const ConfigPathEnv = "SCRIPTINDEX_CONFIG_PATH"

// stopTimeout 给存储留出完成落盘的时间
const stopTimeout = 60 * time.Second

// App 应用对外接口
type App interface {
	// Stop 停止应用
	Stop() error

	// Wait 阻塞直到收到退出信号，然后停止应用
	Wait()
}

// internalApp 应用的内部实现
type internalApp struct {
	bootstrap *Bootstrap
}

// Stop 停止应用
func (a *internalApp) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return a.bootstrap.StopApp(ctx)
}

// Wait 等待应用收到退出信号
func (a *internalApp) Wait() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	sig := <-signals
	fmt.Fprintf(os.Stderr, "收到信号 %v，正在退出...\n", sig)

	if err := a.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "停止应用时出错: %v\n", err)
	}
}

// Start 加载配置、组装模块并启动应用
func Start(appOptions ...Option) (App, error) {
	opts := newOptions(appOptions...)
	if err := resolveConfig(opts); err != nil {
		return nil, err
	}
	opts.applyReadOnly()

	b := NewBootstrap(opts)
	if err := b.CreateFxApp(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := b.StartApp(ctx); err != nil {
		return nil, err
	}
	return &internalApp{bootstrap: b}, nil
}

// resolveConfig 按优先级确定配置：显式配置 > 配置文件 > 默认值
func resolveConfig(o *options) error {
	if o.appConfig != nil {
		return nil
	}

	cfg, err := LoadConfig(o.configFilePath)
	if err != nil {
		return err
	}
	o.appConfig = cfg
	return nil
}

// LoadConfig 读取 JSON 配置文件
//
// 环境变量 SCRIPTINDEX_CONFIG_PATH 优先于 path；两者都为空时返回空配置（全部取默认值）。
func LoadConfig(path string) (*types.AppConfig, error) {
	return config.LoadAppConfig(ConfigPath(path))
}

// ConfigPath 返回实际生效的配置文件路径
func ConfigPath(path string) string {
	if envPath := os.Getenv(ConfigPathEnv); envPath != "" {
		return envPath
	}
	return path
}
