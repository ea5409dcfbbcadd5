package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/posterglow/internal/config"
	"github.com/John-Robertt/posterglow/internal/infra/httpx"
	"github.com/John-Robertt/posterglow/internal/logging"
	"github.com/John-Robertt/posterglow/internal/speciallist"
)

// commandContext 持有全局参数，并为子命令装配配置、日志与 HTTP client。
type commandContext struct {
	configFlag    string
	logLevelFlag  string
	logFormatFlag string
	listURLFlag   string
}

// runtime 是子命令执行期间共享的依赖。
type runtime struct {
	cfg    config.EffectiveConfig
	logger *slog.Logger
}

// load 合并全局参数与子命令参数（cli），读取配置并构造 logger。
// 日志始终写到 stderr，stdout 只留给命令结果。
func (c *commandContext) load(cmd *cobra.Command, cli config.CLIArgs) (*runtime, error) {
	flags := cmd.Flags()
	cli.ConfigPath = c.configFlag
	cli.LogLevel, cli.LogLevelSet = c.logLevelFlag, flags.Changed("log-level")
	cli.LogFormat, cli.LogFormatSet = c.logFormatFlag, flags.Changed("log-format")
	cli.ListURL, cli.ListURLSet = c.listURLFlag, flags.Changed("list-url")

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadEffective(cwd, cli)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}
	if cfg.ConfigPath != "" {
		logger.Debug("已读取配置文件", slog.String("path", cfg.ConfigPath))
	}
	return &runtime{cfg: cfg, logger: logger}, nil
}

func (r *runtime) fetcher() (speciallist.Fetcher, error) {
	hc, err := httpx.NewListClient(r.cfg.ProxyURL)
	if err != nil {
		return speciallist.Fetcher{}, err
	}
	return speciallist.Fetcher{URL: r.cfg.ListURL, Client: hc, Logger: r.logger}, nil
}

func (r *runtime) pageClient() (*http.Client, error) {
	return httpx.NewPageClient(r.cfg.ProxyURL)
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
