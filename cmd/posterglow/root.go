package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "posterglow",
		Short:         "给 Letterboxd 特殊电影的海报加上光晕，并维护特殊电影列表",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&ctx.configFlag, "config", "c", "", "配置文件路径（默认读取 ./posterglow.toml，可不存在）")
	pf.StringVar(&ctx.logLevelFlag, "log-level", "", "日志级别：debug|info|warn|error")
	pf.StringVar(&ctx.logFormatFlag, "log-format", "", "日志格式：auto|console|json")
	pf.StringVar(&ctx.listURLFlag, "list-url", "", "特殊电影列表地址")

	rootCmd.AddCommand(newDecorateCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newMatchCommand(ctx))
	rootCmd.AddCommand(newUpdateCommand(ctx))

	return rootCmd
}
