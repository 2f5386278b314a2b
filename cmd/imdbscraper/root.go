package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "imdbscraper",
		Short:         "IMDb 剧集抓取：REST 服务与命令行",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx.cli.LogLevelSet = cmd.Flags().Changed("log-level")
			ctx.cli.LogFormatSet = cmd.Flags().Changed("log-format")
			ctx.cli.ListenSet = cmd.Flags().Changed("listen")
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.cli.ConfigPath, "config", "c", "", "配置文件路径（默认读取当前目录下的 imdbscraper.toml，可缺省）")
	rootCmd.PersistentFlags().StringVar(&ctx.cli.LogLevel, "log-level", "", "日志级别：debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&ctx.cli.LogFormat, "log-format", "", "日志格式：console|json")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newSeriesCommand(ctx))
	rootCmd.AddCommand(newSearchCommand(ctx))

	return rootCmd
}
