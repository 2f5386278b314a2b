package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/imdbscraper/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 REST 服务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			s, err := ctx.newScraper(nil)
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(s, cfg.SearchLimit, ctx.logger).Run(sigCtx, cfg.Listen, shutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&ctx.cli.Listen, "listen", "", "监听地址（例如 :8080）")
	return cmd
}
