package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"marksheet/internal/app"
	"marksheet/internal/server"
	"marksheet/internal/util"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port int
	var devMode bool
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			// config.toml 显式配置的端口优先
			if port > 0 && !ctx.info.PortSpecified {
				cfg.Server.Port = port
			}
			if devMode {
				cfg.Server.DevMode = true
			}
			if noBrowser {
				cfg.Server.OpenBrowser = false
			}

			logger, err := ctx.serveLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := app.Open(cfg, ctx.dataDir, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if !ctx.info.PortSpecified && port == 0 {
				cfg.Server.Port = util.FindAvailablePort(cfg.Server.Port)
			}
			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
			logger.Info("starting",
				zap.String("config", ctx.info.Path),
				zap.Bool("config_found", ctx.info.FileFound),
				zap.String("data_dir", ctx.dataDir),
				zap.String("url", url),
			)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.NewServer(a)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Run(runCtx, addr)
			}()

			if cfg.Server.OpenBrowser && !cfg.Server.DevMode {
				if err := util.OpenBrowserWithFallback(url); err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "无法自动打开浏览器，请手动访问: %s\n", url)
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "请访问 %s\n", url)
			}

			select {
			case err := <-errCh:
				return err
			case <-runCtx.Done():
				logger.Info("shutting down")
				return <-errCh
			}
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	cmd.Flags().BoolVar(&devMode, "dev", false, "开发模式")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "不自动打开浏览器")
	return cmd
}
