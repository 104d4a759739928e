package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/AgniRoy1234/sse-server/internal/logging"
	"github.com/AgniRoy1234/sse-server/server"
	"github.com/AgniRoy1234/sse-server/tools"
	"github.com/AgniRoy1234/sse-server/workspace"
)

func main() {
	app := &cli.App{
		Name:  "sse-server",
		Usage: "terminal tool server exposing shell execution over an SSE duplex channel",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind to.",
				Value: "0.0.0.0",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on.",
				Value: 8081,
			},
			&cli.StringFlag{
				Name:  "workspace",
				Usage: "Working directory for shell commands. Defaults to ~/mcp. Created if missing.",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level. One of [debug,info,warn,error].",
				Value: "info",
			},
		},
		Action: func(ctx *cli.Context) error {
			host := ctx.String("host")
			port := ctx.Int("port")
			workspaceDir := ctx.String("workspace")
			logLevelStr := ctx.String("log-level")

			logLevel, err := logging.ParseLevel(logLevelStr)
			if err != nil {
				return err
			}

			if workspaceDir == "" {
				workspaceDir, err = workspace.Default()
				if err != nil {
					return fmt.Errorf("resolving default workspace: %w", err)
				}
			}
			if err := workspace.Ensure(workspaceDir); err != nil {
				return err
			}

			logger, err := logging.New(logLevel, workspace.LogFile(workspaceDir))
			if err != nil {
				return err
			}
			defer logger.Sync()

			logger.Sugar().Info("terminal server starting")
			logger.Sugar().Infof("workspace set to: %s", workspaceDir)

			runner := &tools.ShellRunner{
				Log: logger.Named("shell").Sugar(),
				Dir: workspaceDir,
			}
			registry := tools.Builtin(runner)

			srv, err := server.New(
				registry,
				server.WithLogger(logger),
				server.WithListenAddr(fmt.Sprintf("%s:%d", host, port)),
			)
			if err != nil {
				return fmt.Errorf("building server: %w", err)
			}

			return srv.Run()
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
