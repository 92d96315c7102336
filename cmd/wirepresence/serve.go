package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-presence/internal/app"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the room capacity backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			application, err := app.New(cfg.Server, logger)
			if err != nil {
				return err
			}
			if err := application.Run(cmd.Context()); err != nil {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	return cmd
}

func newAttachCmd(opts *rootOptions) *cobra.Command {
	var (
		addr    string
		backend string
		token   string
		render  bool
	)

	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Run the tracking agent that embedding pages connect to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Agent.Addr = addr
			}
			if backend != "" {
				cfg.Agent.BackendURL = backend
			}
			if token != "" {
				cfg.Agent.BackendToken = token
			}
			if cmd.Flags().Changed("render") {
				cfg.Agent.RenderTerminal = render
			}

			var terminal io.Writer
			if cfg.Agent.RenderTerminal {
				terminal = os.Stderr
			}
			agent := app.NewAgent(cfg, terminal, logger)
			return agent.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "page bridge listen address")
	cmd.Flags().StringVar(&backend, "backend", "", "capacity backend base URL")
	cmd.Flags().StringVar(&token, "token", "", "bearer token for the capacity backend")
	cmd.Flags().BoolVar(&render, "render", false, "draw capacity bars on stderr")
	return cmd
}
