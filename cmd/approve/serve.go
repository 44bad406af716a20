package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lizzy-schoen/claude-approve/internal/api"
	"github.com/lizzy-schoen/claude-approve/internal/logging"
	"github.com/lizzy-schoen/claude-approve/internal/notify"
	"github.com/lizzy-schoen/claude-approve/internal/skill"
	"github.com/lizzy-schoen/claude-approve/internal/store"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the approval API server and voice-skill webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if err := logging.Init(cfg.Logging); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			log := logging.WithComponent("serve")

			st, err := store.Open(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = st.Close() }()

			tokens := notify.NewTokenCache(cfg.Notify)
			dispatcher := notify.NewDispatcher(st, tokens, cfg.Notify)
			sk := skill.New(st, dispatcher)

			srv := api.NewServer(cfg.API, st, dispatcher, api.WithSkillHandler(sk))

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.Info("Starting approval server")
			if err := srv.Start(ctx); err != nil {
				return fmt.Errorf("server: %w", err)
			}

			log.Info("Shutdown complete")
			return nil
		},
	}
}
