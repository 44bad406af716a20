package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lizzy-schoen/claude-approve/internal/logging"
	"github.com/lizzy-schoen/claude-approve/internal/relay"
)

func newRelayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Run the chat relay bot",
		Long: `Connects the relay bot to Discord and forwards your direct messages to
the local agent CLI, replying with the agent's output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if cfg.Relay == nil || cfg.Relay.BotToken == "" {
				return fmt.Errorf("relay.bot_token is required, set it in %s", configPath)
			}
			if cfg.Relay.UserID == "" {
				return fmt.Errorf("relay.user_id is required, set it in %s", configPath)
			}

			if err := logging.Init(cfg.Logging); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			log := logging.WithComponent("relay")

			handler := relay.NewHandler(cfg.Relay)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			go func() {
				<-ctx.Done()
				handler.Stop()
			}()

			log.Info("Starting relay bot")
			if err := handler.StartListening(ctx); err != nil && err != context.Canceled {
				return fmt.Errorf("relay: %w", err)
			}

			log.Info("Relay stopped")
			return nil
		},
	}
}
