package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lizzy-schoen/claude-approve/internal/logging"
	"github.com/lizzy-schoen/claude-approve/internal/store"
)

var (
	statusTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#7eb8da")) // steel blue

	statusLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#8b949e")) // mid gray

	statusValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#c9d1d9")) // light gray

	statusPendingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#d4a054")) // amber

	statusDoneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7ec699")) // sage green

	statusDeniedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#d48a8a")) // dusty rose
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the notification mode and current request",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Suppress()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = st.Close() }()

			mode, err := st.GetMode()
			if err != nil {
				return fmt.Errorf("read mode: %w", err)
			}

			req, err := st.ReadCurrent("")
			if err != nil {
				return fmt.Errorf("read request: %w", err)
			}

			fmt.Println(statusTitleStyle.Render("Claude Approve"))
			printField("Mode", statusValueStyle.Render(string(mode)))

			if req == nil {
				printField("Request", statusLabelStyle.Render("none"))
				return nil
			}

			printField("Request", statusValueStyle.Render(req.ToolName))
			if req.ToolDetail != "" {
				printField("Detail", statusValueStyle.Render(req.ToolDetail))
			}
			printField("Status", renderStatus(req.Status))
			printField("Created", statusValueStyle.Render(
				time.Unix(req.CreatedAt, 0).Format(time.RFC3339)))

			return nil
		},
	}
}

func printField(label, value string) {
	fmt.Printf("  %s %s\n", statusLabelStyle.Render(label+":"), value)
}

func renderStatus(status string) string {
	switch status {
	case store.StatusApproved:
		return statusDoneStyle.Render(status)
	case store.StatusDenied:
		return statusDeniedStyle.Render(status)
	default:
		return statusPendingStyle.Render(status)
	}
}
