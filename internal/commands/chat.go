package commands

import (
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"llm-tutor/internal/chat"
	"llm-tutor/internal/integrations/tutorapi"
	"llm-tutor/internal/tui"
)

func newChatCmd() *cobra.Command {
	var (
		url     string
		logFile string
		style   string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat client",
		Long: `Open the terminal chat client. The conversation starts once the backend
finished initialization. Press ctrl+r to start over and esc to quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				url = cfg.TutorURL
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			if logFile != "" {
				f, err := tea.LogToFile(logFile, "tutor")
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				logger = slog.New(slog.NewTextHandler(f, nil))
			}

			client, err := tutorapi.NewClient(url)
			if err != nil {
				return err
			}
			session := chat.NewSession(chat.WithLogger(logger))
			model := tui.New(cmd.Context(), session, client, tui.WithStyle(style), tui.WithLogger(logger))

			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run chat: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&url, "url", "u", "", "Backend base URL (default TUTOR_URL)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write client logs to this file")
	cmd.Flags().StringVar(&style, "style", "dark", "Markdown style for replies (dark, light, notty)")
	return cmd
}
