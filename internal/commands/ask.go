package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"llm-tutor/internal/chat"
	"llm-tutor/internal/domain"
	"llm-tutor/internal/integrations/tutorapi"
)

func newAskCmd() *cobra.Command {
	var (
		url   string
		reset bool
		raw   bool
	)

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send a single message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				return errors.New("ask: message must not be empty")
			}
			if url == "" {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				url = cfg.TutorURL
			}
			client, err := tutorapi.NewClient(url)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			session := chat.NewSession(chat.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
			if err := session.Initialize(ctx, client); err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			if reset {
				session.Reset(ctx, client)
			}

			msg := domain.Message{Role: domain.RoleUser, Content: text}
			if err := session.Send(ctx, client, msg); err != nil {
				return err
			}

			reply, err := lastReply(session.Snapshot())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !raw && isTerminal(out) {
				if rendered, err := glamour.Render(reply, "dark"); err == nil {
					reply = rendered
				}
			}
			_, err = fmt.Fprintln(out, strings.TrimRight(reply, "\n"))
			return err
		},
	}
	cmd.Flags().StringVarP(&url, "url", "u", "", "Backend base URL (default TUTOR_URL)")
	cmd.Flags().BoolVar(&reset, "reset", false, "Reset the router state before asking")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the reply without markdown rendering even on a terminal")
	return cmd
}

func lastReply(snap chat.Snapshot) (string, error) {
	if n := len(snap.Messages); n > 0 && snap.Messages[n-1].Role == domain.RoleAssistant {
		return snap.Messages[n-1].Content, nil
	}
	if snap.Error != "" {
		return "", errors.New(snap.Error)
	}
	return "", errors.New("no reply received")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
