package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/taskchat/internal/app/conversation"
	"github.com/PabloGalante/taskchat/internal/config"
	"github.com/PabloGalante/taskchat/internal/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the task manager from the terminal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		return chatLoop(cmd.Context(), a.chat, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// chatLoop reads one message per line until EOF or "exit".
func chatLoop(ctx context.Context, svc *conversation.Service, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "taskchat: type a message, or 'exit' to quit.")

	var sessionID domain.SessionID
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		res, err := svc.SendMessage(ctx, conversation.SendMessageInput{
			SessionID: sessionID,
			Text:      line,
		})
		if errors.Is(err, conversation.ErrSessionNotFound) {
			fmt.Fprintln(out, "Your session expired, starting a new one.")
			sessionID = ""
			continue
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		sessionID = res.Session.ID
		fmt.Fprintln(out, res.BotMessage.Content)
	}
}
