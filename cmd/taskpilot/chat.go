package main

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/PabloGalante/taskpilot/internal/app/conversation"
	"github.com/PabloGalante/taskpilot/internal/domain"
)

var chatUserID string

// markerComment hides marker blocks when printing; the transcript keeps them.
var markerComment = regexp.MustCompile(`(?s)\s*<!--.*?-->`)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant from the terminal",
	Long: `Starts a local chat loop. The transcript lives in this process and is
resent on every turn, exactly like an HTTP client would do.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := buildApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		var (
			conv  domain.Conversation
			state string
		)
		in := bufio.NewScanner(cmd.InOrStdin())
		out := cmd.OutOrStdout()

		interactive := term.IsTerminal(int(os.Stdin.Fd()))
		if interactive {
			fmt.Fprintln(out, "Type a message, or /quit to exit.")
		}
		for {
			if interactive {
				fmt.Fprint(out, "> ")
			}
			if !in.Scan() {
				return in.Err()
			}
			line := strings.TrimSpace(in.Text())
			switch line {
			case "":
				continue
			case "/quit", "/exit":
				return nil
			}

			conv = append(conv, domain.Message{Role: domain.RoleUser, Content: line})
			res, err := a.chat.Respond(cmd.Context(), conversation.RespondInput{
				UserID:     domain.UserID(chatUserID),
				Messages:   conv,
				StateToken: state,
			})
			if err != nil {
				// Drop the unanswered turn so the transcript stays consistent.
				conv = conv[:len(conv)-1]
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}

			conv = append(conv, domain.Message{Role: domain.RoleAssistant, Content: res.Text})
			state = res.StateToken
			fmt.Fprintln(out, strings.TrimSpace(markerComment.ReplaceAllString(res.Text, "")))
		}
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatUserID, "user", "local-user", "user id the tasks belong to")
}
