package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pario-ai/semcache/pkg/history"
)

func newSessionsCmd() *cobra.Command {
	var (
		configPath string
		userID     string
		sessionID  string
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect conversation history",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHistory(configPath)
			if err != nil {
				return err
			}
			defer func() { _ = h.Close() }()

			ctx := context.Background()

			// Session detail view
			if sessionID != "" {
				msgs, err := h.Messages(ctx, sessionID)
				if err != nil {
					return err
				}
				if len(msgs) == 0 {
					fmt.Println("No messages found for session.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "#\tTIME\tROLE\tCONTENT")
				for i, m := range msgs {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
						i+1, m.Timestamp.Format("2006-01-02T15:04:05"), m.Role, preview(string(m.Content)))
				}
				return w.Flush()
			}

			if userID == "" {
				return errors.New("--user or --session is required")
			}
			sessions, err := h.ListSessions(ctx, userID)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("No sessions found.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SESSION ID\tTITLE\tCREATED\tLAST ACTIVITY")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					s.ID, s.Title, s.CreatedAt.Format("2006-01-02T15:04:05"), humanize.Time(s.UpdatedAt))
			}
			return w.Flush()
		},
	}

	renameCmd := &cobra.Command{
		Use:   "rename <session-id> <title>",
		Short: "Rename a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHistory(configPath)
			if err != nil {
				return err
			}
			defer func() { _ = h.Close() }()

			if err := h.Rename(context.Background(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("Session renamed.")
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHistory(configPath)
			if err != nil {
				return err
			}
			defer func() { _ = h.Close() }()

			if err := h.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Println("Session deleted.")
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every session of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			h, err := openHistory(configPath)
			if err != nil {
				return err
			}
			defer func() { _ = h.Close() }()

			n, err := h.ClearUser(context.Background(), userID)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %s sessions.\n", humanize.Comma(n))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	cmd.PersistentFlags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&sessionID, "session", "", "show messages of a session")
	cmd.AddCommand(renameCmd, deleteCmd, clearCmd)
	return cmd
}

func openHistory(configPath string) (*history.SQLiteStore, error) {
	cfg, _, err := setup(configPath)
	if err != nil {
		return nil, err
	}
	h, err := history.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init history: %w", err)
	}
	return h, nil
}

func preview(s string) string {
	const limit = 80
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
