package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/easytransact-backend/internal/feed"
	"github.com/ignatzorin/easytransact-backend/internal/models"
)

var (
	watchURL   string
	watchToken string
)

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "http://localhost:8080", "base URL of the server")
	watchCmd.Flags().StringVar(&watchToken, "token", os.Getenv("EASYTRANSACT_TOKEN"), "session token")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch <project-id>",
	Short: "Print the message feed of a project as it changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("watch: некорректный id проекта: %w", err)
		}
		if watchToken == "" {
			return errors.New("watch: нужен --token или EASYTRANSACT_TOKEN")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		printed := 0
		view := feed.NewView()

		err = feed.NewSubscriber(watchURL, watchToken).Run(ctx, projectID, view, func(v *feed.View, ev *models.ChangeEvent) {
			if ev == nil {
				p := v.Project()
				fmt.Fprintf(out, "== %s (%s)\n", p.Name, p.ID)
			}
			msgs := v.Messages()
			for _, m := range msgs[min(printed, len(msgs)):] {
				fmt.Fprintf(out, "[%s] %s %s: %s\n", m.CreatedAt.Format("15:04:05"), m.Type, m.UserID, m.Content)
			}
			printed = len(msgs)
			if ev != nil && ev.Table == models.TableOffers {
				if o := v.Offer(); o != nil {
					fmt.Fprintf(out, "-- offer %q: %s (%.2f)\n", o.Title, o.Status, o.Amount)
				}
			}
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}
