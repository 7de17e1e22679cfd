package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/joestump/streakcraft/internal/auth"
	"github.com/joestump/streakcraft/internal/config"
	"github.com/spf13/cobra"
)

// bootstrapStore loads config and runs the session check once with the configured cookie.
func bootstrapStore(ctx context.Context) (*auth.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	client, err := newAuthClient(cfg)
	if err != nil {
		return nil, err
	}
	logger := log.Default()
	store := auth.NewStore(client, logger)
	auth.Bootstrap(ctx, store, client, logger)
	return store, nil
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who the configured session belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := bootstrapStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			printState(cmd.OutOrStdout(), store.Snapshot())
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the configured session on the auth backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := bootstrapStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			// The backend error is already logged; local sign-out always happens.
			_ = store.Logout(cmd.Context())
			printState(cmd.OutOrStdout(), store.Snapshot())
			return nil
		},
	}
}

func printState(w io.Writer, st auth.State) {
	if !st.Authenticated {
		fmt.Fprintln(w, "not signed in")
		return
	}
	id := st.Identity
	fmt.Fprintf(w, "signed in as %s", id.Name())
	if id.Email() != "" {
		fmt.Fprintf(w, " <%s>", id.Email())
	}
	fmt.Fprintln(w)
	exp := id.Expiry()
	switch {
	case !id.Token().Valid():
		fmt.Fprintf(w, "access token expired %s\n", exp.Local().Format(time.RFC1123))
	case !exp.IsZero():
		fmt.Fprintf(w, "access token expires %s\n", exp.Local().Format(time.RFC1123))
	}
}
