package cmd

import (
	"errors"
	"fmt"

	"github.com/bnema/stock-admin-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newLoginCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Log in to the store (elevated role first, regular fallback)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.sessions.Login(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}

			identity := app.sessions.CurrentIdentity()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n",
				identity.DisplayName, app.sessions.CurrentRole().Label())
			return nil
		},
	}
}

func newLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and discard the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.sessions.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current identity and role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := restoreSession(cmd, app); err != nil {
				return err
			}

			identity := app.sessions.CurrentIdentity()
			// The role label comes from an unverified token segment; it is
			// informational only and grants nothing.
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) id=%s\n",
				identity.DisplayName, app.sessions.CurrentRole().Label(), identity.ID)
			return nil
		},
	}
}

// restoreSession installs the persisted session for a command that talks to
// the store. Commands fail fast with a hint when no session exists.
func restoreSession(cmd *cobra.Command, app *app) error {
	if app.sessions.IsAuthenticated() {
		return nil
	}
	if err := app.sessions.Restore(cmd.Context()); err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			return fmt.Errorf("%w: run `sa login` first", domain.ErrNotAuthenticated)
		}
		return err
	}
	return nil
}

// remoteErr routes a failed remote call through the session manager so an
// invalidated session logs out exactly once, then returns what the user
// should see.
func remoteErr(cmd *cobra.Command, app *app, err error) error {
	if app.sessions.HandleRemoteError(cmd.Context(), err) {
		return fmt.Errorf("session invalidated by the store: run `sa login` again")
	}
	return err
}
