package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-storeform/pkg/prompt"
	"github.com/goliatone/go-storeform/pkg/session"
)

var roles = []string{session.RoleAdmin, session.RoleStore}

func newLoginCmd(a *app) *cobra.Command {
	var token, role, storeID string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API token in the OS keychain",
		Long: `Saves the bearer token issued by the dashboard login screen. Missing
values are prompted for. The token is checked for expiry but not verified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			driver := prompt.NewSurveyDriver(cmd.OutOrStdout())
			var err error
			if token == "" {
				if token, err = driver.Password(ctx, prompt.InputConfig{Message: "Token"}); err != nil {
					return err
				}
			}
			if role == "" {
				idx, err := driver.Select(ctx, prompt.SelectConfig{Message: "Role", Options: roles})
				if err != nil {
					return err
				}
				if idx >= 0 {
					role = roles[idx]
				}
			}
			if role == session.RoleStore && storeID == "" {
				if storeID, err = driver.Input(ctx, prompt.InputConfig{Message: "Store ID", Default: a.cfg.API.StoreID}); err != nil {
					return err
				}
			}

			s, err := session.New(strings.TrimSpace(token), role, strings.TrimSpace(storeID))
			if err != nil {
				return err
			}
			if err := s.Guard("", time.Now()); err != nil {
				return err
			}
			if err := a.sessions.Save(s); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			a.logger.Debug("session stored", zap.String("role", s.Role), zap.Time("expiry", s.Expiry))

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s", s.Role)
			if !s.Expiry.IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), " until %s", s.Expiry.Local().Format(time.RFC1123))
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token (prompted when empty)")
	cmd.Flags().StringVar(&role, "role", "", "session role: admin or store")
	cmd.Flags().StringVar(&storeID, "session-store", "", "store id bound to a store session")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.sessions.Delete()
			if errors.Is(err, session.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
