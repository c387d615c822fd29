package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"autoportal/pkg/client"
	"autoportal/pkg/user"
)

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, a.timeout())
}

func newLoginCmd(a *app) *cobra.Command {
	var login, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with an email address or username",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			s, err := a.client.SignIn(ctx, login, password)
			if err != nil {
				return fmt.Errorf("sign in: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", s.UserID)
			return nil
		},
	}

	cmd.Flags().StringVar(&login, "login", "", "Email address or username")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("login")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var form user.RegisterForm

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a client account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			s, err := a.client.Register(ctx, form)
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
			if s == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "registered; confirm your email address before signing in")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered and signed in as %s\n", s.UserID)
			return nil
		},
	}

	cmd.Flags().StringVar(&form.Username, "username", "", "Username")
	cmd.Flags().StringVar(&form.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&form.Password, "password", "", "Password (at least 6 characters)")
	cmd.Flags().StringVar(&form.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&form.LastName, "last-name", "", "Last name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			if err := a.client.SignOut(ctx); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: server sign-out failed: %v\n", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the saved access token for a fresh one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			s, err := a.client.Refresh(ctx)
			switch {
			case errors.Is(err, client.ErrNoSession):
				return errors.New("not signed in")
			case errors.Is(err, client.ErrUnauthorized):
				return errors.New("session expired, sign in again")
			case err != nil:
				return fmt.Errorf("refresh: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token refreshed for %s\n", s.UserID)
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and their role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			info, err := a.client.Whoami(ctx)
			if errors.Is(err, client.ErrNoSession) {
				fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
				return nil
			}
			if err != nil {
				return fmt.Errorf("whoami: %w", err)
			}

			r, err := a.client.RoleForUser(ctx, info.UserID)
			if err != nil {
				return fmt.Errorf("resolve role: %w", err)
			}
			roleName := r.String()
			if roleName == "" {
				roleName = "none"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "user:    %s\n", info.UserID)
			fmt.Fprintf(out, "email:   %s\n", info.Email)
			fmt.Fprintf(out, "role:    %s\n", roleName)
			if info.ExpiresAt > 0 {
				fmt.Fprintf(out, "expires: %s\n", time.Unix(info.ExpiresAt, 0).UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}
