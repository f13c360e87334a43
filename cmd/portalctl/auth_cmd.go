package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/kelurahan-portal/internal/models"
)

func newLoginCmd(a *app) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as staff and keep the token for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				var err error
				if username, err = a.prompt("Username: "); err != nil {
					return err
				}
			}
			password, err := a.promptPassword("Password: ")
			if err != nil {
				return err
			}
			session, err := a.sessions.Login(cmd.Context(), models.LoginRequest{Username: username, Password: password})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Login berhasil sebagai %s (%s)\n", displayName(session.User), session.User.Role)
			a.debug("token stored at " + a.tokens.Path())
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "staff username (prompted when empty)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored token and forget it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.sessions.Logout(cmd.Context(), cliSessionID); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logout berhasil")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in staff account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := a.sessions.Restore(cmd.Context(), cliSessionID)
			if err != nil {
				return err
			}
			u := session.User
			fmt.Fprintf(a.out, "%s (%s)\nRole:  %s\nEmail: %s\n", displayName(u), u.Username, u.Role, u.Email)
			return nil
		},
	}
}

func displayName(u models.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
