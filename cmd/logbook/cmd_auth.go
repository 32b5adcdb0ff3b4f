package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"driver_logbook/internal/models"
	"driver_logbook/internal/session"
)

func newLoginCmd(a *app) *cobra.Command {
	var creds models.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.Username == "" {
				creds.Username = a.prompt("Username")
			}
			if creds.Password == "" {
				creds.Password = a.prompt("Password")
			}
			user, err := a.session.Login(cmd.Context(), creds)
			if err != nil {
				if session.IsAuthError(err) {
					return errors.New("invalid username or password")
				}
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s.\n", user.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var data models.RegisterData
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a driver account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if data.Password2 == "" {
				data.Password2 = data.Password
			}
			user, err := a.session.Register(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Registered and logged in as %s.\n", user.DisplayName())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&data.Username, "username", "u", "", "username")
	f.StringVarP(&data.Password, "password", "p", "", "password")
	f.StringVar(&data.Password2, "confirm", "", "password confirmation (defaults to --password)")
	f.StringVar(&data.Email, "email", "", "email address")
	f.StringVar(&data.FirstName, "first-name", "", "first name")
	f.StringVar(&data.LastName, "last-name", "", "last name")
	f.StringVar(&data.LicenseNumber, "license", "", "license number")
	f.StringVar(&data.Phone, "phone", "", "phone number")
	for _, name := range []string{"username", "password", "email", "first-name", "last-name", "license"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Run: func(cmd *cobra.Command, args []string) {
			a.session.Logout()
			fmt.Fprintln(a.out, "Logged out.")
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in driver and their HOS standing",
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			printDriver(a.out, a.session.User())
			return nil
		}),
	}
}
