package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	pv "github.com/and161185/gophpress/api/pressv1"
)

func saveSession(resp *pv.AuthResponse) error {
	return saveToken(tokenFile{
		AccessToken: resp.Token,
		ExpiresAt:   resp.ExpiresAt,
		UserID:      resp.User.ID,
		Email:       resp.User.Email,
	})
}

func registerCmd(c *cli) *cobra.Command {
	var req pv.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and save its session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Email == "" || req.Password == "" {
				return errors.New("need --email and --password")
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			cl, done, err := c.client()
			if err != nil {
				return err
			}
			defer done()
			resp, err := cl.Register(ctx, &req)
			if err != nil {
				return err
			}
			if err := saveSession(resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.User.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.FirstName, "first", "", "first name")
	f.StringVar(&req.LastName, "last", "", "last name")
	f.StringVarP(&req.Email, "email", "e", "", "email")
	f.StringVarP(&req.Password, "password", "p", "", "password")
	return cmd
}

func loginCmd(c *cli) *cobra.Command {
	var req pv.LoginRequest
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Email == "" || req.Password == "" {
				return errors.New("need --email and --password")
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			cl, done, err := c.client()
			if err != nil {
				return err
			}
			defer done()
			resp, err := cl.Login(ctx, &req)
			if err != nil {
				return err
			}
			if err := saveSession(resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "email")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "password")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return clearToken()
		},
	}
}

func whoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			cl, done, err := c.authed()
			if err != nil {
				return err
			}
			defer done()
			resp, err := cl.Me(ctx, &pv.MeRequest{})
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), resp.User)
			return nil
		},
	}
}

func settingsCmd(c *cli) *cobra.Command {
	var req pv.UpdateSettingsRequest
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Change email and password; the current password is required",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.OldPassword == "" || req.NewPassword == "" {
				return errors.New("need --old and --new")
			}
			tf, err := loadToken()
			if err != nil {
				return err
			}
			if req.Email == "" {
				req.Email = tf.Email
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			cl, done, err := c.authed()
			if err != nil {
				return err
			}
			defer done()
			resp, err := cl.UpdateSettings(ctx, &req)
			if err != nil {
				return err
			}
			tf.Email = resp.User.Email
			if err := saveToken(tf); err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), resp.User)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&req.Email, "email", "e", "", "new email (defaults to the current one)")
	f.StringVar(&req.OldPassword, "old", "", "current password")
	f.StringVar(&req.NewPassword, "new", "", "new password")
	return cmd
}
