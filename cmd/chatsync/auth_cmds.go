package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var identifier, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			engine, _, err := setup(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.Gate.LogIn(ctx, identifier, password); err != nil {
				return err
			}

			user := engine.Gate.CurrentUser()
			if user == nil {
				return errors.New("login did not establish a session")
			}
			fmt.Printf("logged in as %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&identifier, "user", "u", "", "username or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newSignupCmd() *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register an account (requires OTP verification afterwards)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			engine, _, err := setup(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.Gate.SignUp(ctx, username, email, password); err != nil {
				return err
			}
			fmt.Printf("account created, check your inbox and run: chatsync verify --user-id %s --otp <code>\n", engine.Gate.PendingUserID())
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var otp, userID string
	var resend bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a pending account with its OTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			engine, _, err := setup(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			if userID != "" {
				engine.Gate.BeginVerification(userID)
			}

			if resend {
				if err := engine.Gate.ResendOTP(ctx); err != nil {
					return err
				}
				fmt.Println("OTP resent")
				return nil
			}

			if otp == "" {
				return errors.New("--otp is required unless --resend is set")
			}
			if err := engine.Gate.VerifyUser(ctx, otp); err != nil {
				return err
			}
			fmt.Println("account verified")
			return nil
		},
	}

	cmd.Flags().StringVar(&otp, "otp", "", "one-time code")
	cmd.Flags().StringVar(&userID, "user-id", "", "account id reported at signup")
	cmd.Flags().BoolVar(&resend, "resend", false, "resend the OTP instead of verifying")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			engine, _, err := setup(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.Gate.LogOut(ctx); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			engine, _, err := setup(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			user := engine.Gate.CurrentUser()
			if user == nil {
				fmt.Println("not logged in")
				return nil
			}
			fmt.Printf("%s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
}
