package commands

import (
	"fmt"
	"os"

	"github.com/pscheid92/agromarket/internal/domain"
	apperrors "github.com/pscheid92/agromarket/internal/platform/errors"
	"github.com/spf13/cobra"
)

const passwordEnv = "AGROMARKET_PASSWORD"

// password prefers the flag and falls back to AGROMARKET_PASSWORD, which
// keeps the secret out of shell history.
func password(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if p := os.Getenv(passwordEnv); p != "" {
		return p, nil
	}
	return "", apperrors.ValidationError("Enter your password with --password or " + passwordEnv + ".")
}

func loginCmd(rt *env) *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "login <phone-or-email>",
		Short: "Sign in with a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := password(secret)
			if err != nil {
				return err
			}
			if err := rt.service.Login(cmd.Context(), args[0], pw); err != nil {
				return err
			}
			rt.service.Wait()
			return rt.printSession(rt.service.Snapshot())
		},
	}
	cmd.Flags().StringVar(&secret, "password", "", "account password")
	return cmd
}

func registerCmd(rt *env) *cobra.Command {
	var req domain.RegisterRequest
	var accountType string
	cmd := &cobra.Command{
		Use:   "register <phone>",
		Short: "Create a farmer or buyer account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := password(req.Password)
			if err != nil {
				return err
			}
			req.Phone = args[0]
			req.Password = pw
			req.AccountType = domain.AccountType(accountType)

			outcome, err := rt.service.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			if rt.asJSON {
				return rt.printJSON(outcome)
			}
			msg := firstNonEmpty(outcome.Message, "Account created.")
			if outcome.RequiresVerification {
				msg += fmt.Sprintf("\nConfirm it with: agromarket otp verify %s <code>", req.Phone)
			}
			return rt.printMessage(msg)
		},
	}
	cmd.Flags().StringVar(&accountType, "type", string(domain.AccountTypeFarmer), "account type: farmer or buyer")
	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func otpCmd(rt *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otp",
		Short: "Request or confirm one-time codes",
	}

	var sendPurpose string
	send := &cobra.Command{
		Use:   "send <phone-or-email>",
		Short: "Send a one-time code by SMS or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.service.SendOTP(cmd.Context(), args[0], domain.OTPPurpose(sendPurpose)); err != nil {
				return err
			}
			return rt.printMessage(fmt.Sprintf("Code sent by %s.", domain.ChannelFor(args[0])))
		},
	}
	send.Flags().StringVar(&sendPurpose, "purpose", string(domain.OTPPurposeRegistration), "registration, login or password_reset")

	var verifyPurpose string
	verify := &cobra.Command{
		Use:   "verify <phone-or-email> <code>",
		Short: "Confirm a one-time code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := rt.service.VerifyOTP(ctx, args[0], args[1], domain.OTPPurpose(verifyPurpose)); err != nil {
				return err
			}
			rt.service.Wait()
			snap := rt.service.Snapshot()
			if !snap.Authenticated() {
				return rt.printMessage("Code accepted.")
			}
			return rt.printSession(snap)
		},
	}
	verify.Flags().StringVar(&verifyPurpose, "purpose", string(domain.OTPPurposeRegistration), "registration, login or password_reset")

	cmd.AddCommand(send, verify)
	return cmd
}

func logoutCmd(rt *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget saved credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			// An unreadable or expired session still gets cleared.
			_ = rt.service.Restore(ctx)
			if err := rt.service.Logout(ctx); err != nil {
				return err
			}
			return rt.printMessage("Signed out.")
		},
	}
}

func refreshCmd(rt *env) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := rt.restore(ctx); err != nil {
				return err
			}
			if err := rt.service.RefreshTokens(ctx); err != nil {
				return err
			}
			return rt.printSession(rt.service.Snapshot())
		},
	}
}

func forgotPasswordCmd(rt *env) *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password <phone-or-email>",
		Short: "Start a password reset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.service.ForgotPassword(cmd.Context(), args[0]); err != nil {
				return err
			}
			return rt.printMessage(fmt.Sprintf(
				"If the account exists, a reset code is on its way.\nConfirm it with: agromarket otp verify --purpose password_reset %s <code>", args[0]))
		},
	}
}
