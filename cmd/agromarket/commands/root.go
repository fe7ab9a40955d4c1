// Package commands implements the agromarket command line client.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pscheid92/agromarket/internal/adapter/gateway"
	"github.com/pscheid92/agromarket/internal/app"
	"github.com/pscheid92/agromarket/internal/credentials"
	"github.com/pscheid92/agromarket/internal/platform/config"
	apperrors "github.com/pscheid92/agromarket/internal/platform/errors"
	"github.com/pscheid92/agromarket/internal/platform/logging"
	"github.com/pscheid92/agromarket/internal/session"
	"github.com/spf13/cobra"
)

// Exit codes by error type, so scripts can tell a bad password from a dead network.
var exitCodes = map[apperrors.ErrorType]int{
	apperrors.TypeValidation:   2,
	apperrors.TypeUnauthorized: 3,
	apperrors.TypeConflict:     4,
	apperrors.TypeRejected:     5,
	apperrors.TypeTransient:    6,
	apperrors.TypeProtocol:     7,
}

// env is the per-invocation runtime shared by every command.
type env struct {
	cfg     *config.Config
	service *app.Service
	out     io.Writer
	asJSON  bool
	closers []func()
}

func (e *env) close() {
	if e.service != nil {
		e.service.Close()
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// restore loads the saved session. Commands that act on an existing session
// call it first; login and register do not need it.
func (e *env) restore(ctx context.Context) error {
	if err := e.service.Restore(ctx); err != nil {
		return err
	}
	if !e.service.IsAuthenticated() {
		return apperrors.UnauthorizedError("You are not signed in. Run `agromarket login` first.", nil)
	}
	return nil
}

func newRootCmd(rt *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "agromarket",
		Short:         "Sign in to agromarket and manage your account",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["offline"] == "true" {
				return nil
			}
			return rt.init(cmd.Context())
		},
	}
	root.PersistentFlags().BoolVar(&rt.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		loginCmd(rt),
		registerCmd(rt),
		otpCmd(rt),
		logoutCmd(rt),
		refreshCmd(rt),
		forgotPasswordCmd(rt),
		whoamiCmd(rt),
		watchCmd(rt),
		profileCmd(rt),
		contactCmd(rt),
		versionCmd(rt),
	)
	return root
}

func (e *env) init(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	e.cfg = cfg
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	be, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	e.closers = append(e.closers, be.close)

	gw, err := gateway.New(gateway.Config{
		BaseURL:     cfg.APIBaseURL,
		Timeout:     cfg.GatewayTimeout,
		MaxAttempts: cfg.GatewayMaxAttempts,
	})
	if err != nil {
		return err
	}

	manager := session.NewManager(gw, gw, be.store, session.Options{
		Keys:        credentials.NewKeys(cfg.StorePrefix),
		OTPCooldown: cfg.OTPResendCooldown,
		Cooldown:    be.cooldown,
	})
	e.service = app.NewService(manager)
	return nil
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := &env{out: os.Stdout}
	defer rt.close()

	err := newRootCmd(rt).ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var structured *apperrors.Error
	if !errors.As(err, &structured) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	slog.Debug("Command failed", "error", err)
	fmt.Fprintln(os.Stderr, "Error:", apperrors.UserMessage(err))
	if code, ok := exitCodes[structured.Type]; ok {
		return code
	}
	return 1
}
