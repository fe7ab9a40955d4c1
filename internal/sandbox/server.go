package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/agromarket/internal/domain"
	"github.com/pscheid92/agromarket/internal/platform/config"
	"golang.org/x/crypto/bcrypt"
)

type Options struct {
	Clock clockwork.Clock
	// BcryptCost defaults to bcrypt.DefaultCost. Tests lower it.
	BcryptCost int
}

type Server struct {
	echo   *echo.Echo
	config *config.SandboxConfig
	clock  clockwork.Clock

	dir        *directory
	tokens     *tokenIssuer
	bcryptCost int
	startTime  time.Time
}

func New(cfg *config.SandboxConfig, opts Options) *Server {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:   e,
		config: cfg,
		clock:  clock,
		dir:    newDirectory(clock),
		tokens: &tokenIssuer{
			secret: []byte(cfg.JWTSecret),
			ttl:    cfg.TokenTTL,
			clock:  clock,
		},
		bcryptCost: cost,
		startTime:  clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Handler exposes the router, for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	slog.Info("Starting sandbox backend", "port", s.config.Port, "nest_responses", s.config.NestResponses)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// PendingCode returns the undelivered one-time code for identifier.
func (s *Server) PendingCode(identifier string) (string, bool) {
	p, ok := s.dir.pendingCode(identifier)
	return p.code, ok
}

// respond writes resp either as-is or, with SANDBOX_NEST_RESPONSES, moved
// under "data" with success and message left at the top level.
func (s *Server) respond(c echo.Context, status int, resp domain.AuthResponse) error {
	if resp.Success == nil {
		ok := true
		resp.Success = &ok
	}

	body := resp
	if s.config.NestResponses {
		inner := resp
		inner.Success = nil
		inner.Message = ""
		body = domain.AuthResponse{Success: resp.Success, Message: resp.Message, Data: &inner}
	}

	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

// sessionResponse mints a token pair for acct.
func (s *Server) sessionResponse(ctx context.Context, acct account) (domain.AuthResponse, error) {
	access, err := s.tokens.issue(acct.user)
	if err != nil {
		return domain.AuthResponse{}, err
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return domain.AuthResponse{}, err
	}
	s.dir.grant(refresh, acct.user.ID, s.config.RefreshTTL)

	slog.InfoContext(ctx, "Issued session", "user_id", acct.user.ID)

	return domain.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         acct.user.Clone(),
	}, nil
}
