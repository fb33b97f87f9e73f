// Package daemon assembles the running site from a validated config: the
// database, session store, image pipeline and HTTP handler.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/spf13/afero"

	"infocomp/internal/auth"
	"infocomp/internal/config"
	"infocomp/internal/db"
	"infocomp/internal/httpapi"
	"infocomp/internal/images"
	"infocomp/internal/session"
	"infocomp/internal/setup"
)

const (
	sweepInterval   = time.Hour
	shutdownTimeout = 5 * time.Second
)

// NewHasher builds the hasher for new password hashes from config.
func NewHasher(c config.PasswordConfig) auth.Hasher {
	h := auth.DefaultHasher()
	h.Algorithm = c.Algorithm
	if c.BcryptCost > 0 {
		h.BcryptCost = c.BcryptCost
	}
	return h
}

// App is an assembled but not yet listening site.
type App struct {
	DB      *db.DB
	Handler http.Handler

	cfg      config.Config
	logger   *slog.Logger
	api      *httpapi.Server
	sessions *session.Store
}

// New opens the database, bootstraps the admin account and builds the HTTP
// handler. cfg must already be validated. Admin bootstrap problems are logged
// and never abort startup.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Uploads.Dir, 0o755); err != nil {
		return nil, err
	}

	d, err := db.Open(ctx, cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			_ = d.Close()
		}
	}()

	hasher := NewHasher(cfg.Password)
	out, err := setup.EnsureAdmin(ctx, d, hasher, cfg.Admin.Email, cfg.Admin.Password)
	switch {
	case err != nil:
		logger.Error("admin bootstrap failed", "email", cfg.Admin.Email, "err", err)
	case out == setup.OutcomeDisabled:
		logger.Info("admin bootstrap disabled; ADMIN_EMAIL or ADMIN_PASSWORD not set")
	default:
		logger.Info("admin bootstrap", "email", cfg.Admin.Email, "outcome", out.String())
	}

	secret := []byte(cfg.Session.Secret)
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
		if secret == nil {
			return nil, errors.New("generate session secret")
		}
		logger.Warn("session.secret not set; using a random key, sessions will not survive a restart")
	}
	store := session.NewStore(d, secret, cfg.Session.TTL, sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	uploads := afero.NewBasePathFs(afero.NewOsFs(), cfg.Uploads.Dir)
	api := &httpapi.Server{
		Store:          d,
		Auth:           &auth.Authenticator{Users: d, Hasher: hasher},
		Sessions:       &session.Manager{Store: store, Name: cfg.Session.CookieName, Logger: logger},
		Images:         images.New(uploads, "/"),
		Logger:         logger,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
		LoginRateLimit: cfg.HTTP.LoginLimit(),
	}
	h, err := api.Handler()
	if err != nil {
		return nil, err
	}

	ok = true
	return &App{DB: d, Handler: h, cfg: cfg, logger: logger, api: api, sessions: store}, nil
}

// Close releases the handler's background work and the database.
func (a *App) Close() error {
	a.api.Close()
	return a.DB.Close()
}

// SweepSessions deletes expired session rows.
func (a *App) SweepSessions(ctx context.Context) {
	n, err := a.sessions.Sweep(ctx)
	if err != nil {
		a.logger.Warn("session sweep failed", "err", err)
		return
	}
	if n > 0 {
		a.logger.Debug("expired sessions removed", "count", n)
	}
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.sweepLoop(sweepCtx)

	tlsOn := a.cfg.HTTP.TLS.CertPath != ""
	a.logger.Info("listening",
		"addr", ln.Addr().String(),
		"tls", tlsOn,
		"max_upload", humanize.Bytes(uint64(a.cfg.HTTP.MaxUploadBytes)),
		"uploads", a.cfg.Uploads.Dir,
		"db", a.cfg.DB.Path,
	)

	errCh := make(chan error, 1)
	go func() {
		if tlsOn {
			errCh <- srv.ServeTLS(ln, a.cfg.HTTP.TLS.CertPath, a.cfg.HTTP.TLS.KeyPath)
			return
		}
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) sweepLoop(ctx context.Context) {
	a.SweepSessions(ctx)
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.SweepSessions(ctx)
		}
	}
}

// Run assembles the site and serves it until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	app, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	return app.Serve(ctx)
}
