package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clearview/internal/api"
	"github.com/ppiankov/clearview/internal/history"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/render"
	"github.com/ppiankov/clearview/internal/session"
	"github.com/ppiankov/clearview/internal/storage"
	"github.com/ppiankov/clearview/internal/worker"
)

var errNotLoggedIn = errors.New("not logged in: run 'clearview login' first")

// env holds the components shared by commands. It is built once per
// invocation and passed explicitly.
type env struct {
	cfg     *model.Config
	logger  *slog.Logger
	store   storage.Store
	session *session.Manager
	client  *api.Client
	history *history.Cache
	limiter *worker.Limiter
	out     *render.Printer
	stdout  io.Writer
	stderr  io.Writer
}

// newEnv wires storage, session, backend client and history for cmd
func newEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Output.Verbose)

	dir := cfg.Storage.Dir
	if dir == "" {
		if dir, err = storage.DefaultDir(); err != nil {
			return nil, err
		}
	}
	store, err := storage.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	mgr := session.NewManager(store, nil)
	mgr.SetLogger(logger)
	if err := mgr.Init(); err != nil {
		logger.Warn("could not restore session", "error", err)
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	client, err := api.NewClient(cfg.API, mgr, api.WithLimiter(limiter), api.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	mgr.SetIssuer(client)

	cache := history.NewCache(store)
	cache.SetLogger(logger)
	cache.Load()

	e := &env{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		session: mgr,
		client:  client,
		history: cache,
		limiter: limiter,
		out:     render.NewPrinter(cmd.OutOrStdout(), cfg.Output.Color),
		stdout:  cmd.OutOrStdout(),
		stderr:  cmd.ErrOrStderr(),
	}
	e.watchSession(cmd)
	return e, nil
}

// watchSession tells the user to sign in again when the backend rejects the
// stored credential. The login command handles its own failures.
func (e *env) watchSession(cmd *cobra.Command) {
	if cmd.Name() == "login" {
		return
	}
	e.session.Subscribe(func(ev session.Event) {
		if ev == session.Invalidated {
			fmt.Fprintln(e.stderr, e.out.Styles().Warn.Render("Your session has expired. Run 'clearview login' to sign in again."))
		}
	})
}

// requireLogin fails fast when no session exists
func (e *env) requireLogin() error {
	if !e.session.IsAuthenticated() {
		return errNotLoggedIn
	}
	return nil
}

// logf prints a progress line when verbose
func (e *env) logf(format string, args ...any) {
	if e.cfg.Output.Verbose {
		fmt.Fprintf(e.stderr, format, args...)
	}
}

// writeFile writes data to path, or to stdout when path is "-"
func (e *env) writeFile(path string, data []byte) error {
	if path == "-" {
		_, err := e.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
