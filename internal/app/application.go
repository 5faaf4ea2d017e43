package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/raysh454/shadowzap/internal/backend"
	"github.com/raysh454/shadowzap/internal/cli"
	"github.com/raysh454/shadowzap/internal/dashboard"
	"github.com/raysh454/shadowzap/internal/logging"
	"github.com/raysh454/shadowzap/internal/metrics"
	"github.com/raysh454/shadowzap/internal/model"
	"github.com/raysh454/shadowzap/internal/scheduler"
	"github.com/raysh454/shadowzap/internal/server"
	"github.com/raysh454/shadowzap/internal/store"
	"github.com/raysh454/shadowzap/internal/tracker"
	"github.com/raysh454/shadowzap/internal/webclient"
)

// ErrScanFailed is returned by Scan when the scan ends in the Failed state.
var ErrScanFailed = errors.New("scan failed")

// Application is the global runtime state container.
// It holds config, parsed CLI args and the services shared by the serve and
// scan commands. Pass Application into modules that need access to the
// global state rather than using package-level variables.
type Application struct {
	Config *Config
	Args   *cli.CLIArgs

	Logger    logging.Logger
	Metrics   *metrics.Metrics
	Backend   *backend.Client
	Tracker   *tracker.Tracker
	Dashboard *dashboard.Service
	Server    *server.Server

	web      webclient.WebClient
	sched    *scheduler.TickerScheduler
	sessions store.SessionStore
	history  store.HistoryStore
	closers  []io.Closer

	// internal context for cancellation / lifecycle
	ctx    context.Context
	cancel context.CancelFunc
}

// NewApplication builds every service from cfg. Callers must call Shutdown to
// release the store and stop background polls.
func NewApplication(cfg *Config, args *cli.CLIArgs, logger logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewStdoutLogger("shadowzap")
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Application{
		Config:  cfg,
		Args:    args,
		Logger:  logger,
		Metrics: metrics.New(),
		ctx:     ctx,
		cancel:  cancel,
	}

	if err := a.openStore(); err != nil {
		cancel()
		return nil, err
	}

	web, err := webclient.NewWebClient(cfg.WebClientCfg, logger)
	if err != nil {
		a.closeAll()
		cancel()
		return nil, fmt.Errorf("creating web client: %w", err)
	}
	a.web = web
	a.closers = append(a.closers, web)

	a.Backend = backend.NewClient(cfg.BackendCfg, web, logger)
	a.sched = scheduler.NewTickerScheduler(ctx)
	a.Tracker = tracker.New(tracker.Config{PollInterval: cfg.PollInterval, SessionTTL: cfg.SessionTTL},
		a.Backend, a.sessions, a.history, a.sched, logger,
		tracker.WithMetrics(a.Metrics), tracker.WithContext(ctx))
	a.Dashboard = dashboard.NewService(a.Backend, a.sessions, a.history, logger)

	srvCfg := cfg.ServerCfg
	srvCfg.PollInterval = cfg.PollInterval
	a.Server = server.NewServer(srvCfg, a.Tracker, a.Backend, a.Dashboard, a.Metrics, logger)

	return a, nil
}

func (a *Application) openStore() error {
	switch a.Config.StoreCfg.Kind {
	case StoreMemory:
		a.sessions = store.NewMemorySessionStore(nil)
		a.history = store.NewMemoryHistoryStore(a.Config.HistoryCap)
		return nil
	case StoreSQLite:
		path, err := expandPath(a.Config.StoreCfg.Path)
		if err != nil {
			return fmt.Errorf("expanding store path: %w", err)
		}
		st, err := store.OpenSQLiteStore(path, a.Config.HistoryCap, a.Logger)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		a.sessions = st
		a.history = st
		a.closers = append(a.closers, st)
		a.Logger.Info("opened store", logging.Field{Key: "path", Value: path})
		return nil
	}
	return fmt.Errorf("unknown store kind %q", a.Config.StoreCfg.Kind)
}

// Serve resumes the scan of the stored session, if any, and runs the local
// API until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	if rec, err := a.Tracker.Resume(ctx); err != nil {
		a.Logger.Warn("resuming scan", logging.Err(err))
	} else if rec != nil {
		a.Logger.Info("resumed scan", logging.Field{Key: "task_id", Value: rec.TaskID}, logging.Field{Key: "status", Value: string(rec.Status)})
	}

	srv := a.Server.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("api listening", logging.Field{Key: "addr", Value: srv.Addr}, logging.Field{Key: "backend", Value: a.Backend.BaseURL()})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving api: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down api: %w", err)
	}
	return nil
}

// Scan submits req, prints every status change to w and waits until the scan
// is terminal or ctx is done. The report links are printed on completion.
func (a *Application) Scan(ctx context.Context, req model.ScanRequest, w io.Writer) (*model.ScanRecord, error) {
	if a == nil {
		return nil, errors.New("application is nil")
	}

	done := make(chan *model.ScanRecord, 1)
	unsubscribe := a.Tracker.Subscribe(func(ev tracker.Event) {
		cli.PrintStatus(w, ev.Record)
		if ev.Type == tracker.EventCompleted || ev.Type == tracker.EventFailed {
			select {
			case done <- ev.Record:
			default:
			}
		}
	})
	defer unsubscribe()

	rec, err := a.Tracker.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	if rec.Status == model.StatusFailed {
		return rec, fmt.Errorf("%w: %s", ErrScanFailed, rec.Error)
	}

	if err := a.Tracker.StartAutoPoll(rec.TaskID, a.Config.PollInterval); err != nil {
		return rec, fmt.Errorf("starting auto-poll: %w", err)
	}

	select {
	case final := <-done:
		if final.Status == model.StatusFailed {
			return final, fmt.Errorf("%w: %s", ErrScanFailed, final.Error)
		}
		cli.PrintReports(w, a.Backend.ReportLinks(final))
		return final, nil
	case <-ctx.Done():
		a.Tracker.StopAutoPoll(rec.TaskID)
		return a.Tracker.Current(), ctx.Err()
	}
}

// Shutdown stops background polls and releases the store and web client.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated")

	a.cancel()

	stopped := make(chan struct{})
	go func() {
		a.sched.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		a.Logger.Warn("timed out waiting for pollers", logging.Err(ctx.Err()))
	}

	return a.closeAll()
}

func (a *Application) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
