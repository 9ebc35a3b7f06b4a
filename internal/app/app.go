// Package app wires configuration, storage, the trip conversation and the
// Telegram runtime together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	corebootstrap "github.com/m3rciful/tripbot/core/bootstrap"
	corecmd "github.com/m3rciful/tripbot/core/cmd"
	coredatabase "github.com/m3rciful/tripbot/core/database"
	"github.com/m3rciful/tripbot/core/logger"
	tg "github.com/m3rciful/tripbot/core/telegram"
	"github.com/m3rciful/tripbot/core/telegram/router"
	"github.com/m3rciful/tripbot/core/telegram/sender"
	"github.com/m3rciful/tripbot/internal/bot"
	"github.com/m3rciful/tripbot/internal/conversation"
	"github.com/m3rciful/tripbot/internal/storage"
	"github.com/m3rciful/tripbot/internal/storage/csvfile"
	"github.com/m3rciful/tripbot/internal/storage/memory"
	"github.com/m3rciful/tripbot/internal/storage/sqlstore"
)

// App is a bootstrapped tripbot ready to serve Telegram updates.
type App struct {
	cfg  *Config
	ctrl *conversation.Controller
	bot  *bot.Bot

	closers   []io.Closer
	http      *http.Server
	startedAt time.Time
}

// Stores bundles the two persistence contracts of one backend.
type Stores struct {
	Trips   storage.TripLog
	Last    storage.LastReadings
	Closers []io.Closer
}

// LoadConfig adapts Load to the command runner.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// BootstrapApp adapts Bootstrap to the command runner.
func BootstrapApp(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	a, err := Bootstrap(cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Bootstrap initializes logging, the selected storage backend and the conversation.
func Bootstrap(cfg *Config) (*App, error) {
	opts := corebootstrap.Options{Config: &cfg.Config}
	if cfg.Storage.Driver == DriverPostgres {
		pg := cfg.Storage.Postgres
		opts.Database = &pg
	}
	res, err := corebootstrap.Run(opts)
	if err != nil {
		return nil, err
	}

	stores, err := OpenStores(context.Background(), cfg, res)
	if err != nil {
		return nil, err
	}
	return New(cfg, stores), nil
}

// New assembles an App on already opened stores.
func New(cfg *Config, stores Stores) *App {
	ctrl := conversation.New(stores.Trips, stores.Last)
	return &App{
		cfg:       cfg,
		ctrl:      ctrl,
		bot:       bot.New(ctrl, stores.Last),
		closers:   stores.Closers,
		startedAt: time.Now(),
	}
}

// OpenStores builds the backend chosen by storage.driver. res carries the
// Postgres handle opened by the bootstrap pipeline.
func OpenStores(ctx context.Context, cfg *Config, res *corebootstrap.Result) (Stores, error) {
	st := cfg.Storage
	switch st.Driver {
	case DriverFile:
		trips, err := csvfile.NewTripLog(st.Dir)
		if err != nil {
			return Stores{}, err
		}
		last, err := csvfile.NewLastReadings(st.LastKMFile)
		if err != nil {
			return Stores{}, err
		}
		logStorage(ctx, st.Driver, slog.String("path", st.Dir))
		return Stores{Trips: trips, Last: last}, nil

	case DriverSQLite:
		db, err := coredatabase.OpenSQLite(st.SQLitePath)
		if err != nil {
			return Stores{}, err
		}
		s := sqlstore.New(db)
		if err := s.InitSchema(ctx); err != nil {
			_ = s.Close()
			return Stores{}, err
		}
		logStorage(ctx, st.Driver, slog.String("path", st.SQLitePath))
		return Stores{Trips: s, Last: s, Closers: []io.Closer{s}}, nil

	case DriverPostgres:
		if res == nil || res.DB == nil {
			return Stores{}, errors.New("app: postgres storage selected but no database connection")
		}
		s := sqlstore.New(res.DB)
		logStorage(ctx, st.Driver, slog.String("host", st.Postgres.Host))
		return Stores{Trips: s, Last: s, Closers: []io.Closer{s}}, nil

	case DriverMemory:
		logStorage(ctx, st.Driver)
		return Stores{Trips: memory.NewTripLog(), Last: memory.NewLastReadings()}, nil
	}
	return Stores{}, fmt.Errorf("app: unknown storage driver %q", st.Driver)
}

func logStorage(ctx context.Context, driver string, attrs ...slog.Attr) {
	attrs = append([]slog.Attr{slog.String("driver", driver)}, attrs...)
	logger.LogEvent(ctx, logger.Store, slog.LevelInfo, "storage.open", attrs...)
}

// TelegramRunOptions registers the bot and builds the runtime options.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	if err := a.bot.Register(reg); err != nil {
		return tg.RunOptions{}, fmt.Errorf("app: register bot: %w", err)
	}

	core := a.cfg.CoreConfig()
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       core.Telegram.AdminID,
		OnAdminReject: bot.RejectAdmin,
	})
	routes = append(routes, router.CallbackRoute(reg))
	routes = append(routes, router.MessageRoutes(a.bot, reg)...)

	return tg.RunOptions{
		Config:   core,
		Registry: reg,
		DispatcherOptions: sender.Options{
			Workers:    core.Telegram.SenderWorkers,
			MaxRetries: 3,
		},
		Middlewares: tg.DefaultMiddlewares(core, bot.OnRateLimited),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, _ tg.Runtime) error {
	if !a.cfg.HTTPEnabled() {
		return nil
	}
	a.http = newServer(a.cfg.HTTP.Listen, NewHealthHandler(a.ctrl.ActiveSessions, a.startedAt))
	srv := a.http
	go func() {
		logger.LogEvent(ctx, logger.HTTP, slog.LevelInfo, "http.listen", slog.String("listen", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.LogEvent(ctx, logger.HTTP, slog.LevelError, "http.listen", slog.String("err", err.Error()))
		}
	}()
	return nil
}

func (a *App) onStop(ctx context.Context, _ tg.Runtime) error {
	return a.Close(ctx)
}

// Close stops the health listener and releases the stores.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.http != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		errs = append(errs, a.http.Shutdown(shutdownCtx))
		cancel()
		a.http = nil
	}
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
