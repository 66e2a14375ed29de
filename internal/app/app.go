package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"

	"refersync/internal/digest"
	"refersync/pkg/config"
	"refersync/pkg/directory"
	"refersync/pkg/logger"
	"refersync/pkg/referral"
	"refersync/pkg/sensor"
	"refersync/pkg/state"
	"refersync/pkg/store"
	"refersync/pkg/syncloop"
	"refersync/pkg/thread"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	store     *store.Store
	threads   *thread.Manager
	referrals *referral.Service
	loop      *syncloop.Loop
	monitor   *sensor.Monitor

	srv          *http.Server
	digestCancel context.CancelFunc
}

// Directories lets callers plug the external patient/doctor directory and
// letter renderer. Zero values fall back to empty in-memory directories.
type Directories struct {
	Patients directory.Patients
	Doctors  directory.Doctors
	Renderer directory.Renderer
}

// New initializes resources that do not require a running context: the
// store, the thread manager, the referral service and the sync loop. It
// does not start the digest job or the HTTP server; call Run for those.
func New(eff config.EffectiveConfigResult, dirs Directories, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	runtimeCfg := &config.RuntimeConfig{BackendKeys: map[string]struct{}{}}
	for _, k := range eff.Config.Security.APIKeys.Backend {
		runtimeCfg.BackendKeys[k] = struct{}{}
	}
	config.SetRuntime(runtimeCfg)

	st, err := store.Open(state.StorePath(eff.DBPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	if dirs.Patients == nil {
		dirs.Patients = directory.StaticPatients{}
	}
	if dirs.Doctors == nil {
		dirs.Doctors = directory.StaticDoctors{}
	}
	if dirs.Renderer == nil {
		dirs.Renderer = directory.TextRenderer{}
	}

	threads := thread.NewManager(st, thread.Options{
		MaxAttachmentBytes: eff.Config.MaxAttachmentBytes(),
		MaxContentLen:      eff.Config.MaxContentLen(),
	})
	referrals := referral.NewService(st, threads, dirs.Patients, dirs.Doctors, dirs.Renderer)
	loop := syncloop.New(st, threads, referrals, syncloop.Options{
		PollInterval:  eff.Config.PollInterval(),
		MarkReadAfter: eff.Config.Sync.MarkReadAfter.Duration(),
	})

	return &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		store:     st,
		threads:   threads,
		referrals: referrals,
		loop:      loop,
		monitor:   sensor.NewMonitor(st, sensor.Config{}),
	}, nil
}

// Store exposes the opened store for tooling built on top of the app.
func (a *App) Store() *store.Store { return a.store }

// Loop exposes the sync loop so embedding processes can open views.
func (a *App) Loop() *syncloop.Loop { return a.loop }

// Run starts the digest scheduler and the HTTP server, and blocks until
// ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	cancel, err := digest.Start(ctx, a.eff.Config.Digest, digest.Deps{Store: a.store})
	if err != nil {
		return err
	}
	a.digestCancel = cancel
	a.monitor.Start(ctx)

	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

func (a *App) shutdown() {
	if a.digestCancel != nil {
		a.digestCancel()
	}
	a.monitor.Stop()
	a.loop.CloseAll()
	if a.srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := a.srv.Shutdown(sctx); err != nil {
			logger.Warn("http_shutdown_error", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		logger.Warn("store_close_error", "error", err)
	}
	logger.Info("shutdown_complete")
}
