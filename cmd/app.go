package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"repairdesk/internal/backup"
	"repairdesk/internal/config"
	"repairdesk/internal/dataset"
	"repairdesk/internal/gdrive"
	"repairdesk/internal/kv"
	"repairdesk/internal/logger"
	"repairdesk/internal/settings"
	"repairdesk/internal/store"
)

// app holds everything a command needs. The backup scheduler runs for the
// lifetime of the app; close flushes a pending backup before returning.
type app struct {
	cfg       *config.Config
	kv        kv.Store
	store     *store.Store
	settings  *settings.Settings
	codec     *dataset.Codec
	auth      gdrive.Authenticator
	userAuth  *gdrive.UserAuth // nil when a service account is configured
	remote    *gdrive.Remote
	scheduler *backup.Scheduler
	log       zerolog.Logger

	closeKV func() error
	stop    context.CancelFunc
	done    chan struct{}
}

func openApp(ctx context.Context) (*app, error) {
	const op = "openApp"

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a := &app{
		cfg:     cfg,
		log:     logger.WithComponent("app"),
		closeKV: func() error { return nil },
	}

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		g, err := kv.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.kv = g
		a.closeKV = g.Close
	default:
		f, err := kv.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.kv = f
	}

	changes := make(chan struct{}, 1)
	a.store = store.New(a.kv, store.WithChangeSignal(changes))
	if err := a.store.Load(ctx); err != nil {
		_ = a.closeKV()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.settings = settings.New(a.kv)
	a.codec = dataset.NewCodec(a.store, a.settings)

	if err := a.setupDrive(); err != nil {
		_ = a.closeKV()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.scheduler = backup.NewScheduler(a.remote, a.codec, a.settings, changes, cfg.GetBackupConfig(),
		backup.OnResult(a.logResult))

	runCtx, stop := context.WithCancel(context.Background())
	a.stop = stop
	a.done = make(chan struct{})
	go func() {
		defer close(a.done)
		if err := a.scheduler.Run(runCtx); err != nil {
			a.log.Error().Err(err).Msg("Backup scheduler stopped")
		}
	}()

	openLog := logger.WithFields(map[string]interface{}{
		"driver":      cfg.StoreDriver,
		"data_dir":    cfg.DataDir,
		"auto_backup": a.settings.AutoBackupEnabled(ctx),
		"drive":       a.remote.Authenticated(ctx),
	})
	openLog.Debug().Msg("Application opened")

	return a, nil
}

// setupDrive prefers the user OAuth session; a service account key is used
// only when no OAuth client is configured.
func (a *app) setupDrive() error {
	key, err := a.cfg.ServiceAccountKey()
	if err != nil {
		return err
	}

	if a.cfg.DriveClientID == "" && key != nil {
		sa, err := gdrive.NewServiceAccountAuth(key)
		if err != nil {
			return err
		}
		a.auth = sa
	} else {
		a.userAuth = gdrive.NewUserAuth(a.cfg.GetOAuthConfig(), a.kv)
		a.auth = a.userAuth
	}

	a.remote = gdrive.NewRemote(a.auth, a.cfg.DriveFolderID)
	return nil
}

func (a *app) logResult(r backup.Result) {
	if r.Err != nil {
		return
	}
	if r.Cleanup != nil {
		a.log.Warn().Err(r.Cleanup).Str("run_id", r.RunID).Msg("Snapshot cleanup incomplete")
	}
}

// close stops the scheduler, flushing a pending backup, and releases the store.
func (a *app) close() {
	a.stop()
	<-a.done
	if err := a.closeKV(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close store")
	}
}
