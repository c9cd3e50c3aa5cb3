package backup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"repairdesk/internal/dataset"
	"repairdesk/internal/logger"
)

// Defaults for Config.
const (
	DefaultPrefix      = "DeepMobileCRM_Backup_"
	DefaultQuietPeriod = 3 * time.Second
	DefaultRetention   = 30 * 24 * time.Hour
)

// StampLayout formats the upload time in snapshot names.
const StampLayout = "2006-01-02T15-04-05.000Z"

// Triggers recorded on a Result.
const (
	TriggerDebounce = "debounce"
	TriggerManual   = "manual"
	TriggerShutdown = "shutdown"
)

// Config controls the scheduler.
type Config struct {
	Prefix      string
	QuietPeriod time.Duration
	Retention   time.Duration
	FlushOnExit bool // upload a pending change when Run stops
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		Prefix:      DefaultPrefix,
		QuietPeriod: DefaultQuietPeriod,
		Retention:   DefaultRetention,
		FlushOnExit: true,
	}
}

// Dataset is what the scheduler uploads and restores.
type Dataset interface {
	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, data []byte) (*dataset.ImportResult, error)
}

// Flags exposes the persisted backup preferences.
type Flags interface {
	AutoBackupEnabled(ctx context.Context) bool
	SetLastBackup(ctx context.Context, t time.Time) error
}

// Result describes one backup attempt.
type Result struct {
	RunID    string
	Trigger  string
	Snapshot Snapshot
	Removed  []Snapshot // deleted by retention cleanup
	Err      error      // upload failure
	Cleanup  error      // cleanup failure, never fatal
	Duration time.Duration
}

// Scheduler debounces change signals into snapshot uploads.
type Scheduler struct {
	remote  Remote
	data    Dataset
	flags   Flags
	cfg     Config
	changes <-chan struct{}
	now     func() time.Time
	log     zerolog.Logger

	mu       sync.Mutex // single flight: one upload or cleanup at a time
	onResult func(Result)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides time.Now for snapshot names and retention.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// OnResult registers fn to be called after every backup attempt.
func OnResult(fn func(Result)) Option {
	return func(s *Scheduler) { s.onResult = fn }
}

// NewScheduler creates a scheduler that consumes changes.
func NewScheduler(remote Remote, data Dataset, flags Flags, changes <-chan struct{}, cfg Config, opts ...Option) *Scheduler {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.QuietPeriod <= 0 {
		cfg.QuietPeriod = DefaultQuietPeriod
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}

	s := &Scheduler{
		remote:  remote,
		data:    data,
		flags:   flags,
		cfg:     cfg,
		changes: changes,
		now:     time.Now,
		log:     logger.WithComponent("backup"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Run consumes change signals until ctx is cancelled. Each signal received
// while auto-backup is enabled (re)starts the quiet period; when it expires
// a snapshot is uploaded. Signals received while auto-backup is disabled are
// dropped. With FlushOnExit a change still pending at cancellation, including
// one not yet received, is uploaded before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		changes = s.changes
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	s.log.Debug().
		Dur("quiet_period", s.cfg.QuietPeriod).
		Dur("retention", s.cfg.Retention).
		Msg("Backup scheduler started")

	for {
		select {
		case <-ctx.Done():
			flushCtx := context.WithoutCancel(ctx)
			pending := fire != nil
			select {
			case _, ok := <-changes:
				pending = pending || (ok && s.flags.AutoBackupEnabled(flushCtx))
			default:
			}
			if pending && s.cfg.FlushOnExit {
				s.log.Info().Msg("Flushing pending backup before exit")
				s.fire(flushCtx, TriggerShutdown)
			}
			return nil

		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if !s.flags.AutoBackupEnabled(ctx) {
				s.log.Debug().Msg("Auto-backup disabled, change ignored")
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.cfg.QuietPeriod)
			} else {
				timer.Reset(s.cfg.QuietPeriod)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			s.fire(ctx, TriggerDebounce)
		}
	}
}

// fire runs a debounced backup when auto-backup is still enabled and the
// remote is signed in. Otherwise the pending change is dropped.
func (s *Scheduler) fire(ctx context.Context, trigger string) {
	if !s.flags.AutoBackupEnabled(ctx) {
		s.log.Debug().Str("trigger", trigger).Msg("Auto-backup disabled, pending backup dropped")
		return
	}
	if !s.remote.Authenticated(ctx) {
		s.log.Debug().Str("trigger", trigger).Msg("Remote signed out, pending backup dropped")
		return
	}
	s.backup(ctx, trigger)
}

// BackupNow uploads a snapshot immediately, regardless of the auto-backup
// flag. It waits for an upload already in progress.
func (s *Scheduler) BackupNow(ctx context.Context) (Result, error) {
	if !s.remote.Authenticated(ctx) {
		return Result{}, wrapError("BackupNow", "", ErrNotSignedIn)
	}
	r := s.backup(ctx, TriggerManual)
	return r, r.Err
}

func (s *Scheduler) backup(ctx context.Context, trigger string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	r := Result{RunID: uuid.NewString(), Trigger: trigger}
	log := s.log.With().Str("run_id", r.RunID).Str("trigger", trigger).Logger()

	name := s.SnapshotName(start)
	snap, err := s.upload(ctx, name)
	if err != nil {
		r.Err = err
		r.Duration = s.now().Sub(start)
		log.Error().Err(err).Str("snapshot", name).Msg("Backup failed")
		s.handleAuthFailure(ctx, err)
		s.report(r)
		return r
	}
	r.Snapshot = snap

	if err := s.flags.SetLastBackup(ctx, start); err != nil {
		log.Warn().Err(err).Msg("Failed to record last backup time")
	}

	r.Removed, r.Cleanup = s.cleanupLocked(ctx)
	r.Duration = s.now().Sub(start)

	log.Info().
		Str("snapshot", snap.Name).
		Str("snapshot_id", snap.ID).
		Int64("bytes", snap.Size).
		Int("removed", len(r.Removed)).
		Dur("duration", r.Duration).
		Msg("Backup uploaded")

	s.report(r)
	return r
}

func (s *Scheduler) upload(ctx context.Context, name string) (Snapshot, error) {
	data, err := s.data.Export(ctx)
	if err != nil {
		return Snapshot{}, wrapError("Export", name, err)
	}
	snap, err := s.remote.Upload(ctx, name, data)
	if err != nil {
		return Snapshot{}, wrapError("Upload", name, err)
	}
	if snap.Name == "" {
		snap.Name = name
	}
	if snap.Size == 0 {
		snap.Size = int64(len(data))
	}
	return snap, nil
}

// SnapshotName returns the object name for an upload at t.
func (s *Scheduler) SnapshotName(t time.Time) string {
	return s.cfg.Prefix + t.UTC().Format(StampLayout) + ".json"
}

// Cleanup deletes snapshots older than the retention window.
func (s *Scheduler) Cleanup(ctx context.Context) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cleanupLocked(ctx)
}

// cleanupLocked collects per-snapshot failures and keeps going.
func (s *Scheduler) cleanupLocked(ctx context.Context) ([]Snapshot, error) {
	snaps, err := s.remote.List(ctx, s.cfg.Prefix)
	if err != nil {
		err = wrapError("Cleanup", "", err)
		s.log.Warn().Err(err).Msg("Failed to list snapshots for cleanup")
		s.handleAuthFailure(ctx, err)
		return nil, err
	}

	cutoff := s.now().Add(-s.cfg.Retention)
	var (
		removed []Snapshot
		errs    []error
	)
	for _, snap := range snaps {
		if !snap.ModifiedTime.Before(cutoff) {
			continue
		}
		if err := s.remote.Delete(ctx, snap.ID); err != nil {
			s.log.Warn().Err(err).Str("snapshot", snap.Name).Msg("Failed to delete expired snapshot")
			errs = append(errs, wrapError("Delete", snap.Name, err))
			continue
		}
		removed = append(removed, snap)
	}

	if len(removed) > 0 {
		s.log.Info().Int("removed", len(removed)).Time("cutoff", cutoff).Msg("Expired snapshots deleted")
	}
	return removed, errors.Join(errs...)
}

// List returns the snapshots with the configured prefix, newest first.
func (s *Scheduler) List(ctx context.Context) ([]Snapshot, error) {
	if !s.remote.Authenticated(ctx) {
		return nil, wrapError("List", "", ErrNotSignedIn)
	}
	snaps, err := s.remote.List(ctx, s.cfg.Prefix)
	if err != nil {
		err = wrapError("List", "", err)
		s.handleAuthFailure(ctx, err)
		return nil, err
	}
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].ModifiedTime.After(snaps[j].ModifiedTime)
	})
	return snaps, nil
}

// Restore downloads the snapshot with id and imports it. An empty id
// restores the newest snapshot.
func (s *Scheduler) Restore(ctx context.Context, id string) (*dataset.ImportResult, error) {
	const op = "Restore"

	if id == "" {
		snaps, err := s.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(snaps) == 0 {
			return nil, wrapError(op, "", errors.New("no snapshots found"))
		}
		id = snaps[0].ID
	} else if !s.remote.Authenticated(ctx) {
		return nil, wrapError(op, id, ErrNotSignedIn)
	}

	data, err := s.remote.Download(ctx, id)
	if err != nil {
		err = wrapError(op, id, err)
		s.handleAuthFailure(ctx, err)
		return nil, err
	}
	res, err := s.data.Import(ctx, data)
	if err != nil {
		return nil, wrapError(op, id, fmt.Errorf("import: %w", err))
	}

	s.log.Info().
		Str("snapshot_id", id).
		Str("applied", strings.Join(res.Applied, ",")).
		Int("failed", len(res.Failed)).
		Msg("Snapshot restored")
	return res, nil
}

func (s *Scheduler) handleAuthFailure(ctx context.Context, err error) {
	if !errors.Is(err, ErrUnauthorized) {
		return
	}
	s.log.Warn().Msg("Remote session expired, signing out")
	if err := s.remote.SignOut(ctx); err != nil {
		s.log.Error().Err(err).Msg("Failed to sign out")
	}
}

func (s *Scheduler) report(r Result) {
	if s.onResult != nil {
		s.onResult(r)
	}
}
