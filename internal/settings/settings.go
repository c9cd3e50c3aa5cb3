// Package settings stores the scalar preferences that live next to the
// entity collections: the privacy PIN, the auto-backup flag and the time of
// the last successful backup.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"repairdesk/internal/kv"
	"repairdesk/internal/logger"
)

// Storage keys.
const (
	KeyAppPin     = "appPin"
	KeyAutoBackup = "gdrive_auto_backup"
	KeyLastBackup = "gdrive_last_backup"
)

// Settings reads and writes preferences through a kv.Store.
type Settings struct {
	kv  kv.Store
	log zerolog.Logger
}

// New returns settings backed by store.
func New(store kv.Store) *Settings {
	return &Settings{
		kv:  store,
		log: logger.WithComponent("settings"),
	}
}

func (s *Settings) getString(ctx context.Context, key string) (string, bool, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(raw), true, nil
}

// AutoBackupEnabled reports the auto-backup flag. Read failures count as disabled.
func (s *Settings) AutoBackupEnabled(ctx context.Context) bool {
	v, _, err := s.getString(ctx, KeyAutoBackup)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read auto-backup flag, treating as disabled")
		return false
	}
	return v == "true"
}

// SetAutoBackupEnabled stores the auto-backup flag.
func (s *Settings) SetAutoBackupEnabled(ctx context.Context, enabled bool) error {
	const op = "SetAutoBackupEnabled"

	v := "false"
	if enabled {
		v = "true"
	}
	if err := s.kv.Put(ctx, KeyAutoBackup, []byte(v)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LastBackup returns the last successful backup time, if any.
func (s *Settings) LastBackup(ctx context.Context) (time.Time, bool, error) {
	const op = "LastBackup"

	v, ok, err := s.getString(ctx, KeyLastBackup)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%s: invalid timestamp %q: %w", op, v, err)
	}
	return t, true, nil
}

// SetLastBackup records t as the last successful backup time.
func (s *Settings) SetLastBackup(ctx context.Context, t time.Time) error {
	const op = "SetLastBackup"

	if err := s.kv.Put(ctx, KeyLastBackup, []byte(t.UTC().Format(time.RFC3339Nano))); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AppPin returns the privacy unlock secret, if one was ever set.
func (s *Settings) AppPin(ctx context.Context) (string, bool, error) {
	const op = "AppPin"

	v, ok, err := s.getString(ctx, KeyAppPin)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return v, ok, nil
}

// SetAppPin stores the privacy unlock secret.
func (s *Settings) SetAppPin(ctx context.Context, pin string) error {
	const op = "SetAppPin"

	if err := s.kv.Put(ctx, KeyAppPin, []byte(pin)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
