package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"repairdesk/internal/kv"
)

func TestAutoBackupFlag(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	s := New(mem)

	if s.AutoBackupEnabled(ctx) {
		t.Fatal("enabled before it was ever set")
	}

	tests := []struct {
		enabled bool
		stored  string
	}{
		{enabled: true, stored: "true"},
		{enabled: false, stored: "false"},
	}
	for _, tt := range tests {
		if err := s.SetAutoBackupEnabled(ctx, tt.enabled); err != nil {
			t.Fatalf("SetAutoBackupEnabled(%v): %v", tt.enabled, err)
		}
		raw, err := mem.Get(ctx, KeyAutoBackup)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(raw) != tt.stored {
			t.Errorf("stored %q, want %q", raw, tt.stored)
		}
		if got := s.AutoBackupEnabled(ctx); got != tt.enabled {
			t.Errorf("AutoBackupEnabled() = %v, want %v", got, tt.enabled)
		}
	}
}

func TestAutoBackupReadFailureCountsAsDisabled(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	s := New(mem)

	if err := s.SetAutoBackupEnabled(ctx, true); err != nil {
		t.Fatal(err)
	}
	mem.FailGets = errors.New("read error")
	if s.AutoBackupEnabled(ctx) {
		t.Fatal("AutoBackupEnabled() = true after a read failure")
	}
}

func TestLastBackup(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	s := New(mem)

	if _, ok, err := s.LastBackup(ctx); ok || err != nil {
		t.Fatalf("LastBackup() before any backup = %v, %v", ok, err)
	}

	at := time.Date(2026, time.March, 14, 15, 4, 5, 123456789, time.FixedZone("IST", 5*3600+1800))
	if err := s.SetLastBackup(ctx, at); err != nil {
		t.Fatalf("SetLastBackup: %v", err)
	}
	raw, _ := mem.Get(ctx, KeyLastBackup)
	if want := "2026-03-14T09:34:05.123456789Z"; string(raw) != want {
		t.Fatalf("stored %q, want %q", raw, want)
	}

	got, ok, err := s.LastBackup(ctx)
	if err != nil || !ok {
		t.Fatalf("LastBackup() = %v, %v", ok, err)
	}
	if !got.Equal(at) {
		t.Fatalf("LastBackup() = %s, want %s", got, at)
	}

	if err := mem.Put(ctx, KeyLastBackup, []byte("yesterday")); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := s.LastBackup(ctx); err == nil || ok {
		t.Fatalf("LastBackup() of an invalid value = %v, %v, want error", ok, err)
	}
}

func TestAppPin(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemoryStore())

	if _, ok, err := s.AppPin(ctx); ok || err != nil {
		t.Fatalf("AppPin() before set = %v, %v", ok, err)
	}
	if err := s.SetAppPin(ctx, "4321"); err != nil {
		t.Fatal(err)
	}
	if pin, ok, err := s.AppPin(ctx); err != nil || !ok || pin != "4321" {
		t.Fatalf("AppPin() = %q, %v, %v", pin, ok, err)
	}
}

func TestWriteFailures(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	s := New(mem)

	boom := errors.New("disk full")
	mem.FailPuts = boom

	if err := s.SetAutoBackupEnabled(ctx, true); !errors.Is(err, boom) {
		t.Errorf("SetAutoBackupEnabled error = %v, want %v", err, boom)
	}
	if err := s.SetLastBackup(ctx, time.Now()); !errors.Is(err, boom) {
		t.Errorf("SetLastBackup error = %v, want %v", err, boom)
	}
	if err := s.SetAppPin(ctx, "1"); !errors.Is(err, boom) {
		t.Errorf("SetAppPin error = %v, want %v", err, boom)
	}
	if s.AutoBackupEnabled(ctx) {
		t.Error("failed write enabled auto-backup")
	}
}
