package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REPAIRDESK_DATA_DIR", t.TempDir())
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("BACKUP_QUIET_PERIOD", "")
	t.Setenv("BACKUP_RETENTION", "")
	t.Setenv("BACKUP_FLUSH_ON_EXIT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreDriver != DriverFile {
		t.Errorf("StoreDriver = %q", cfg.StoreDriver)
	}
	b := cfg.GetBackupConfig()
	if b.QuietPeriod != 3*time.Second || b.Retention != 30*24*time.Hour || !b.FlushOnExit {
		t.Errorf("backup config = %+v", b)
	}
	if b.Prefix != "DeepMobileCRM_Backup_" {
		t.Errorf("prefix = %q", b.Prefix)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REPAIRDESK_DATA_DIR", t.TempDir())
	t.Setenv("BACKUP_QUIET_PERIOD", "500ms")
	t.Setenv("BACKUP_RETENTION", "168h")
	t.Setenv("BACKUP_FLUSH_ON_EXIT", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b := cfg.GetBackupConfig()
	if b.QuietPeriod != 500*time.Millisecond || b.Retention != 7*24*time.Hour || b.FlushOnExit {
		t.Errorf("backup config = %+v", b)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"bad duration":         {"BACKUP_QUIET_PERIOD": "soon"},
		"negative retention":   {"BACKUP_RETENTION": "-1h"},
		"unknown driver":       {"STORE_DRIVER": "sqlite"},
		"postgres without url": {"STORE_DRIVER": "postgres", "DATABASE_URL": ""},
		"bad bool":             {"BACKUP_FLUSH_ON_EXIT": "maybe"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("REPAIRDESK_DATA_DIR", t.TempDir())
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("Load succeeded")
			}
		})
	}
}

func TestServiceAccountKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{GoogleCredentialsFile: path, GoogleCredentialsJSON: `{"inline":true}`}
	key, err := cfg.ServiceAccountKey()
	if err != nil || string(key) != `{"type":"service_account"}` {
		t.Fatalf("file key = %s, %v", key, err)
	}

	cfg.GoogleCredentialsFile = ""
	if key, _ := cfg.ServiceAccountKey(); string(key) != `{"inline":true}` {
		t.Fatalf("inline key = %s", key)
	}

	cfg.GoogleCredentialsJSON = ""
	if key, _ := cfg.ServiceAccountKey(); key != nil {
		t.Fatalf("key = %s, want nil", key)
	}
}
