package backup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"repairdesk/internal/dataset"
)

type fakeRemote struct {
	mu        sync.Mutex
	signedIn  bool
	snapshots []Snapshot
	contents  map[string][]byte
	uploads   int
	uploadErr error
	deleteErr map[string]error
	signOuts  int
	now       func() time.Time
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		signedIn:  true,
		contents:  make(map[string][]byte),
		deleteErr: make(map[string]error),
		now:       time.Now,
	}
}

func (f *fakeRemote) Authenticated(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signedIn
}

func (f *fakeRemote) List(_ context.Context, prefix string) ([]Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Snapshot(nil), f.snapshots...), nil
}

func (f *fakeRemote) Upload(_ context.Context, name string, data []byte) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return Snapshot{}, f.uploadErr
	}
	f.uploads++
	snap := Snapshot{ID: fmt.Sprintf("file-%d", f.uploads), Name: name, ModifiedTime: f.now(), Size: int64(len(data))}
	f.snapshots = append(f.snapshots, snap)
	f.contents[snap.ID] = data
	return snap, nil
}

func (f *fakeRemote) Download(_ context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.contents[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (f *fakeRemote) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	for i, s := range f.snapshots {
		if s.ID == id {
			f.snapshots = append(f.snapshots[:i], f.snapshots[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeRemote) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedIn = false
	f.signOuts++
	return nil
}

func (f *fakeRemote) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads
}

type fakeDataset struct {
	exports  atomic.Int32
	imported []byte
}

func (d *fakeDataset) Export(context.Context) ([]byte, error) {
	n := d.exports.Add(1)
	return []byte(fmt.Sprintf(`{"export":%d}`, n)), nil
}

func (d *fakeDataset) Import(_ context.Context, data []byte) (*dataset.ImportResult, error) {
	d.imported = data
	return &dataset.ImportResult{Applied: []string{"customers"}}, nil
}

type fakeFlags struct {
	enabled atomic.Bool
	last    atomic.Int64
}

func (f *fakeFlags) AutoBackupEnabled(context.Context) bool { return f.enabled.Load() }

func (f *fakeFlags) SetLastBackup(_ context.Context, t time.Time) error {
	f.last.Store(t.UnixNano())
	return nil
}

const quiet = 40 * time.Millisecond

type harness struct {
	remote  *fakeRemote
	data    *fakeDataset
	flags   *fakeFlags
	changes chan struct{}
	results chan Result
	sched   *Scheduler
}

func newHarness(cfg Config, opts ...Option) *harness {
	h := &harness{
		remote:  newFakeRemote(),
		data:    &fakeDataset{},
		flags:   &fakeFlags{},
		changes: make(chan struct{}),
		results: make(chan Result, 16),
	}
	h.flags.enabled.Store(true)
	if cfg.QuietPeriod == 0 {
		cfg.QuietPeriod = quiet
	}
	opts = append(opts, OnResult(func(r Result) { h.results <- r }))
	h.sched = NewScheduler(h.remote, h.data, h.flags, h.changes, cfg, opts...)
	return h
}

func (h *harness) run(t *testing.T) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.sched.Run(ctx)
	}()
	return func() {
		stop()
		<-done
	}
}

func (h *harness) await(t *testing.T) Result {
	t.Helper()
	select {
	case r := <-h.results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no backup result")
		return Result{}
	}
}

func (h *harness) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case r := <-h.results:
		t.Fatalf("unexpected backup %+v", r)
	case <-time.After(wait):
	}
}

func TestBurstOfChangesUploadsOnce(t *testing.T) {
	h := newHarness(Config{})
	defer h.run(t)()

	for i := 0; i < 5; i++ {
		h.changes <- struct{}{}
		time.Sleep(quiet / 4)
	}

	r := h.await(t)
	if r.Err != nil || r.Trigger != TriggerDebounce {
		t.Fatalf("result = %+v", r)
	}
	h.expectNone(t, 3*quiet)
	if n := h.remote.uploadCount(); n != 1 {
		t.Fatalf("uploads = %d, want 1", n)
	}
}

func TestSpacedChangesUploadEach(t *testing.T) {
	h := newHarness(Config{})
	defer h.run(t)()

	h.changes <- struct{}{}
	h.await(t)
	h.changes <- struct{}{}
	h.await(t)

	if n := h.remote.uploadCount(); n != 2 {
		t.Fatalf("uploads = %d, want 2", n)
	}
}

func TestDisabledFlagUploadsNothing(t *testing.T) {
	h := newHarness(Config{})
	h.flags.enabled.Store(false)
	defer h.run(t)()

	for i := 0; i < 3; i++ {
		h.changes <- struct{}{}
	}
	h.expectNone(t, 4*quiet)
	if n := h.remote.uploadCount(); n != 0 {
		t.Fatalf("uploads = %d, want 0", n)
	}
}

func TestFlagDisabledDuringQuietPeriodDropsBackup(t *testing.T) {
	h := newHarness(Config{QuietPeriod: 4 * quiet})
	defer h.run(t)()

	h.changes <- struct{}{}
	h.flags.enabled.Store(false)
	h.expectNone(t, 8*quiet)
}

func TestSignedOutDropsPendingBackup(t *testing.T) {
	h := newHarness(Config{})
	h.remote.signedIn = false
	defer h.run(t)()

	h.changes <- struct{}{}
	h.expectNone(t, 4*quiet)
	if n := h.remote.uploadCount(); n != 0 {
		t.Fatalf("uploads = %d, want 0", n)
	}
}

func TestPendingBackupFlushedOnExit(t *testing.T) {
	h := newHarness(Config{QuietPeriod: time.Hour, FlushOnExit: true})
	stop := h.run(t)

	h.changes <- struct{}{}
	stop()

	r := h.await(t)
	if r.Trigger != TriggerShutdown {
		t.Fatalf("trigger = %s, want %s", r.Trigger, TriggerShutdown)
	}
}

func TestPendingBackupDiscardedOnExitWithoutFlush(t *testing.T) {
	h := newHarness(Config{QuietPeriod: time.Hour})
	stop := h.run(t)

	h.changes <- struct{}{}
	stop()

	h.expectNone(t, 2*quiet)
}

func TestRetentionDeletesExpiredSnapshots(t *testing.T) {
	now := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	h := newHarness(Config{Retention: 30 * 24 * time.Hour}, WithClock(func() time.Time { return now }))
	h.remote.now = func() time.Time { return now }
	h.remote.snapshots = []Snapshot{
		{ID: "old", Name: DefaultPrefix + "old.json", ModifiedTime: now.AddDate(0, 0, -31)},
		{ID: "stuck", Name: DefaultPrefix + "stuck.json", ModifiedTime: now.AddDate(0, 0, -40)},
		{ID: "recent", Name: DefaultPrefix + "recent.json", ModifiedTime: now.AddDate(0, 0, -1)},
	}
	h.remote.deleteErr["stuck"] = errors.New("permission denied")

	r, err := h.sched.BackupNow(context.Background())
	if err != nil {
		t.Fatalf("BackupNow: %v", err)
	}
	if len(r.Removed) != 1 || r.Removed[0].ID != "old" {
		t.Fatalf("removed = %+v", r.Removed)
	}
	if r.Cleanup == nil {
		t.Fatal("cleanup error not reported")
	}

	left := map[string]bool{}
	for _, s := range h.remote.snapshots {
		left[s.ID] = true
	}
	if left["old"] || !left["recent"] || !left["stuck"] || !left["file-1"] {
		t.Fatalf("remaining snapshots = %v", left)
	}
	if got := r.Snapshot.Name; got != "DeepMobileCRM_Backup_2026-03-14T09-30-00.000Z.json" {
		t.Fatalf("snapshot name = %s", got)
	}
	if h.flags.last.Load() != now.UnixNano() {
		t.Fatal("last backup time not recorded")
	}
}

func TestUnauthorizedUploadSignsOut(t *testing.T) {
	h := newHarness(Config{})
	h.remote.uploadErr = fmt.Errorf("drive: %w", ErrUnauthorized)

	_, err := h.sched.BackupNow(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	var backupErr *Error
	if !errors.As(err, &backupErr) || backupErr.Op != "Upload" {
		t.Fatalf("error = %#v, want *Error with Op Upload", err)
	}
	if h.remote.signOuts != 1 || h.remote.Authenticated(context.Background()) {
		t.Fatal("remote not signed out after unauthorized upload")
	}
}

func TestOtherUploadFailureKeepsSession(t *testing.T) {
	h := newHarness(Config{})
	h.remote.uploadErr = errors.New("connection reset")

	if _, err := h.sched.BackupNow(context.Background()); err == nil {
		t.Fatal("BackupNow succeeded")
	}
	if h.remote.signOuts != 0 {
		t.Fatal("remote signed out after a transport failure")
	}
	if h.flags.last.Load() != 0 {
		t.Fatal("last backup time recorded after failure")
	}
}

func TestBackupNowIgnoresFlagButNotAuth(t *testing.T) {
	h := newHarness(Config{})
	h.flags.enabled.Store(false)

	if _, err := h.sched.BackupNow(context.Background()); err != nil {
		t.Fatalf("BackupNow with flag off: %v", err)
	}

	h.remote.signedIn = false
	if _, err := h.sched.BackupNow(context.Background()); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("error = %v, want ErrNotSignedIn", err)
	}
	if n := h.remote.uploadCount(); n != 1 {
		t.Fatalf("uploads = %d, want 1", n)
	}
}

func TestRestoreNewest(t *testing.T) {
	base := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	h := newHarness(Config{})
	h.remote.snapshots = []Snapshot{
		{ID: "a", ModifiedTime: base},
		{ID: "b", ModifiedTime: base.Add(time.Hour)},
	}
	h.remote.contents["a"] = []byte(`{"old":true}`)
	h.remote.contents["b"] = []byte(`{"new":true}`)

	snaps, err := h.sched.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snaps[0].ID != "b" {
		t.Fatalf("newest = %s, want b", snaps[0].ID)
	}

	if _, err := h.sched.Restore(context.Background(), ""); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if string(h.data.imported) != `{"new":true}` {
		t.Fatalf("imported %s", h.data.imported)
	}
}

func TestUnreceivedChangeFlushedOnExit(t *testing.T) {
	remote := newFakeRemote()
	flags := &fakeFlags{}
	flags.enabled.Store(true)
	changes := make(chan struct{}, 1)
	changes <- struct{}{}

	sched := NewScheduler(remote, &fakeDataset{}, flags, changes, Config{QuietPeriod: time.Hour, FlushOnExit: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sched.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := remote.uploadCount(); n != 1 {
		t.Fatalf("uploads = %d, want 1", n)
	}
}
