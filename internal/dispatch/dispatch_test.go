package dispatch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcsd-remove-file/internal/database"
	"pcsd-remove-file/internal/exchange"
	"pcsd-remove-file/internal/fsops"
	"pcsd-remove-file/internal/metrics"
	"pcsd-remove-file/internal/removefile"
)

const (
	authkeyPath  = "/etc/pacemaker/authkey"
	settingsPath = "/var/lib/pcsd/pcs_settings.conf"
)

type recordedEntry struct {
	fileType string
	path     string
	code     string
	message  string
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []recordedEntry
	err     error
}

func (h *fakeHistory) RecordRemoval(_ time.Time, fileType, _, _, path string, result exchange.Result) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, recordedEntry{fileType, path, string(result.Code), result.Message})
	return h.err
}

func (h *fakeHistory) RecordRejected(_ time.Time, fileType, _, _, code, reason string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, recordedEntry{fileType, "", code, reason})
	return h.err
}

// countingRegistry wraps the real registry and counts instantiations
type countingRegistry struct {
	inner *removefile.Registry
	built int
}

func (r *countingRegistry) Lookup(name string) (removefile.Constructor, bool) {
	build, ok := r.inner.Lookup(name)
	if !ok {
		return nil, false
	}
	return func(id, action string) removefile.RemovableFile {
		r.built++
		return build(id, action)
	}, true
}

func newTestDispatcher(t *testing.T, d fsops.Deleter, history History) (*Dispatcher, *countingRegistry, *bytes.Buffer) {
	t.Helper()
	reg := &countingRegistry{inner: removefile.NewRegistry(removefile.Env{
		PacemakerAuthkey: authkeyPath,
		SettingsFilePath: func() string { return settingsPath },
		Deleter:          d,
	})}
	var buf bytes.Buffer
	return New(reg, history, zerolog.New(&buf)), reg, &buf
}

func TestRemoveAuthkeyDeleted(t *testing.T) {
	d := fsops.NewFakeDeleter(authkeyPath)
	history := &fakeHistory{}
	disp, _, logs := newTestDispatcher(t, d, history)

	before := testutil.ToFloat64(metrics.ResultsTotal.WithLabelValues("pcmk_remote_authkey", "deleted"))

	result, err := disp.Remove(context.Background(), Request{Type: "pcmk_remote_authkey"})
	require.NoError(t, err)
	assert.Equal(t, exchange.Deleted(), result)
	assert.False(t, d.Files[authkeyPath])

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ResultsTotal.WithLabelValues("pcmk_remote_authkey", "deleted")))
	require.Len(t, history.entries, 1)
	assert.Equal(t, recordedEntry{"pcmk_remote_authkey", authkeyPath, "deleted", ""}, history.entries[0])
	assert.Contains(t, logs.String(), `"path":"/etc/pacemaker/authkey"`)
}

func TestRemoveSettingsNotFound(t *testing.T) {
	d := fsops.NewFakeDeleter()
	disp, _, _ := newTestDispatcher(t, d, nil)

	result, err := disp.Remove(context.Background(), Request{Type: "pcsd_settings"})
	require.NoError(t, err)
	assert.Equal(t, exchange.NotFound(), result)
	assert.False(t, d.Removed(settingsPath))
}

func TestRemoveUnexpectedIsNotAnError(t *testing.T) {
	d := fsops.NewFakeDeleter(settingsPath)
	d.RemoveErrors[settingsPath] = os.ErrPermission
	history := &fakeHistory{}
	disp, _, logs := newTestDispatcher(t, d, history)

	result, err := disp.Remove(context.Background(), Request{Type: "pcsd_settings"})
	require.NoError(t, err)
	assert.Equal(t, exchange.CodeUnexpected, result.Code)
	assert.NotEmpty(t, result.Message)
	assert.True(t, d.Files[settingsPath])
	assert.Contains(t, logs.String(), `"level":"error"`)
	assert.Equal(t, "unexpected", history.entries[0].code)
}

func TestRemoveUnknownType(t *testing.T) {
	history := &fakeHistory{}
	disp, reg, _ := newTestDispatcher(t, fsops.NewFakeDeleter(authkeyPath), history)

	before := testutil.ToFloat64(metrics.UnknownTypeTotal)

	result, err := disp.Remove(context.Background(), Request{Type: "bogus_type"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.NotFound))
	assert.Contains(t, err.Error(), "bogus_type")
	assert.Equal(t, exchange.Result{}, result)
	assert.Zero(t, reg.built, "no variant may be instantiated for an unknown type")

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.UnknownTypeTotal))
	require.Len(t, history.entries, 1)
	assert.Equal(t, database.CodeUnknownType, history.entries[0].code)
}

func TestRemoveCancelledContext(t *testing.T) {
	d := fsops.NewFakeDeleter(authkeyPath)
	disp, reg, _ := newTestDispatcher(t, d, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := disp.Remove(ctx, Request{Type: "pcmk_remote_authkey"})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, reg.built)
	assert.True(t, d.Files[authkeyPath])
}

func TestRemoveHistoryFailureKeepsResult(t *testing.T) {
	d := fsops.NewFakeDeleter(authkeyPath)
	history := &fakeHistory{err: errors.New("database is locked")}
	disp, _, logs := newTestDispatcher(t, d, history)

	before := testutil.ToFloat64(metrics.HistoryErrorsTotal)

	result, err := disp.Remove(context.Background(), Request{Type: "pcmk_remote_authkey"})
	require.NoError(t, err)
	assert.Equal(t, exchange.Deleted(), result)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.HistoryErrorsTotal))
	assert.Contains(t, logs.String(), "database is locked")
}

// strictFile only accepts the "remove" action
type strictFile struct {
	removefile.Base
}

func (f *strictFile) Validate() error {
	if f.Action() != "remove" {
		return errors.NotValidf("action %q", f.Action())
	}
	return nil
}

type strictRegistry struct {
	deleter fsops.Deleter
	plain   bool
}

func (r strictRegistry) Lookup(name string) (removefile.Constructor, bool) {
	if name != "strict" {
		return nil, false
	}
	return func(id, action string) removefile.RemovableFile {
		if r.plain {
			return &plainRejectFile{Base: removefile.NewBase("plainRejectFile", id, action, r.deleter, func() string { return authkeyPath })}
		}
		return &strictFile{Base: removefile.NewBase("strictFile", id, action, r.deleter, func() string { return authkeyPath })}
	}, true
}

type plainRejectFile struct {
	removefile.Base
}

func (f *plainRejectFile) Validate() error {
	return errors.New("id must be set")
}

func TestRemoveValidationFailure(t *testing.T) {
	d := fsops.NewFakeDeleter(authkeyPath)
	history := &fakeHistory{}
	disp := New(strictRegistry{deleter: d}, history, zerolog.Nop())

	_, err := disp.Remove(context.Background(), Request{Type: "strict", Action: "purge"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.NotValid))
	assert.Contains(t, err.Error(), "purge")
	assert.True(t, d.Files[authkeyPath], "rejected request must not touch the filesystem")
	assert.Empty(t, d.Calls)
	assert.Equal(t, database.CodeInvalid, history.entries[0].code)

	result, err := disp.Remove(context.Background(), Request{Type: "strict", Action: "remove"})
	require.NoError(t, err)
	assert.Equal(t, exchange.Deleted(), result)
}

func TestRemoveValidationFailureWithoutKind(t *testing.T) {
	d := fsops.NewFakeDeleter(authkeyPath)
	disp := New(strictRegistry{deleter: d, plain: true}, nil, zerolog.Nop())

	_, err := disp.Remove(context.Background(), Request{Type: "strict"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.NotValid))
	assert.Contains(t, err.Error(), "id must be set")
	assert.Empty(t, d.Calls)
}

func TestRemoveConcurrentRequests(t *testing.T) {
	dir := t.TempDir()
	paths := make([]string, 8)
	for i := range paths {
		paths[i] = filepath.Join(dir, "authkey-"+string(rune('a'+i)))
		require.NoError(t, os.WriteFile(paths[i], []byte("key"), 0o600))
	}

	var wg sync.WaitGroup
	results := make([]exchange.Result, len(paths))
	for i, p := range paths {
		reg := removefile.NewRegistry(removefile.Env{PacemakerAuthkey: p, SettingsFilePath: func() string { return p }})
		disp := New(reg, nil, zerolog.Nop())
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = disp.Remove(context.Background(), Request{Type: "pcmk_remote_authkey"})
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		assert.Equal(t, exchange.Deleted(), r, paths[i])
	}
}

func TestRemoveRecordsToDatabase(t *testing.T) {
	dir := t.TempDir()
	authkey := filepath.Join(dir, "authkey")
	require.NoError(t, os.WriteFile(authkey, []byte("key"), 0o600))

	db, err := database.NewRemovalDB(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer db.Close()

	reg := removefile.NewRegistry(removefile.Env{
		PacemakerAuthkey: authkey,
		SettingsFilePath: func() string { return filepath.Join(dir, "pcs_settings.conf") },
	})
	disp := New(reg, db, zerolog.Nop())

	for _, req := range []Request{
		{Type: "pcmk_remote_authkey", ID: "node1", Action: "remove"},
		{Type: "pcmk_remote_authkey", ID: "node1", Action: "remove"},
		{Type: "pcsd_settings"},
	} {
		_, err := disp.Remove(context.Background(), req)
		require.NoError(t, err)
	}
	_, err = disp.Remove(context.Background(), Request{Type: "bogus_type"})
	require.Error(t, err)

	counts, err := db.GetRemovalCountByCode()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"deleted": 1, "not_found": 2, database.CodeUnknownType: 1}, counts)

	records, err := db.GetRemovalsByType("pcmk_remote_authkey", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, authkey, records[0].Path)
	assert.Equal(t, "node1", records[0].FileID)
}
