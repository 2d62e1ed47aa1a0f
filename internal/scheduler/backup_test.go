package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjannette/trahn-journal/internal/journal"
	"github.com/kjannette/trahn-journal/internal/models"
	"github.com/kjannette/trahn-journal/internal/report"
	"github.com/kjannette/trahn-journal/internal/testutil"
)

type fakeSource struct {
	state  journal.State
	trades []models.Trade
}

func (f *fakeSource) State() journal.State    { return f.state }
func (f *fakeSource) Trades() []models.Trade { return f.trades }

func newTestScheduler(t *testing.T, src Source, keep int) (*BackupScheduler, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "backups")
	s := NewBackupScheduler(src, BackupConfig{Dir: dir, Interval: time.Hour, Keep: keep}, nil)
	clock := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return s, dir
}

func TestBackup_RunNowWritesCSV(t *testing.T) {
	src := &fakeSource{state: journal.StateReady, trades: []models.Trade{testutil.Trade(1, "2024-06-10")}}
	s, dir := newTestScheduler(t, src, 0)

	path, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "trades-20240610-090100.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	drafts, err := report.ReadCSV(f, models.Sell)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "2024-06-10", drafts[0].TradeDate)
}

func TestBackup_SkipsWhenNotReady(t *testing.T) {
	src := &fakeSource{state: journal.StateSetupRequired}
	s, dir := newTestScheduler(t, src, 0)

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, journal.ErrNotReady)
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestBackup_EmptyJournal(t *testing.T) {
	src := &fakeSource{state: journal.StateReady}
	s, _ := newTestScheduler(t, src, 0)

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, report.ErrNoData)
}

func TestBackup_PrunesOldest(t *testing.T) {
	src := &fakeSource{state: journal.StateReady, trades: []models.Trade{testutil.Trade(1, "2024-06-10")}}
	s, dir := newTestScheduler(t, src, 2)

	var paths []string
	for i := 0; i < 4; i++ {
		p, err := s.RunNow(context.Background())
		require.NoError(t, err)
		paths = append(paths, p)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, filepath.Base(paths[2]), entries[0].Name())
	assert.Equal(t, filepath.Base(paths[3]), entries[1].Name())
}

func TestBackup_TickLogsRoutineSkipsAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	src := &fakeSource{state: journal.StateFailed}
	s := NewBackupScheduler(src, BackupConfig{Dir: t.TempDir(), Interval: time.Hour}, zap.New(core))

	s.tick(context.Background())
	s.tick(context.Background())
	src.state = journal.StateReady
	s.tick(context.Background())

	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Equal(t, 3, logs.FilterMessage("backup skipped").Len())
}

func TestBackup_TickLogsWriteFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	src := &fakeSource{state: journal.StateReady, trades: []models.Trade{testutil.Trade(1, "2024-06-10")}}
	s := NewBackupScheduler(src, BackupConfig{Dir: filepath.Join(blocker, "backups"), Interval: time.Hour}, zap.New(core))

	s.tick(context.Background())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).FilterMessage("backup failed").Len())
}

func TestBackup_StartStop(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeSource{state: journal.StateReady}, 0)

	s.Start()
	assert.True(t, s.Running())
	s.Start()
	s.Stop()
	assert.False(t, s.Running())
	s.Stop()
}
