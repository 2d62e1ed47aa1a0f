// Package scheduler runs periodic work against the loaded journal.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjannette/trahn-journal/internal/journal"
	"github.com/kjannette/trahn-journal/internal/models"
	"github.com/kjannette/trahn-journal/internal/report"
)

const filePrefix = "trades-"

// Source is the subset of the journal manager the backup needs.
type Source interface {
	State() journal.State
	Trades() []models.Trade
}

type BackupConfig struct {
	Dir      string
	Interval time.Duration // e.g. 1*time.Hour
	Keep     int           // newest files kept; 0 keeps all
}

// BackupScheduler writes a CSV snapshot of the journal on a fixed interval.
type BackupScheduler struct {
	src Source
	cfg BackupConfig
	log *zap.Logger
	now func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

func NewBackupScheduler(src Source, cfg BackupConfig, log *zap.Logger) *BackupScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 1 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BackupScheduler{
		src: src,
		cfg: cfg,
		log: log.Named("backup"),
		now: time.Now,
	}
}

func (s *BackupScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				s.tick(context.Background())
			}
		}
	}()

	s.log.Info("started", zap.String("dir", s.cfg.Dir), zap.Duration("interval", s.cfg.Interval))
}

// tick runs one scheduled backup. An empty or unloaded journal is routine.
func (s *BackupScheduler) tick(ctx context.Context) {
	_, err := s.RunNow(ctx)
	switch {
	case err == nil:
	case errors.Is(err, report.ErrNoData), errors.Is(err, journal.ErrNotReady):
		s.log.Debug("backup skipped", zap.Error(err))
	default:
		s.log.Error("backup failed", zap.Error(err))
	}
}

// Stop halts the ticker and waits for a running backup to finish.
func (s *BackupScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.running = false
	done := s.done
	s.mu.Unlock()

	<-done
	s.log.Info("stopped")
}

func (s *BackupScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunNow writes one snapshot and returns its path. A journal that is not
// ready is skipped; an empty one returns report.ErrNoData.
func (s *BackupScheduler) RunNow(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if st := s.src.State(); st != journal.StateReady {
		return "", fmt.Errorf("%w: journal is %s", journal.ErrNotReady, st)
	}

	trades := s.src.Trades()
	if len(trades) == 0 {
		return "", report.ErrNoData
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name := filePrefix + s.now().UTC().Format("20060102-150405") + ".csv"
	path := filepath.Join(s.cfg.Dir, name)
	tmp, err := os.CreateTemp(s.cfg.Dir, ".tmp-"+name)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if err := report.WriteCSV(tmp, trades); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename backup: %w", err)
	}

	s.log.Info("backup written", zap.String("path", path), zap.Int("trades", len(trades)))

	if err := s.prune(); err != nil {
		s.log.Warn("prune failed", zap.Error(err))
	}
	return path, nil
}

// prune removes the oldest snapshots beyond Keep. File names sort by time.
func (s *BackupScheduler) prune() error {
	if s.cfg.Keep <= 0 {
		return nil
	}
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), filePrefix) && strings.HasSuffix(e.Name(), ".csv") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= s.cfg.Keep {
		return nil
	}
	sort.Strings(names)
	for _, n := range names[:len(names)-s.cfg.Keep] {
		if err := os.Remove(filepath.Join(s.cfg.Dir, n)); err != nil {
			return err
		}
	}
	return nil
}
