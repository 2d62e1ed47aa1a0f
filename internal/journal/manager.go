// Package journal holds the in-memory trade collection and keeps it in step
// with the remote store using optimistic updates.
//
// A mutation is applied locally first and the store call runs in the
// background. If the call fails the collection is restored to the snapshot
// taken just before the mutation and a notice is sent. Mutations are not
// sequenced per trade: two overlapping mutations may finish in either order,
// and a rollback restores the whole pre-mutation snapshot.
package journal

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjannette/trahn-journal/internal/daterange"
	"github.com/kjannette/trahn-journal/internal/models"
	"github.com/kjannette/trahn-journal/internal/remotestore"
)

var (
	ErrTradeNotFound = errors.New("trade not found")
	ErrNotReady      = errors.New("journal is not loaded")
	ErrSetupRequired = errors.New("journal endpoint is not configured")
	ErrRolledBack    = errors.New("change was rolled back")
)

// Store is the remote persistence the manager mirrors.
type Store interface {
	List(ctx context.Context) ([]models.Trade, error)
	Add(ctx context.Context, t models.Trade) (remotestore.Ack, error)
	Update(ctx context.Context, t models.Trade) (remotestore.Ack, error)
	Delete(ctx context.Context, id int64) (remotestore.Ack, error)
}

// Notifier receives user-facing rollback messages.
type Notifier interface {
	Notify(msg string)
}

type State int

const (
	StateLoading State = iota
	StateReady
	StateSetupRequired
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSetupRequired:
		return "setup-required"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// RollbackMessage is the notice sent when a store call for op fails.
func RollbackMessage(op Op) string {
	var what string
	switch op {
	case OpAdd:
		what = "save the new trade"
	case OpUpdate:
		what = "update the trade"
	case OpDelete:
		what = "delete the trade"
	default:
		what = "save your changes"
	}
	return fmt.Sprintf("Error: Could not %s. Your changes have been reverted.", what)
}

type Manager struct {
	store    Store
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time

	mu      sync.RWMutex
	trades  []models.Trade
	state   State
	loadErr error
	lastID  int64

	inflight sync.WaitGroup
}

func NewManager(store Store, notifier Notifier, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:    store,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		trades:   []models.Trade{},
	}
}

// Load fetches the collection once. A missing endpoint moves the manager to
// StateSetupRequired, any other failure to StateFailed.
func (m *Manager) Load(ctx context.Context) error {
	trades, err := m.store.List(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case err == nil:
		trades = slices.Clone(trades)
		if trades == nil {
			trades = []models.Trade{}
		}
		if dups := duplicateIDs(trades); len(dups) > 0 {
			m.log.Warn("journal holds duplicate trade ids", zap.Int64s("ids", dups))
		}
		m.trades = trades
		m.state = StateReady
		m.loadErr = nil
		m.log.Info("journal loaded", zap.Int("trades", len(trades)))
		return nil
	case errors.Is(err, remotestore.ErrNotConfigured):
		m.state = StateSetupRequired
		m.loadErr = err
		m.log.Warn("journal endpoint not configured")
		return fmt.Errorf("%w: %v", ErrSetupRequired, err)
	default:
		m.state = StateFailed
		m.loadErr = err
		m.log.Error("journal load failed", zap.Error(err))
		return fmt.Errorf("load trades: %w", err)
	}
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Err is the error from the last Load, nil when ready.
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadErr
}

// Trades returns a copy of the collection.
func (m *Manager) Trades() []models.Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.trades)
}

// Filtered returns the trades whose date falls inside f relative to now.
func (m *Manager) Filtered(f daterange.Filter, now time.Time) []models.Trade {
	return daterange.Apply(m.Trades(), f, now)
}

// Get returns the trade with id.
func (m *Manager) Get(id int64) (models.Trade, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.indexLocked(id); i >= 0 {
		return m.trades[i], true
	}
	return models.Trade{}, false
}

// Add appends a trade built from d with a fresh id.
func (m *Manager) Add(ctx context.Context, d models.TradeDraft) (models.Trade, *Pending, error) {
	if err := d.Validate(); err != nil {
		return models.Trade{}, nil, err
	}

	m.mu.Lock()
	if err := m.readyLocked(); err != nil {
		m.mu.Unlock()
		return models.Trade{}, nil, err
	}
	t := d.Trade(m.nextIDLocked())
	snapshot := slices.Clone(m.trades)
	m.trades = append(m.trades, t)
	m.mu.Unlock()

	p := m.dispatch(ctx, OpAdd, t.ID, snapshot, func(ctx context.Context) error {
		_, err := m.store.Add(ctx, t)
		return err
	})
	return t, p, nil
}

// Update replaces the fields of trade id with d. The id is kept.
func (m *Manager) Update(ctx context.Context, id int64, d models.TradeDraft) (models.Trade, *Pending, error) {
	if err := d.Validate(); err != nil {
		return models.Trade{}, nil, err
	}

	m.mu.Lock()
	if err := m.readyLocked(); err != nil {
		m.mu.Unlock()
		return models.Trade{}, nil, err
	}
	i := m.indexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return models.Trade{}, nil, fmt.Errorf("%w: %d", ErrTradeNotFound, id)
	}
	t := d.Trade(id)
	snapshot := m.trades
	next := slices.Clone(m.trades)
	next[i] = t
	m.trades = next
	m.mu.Unlock()

	p := m.dispatch(ctx, OpUpdate, id, snapshot, func(ctx context.Context) error {
		_, err := m.store.Update(ctx, t)
		return err
	})
	return t, p, nil
}

func (m *Manager) Delete(ctx context.Context, id int64) (*Pending, error) {
	m.mu.Lock()
	if err := m.readyLocked(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	// The store removes the last row carrying id, so the local list does too.
	i := m.lastIndexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrTradeNotFound, id)
	}
	snapshot := m.trades
	m.trades = slices.Delete(slices.Clone(m.trades), i, i+1)
	m.mu.Unlock()

	return m.dispatch(ctx, OpDelete, id, snapshot, func(ctx context.Context) error {
		_, err := m.store.Delete(ctx, id)
		return err
	}), nil
}

// Wait blocks until every in-flight store call has settled.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

func (m *Manager) dispatch(ctx context.Context, op Op, id int64, snapshot []models.Trade, call func(context.Context) error) *Pending {
	p := newPending(op, id)
	// The caller's cancellation must not abort a mutation already applied.
	ctx = context.WithoutCancel(ctx)

	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()

		err := call(ctx)
		if err == nil {
			m.log.Debug("store acknowledged", zap.String("op", string(op)), zap.Int64("id", id))
			p.resolve("")
			return
		}

		m.mu.Lock()
		m.trades = snapshot
		m.mu.Unlock()

		msg := RollbackMessage(op)
		m.log.Warn("store call failed, rolled back",
			zap.String("op", string(op)),
			zap.Int64("id", id),
			zap.Error(err))
		if m.notifier != nil {
			m.notifier.Notify(msg)
		}
		p.resolve(msg)
	}()
	return p
}

func (m *Manager) readyLocked() error {
	switch m.state {
	case StateReady:
		return nil
	case StateSetupRequired:
		return ErrSetupRequired
	default:
		return ErrNotReady
	}
}

func (m *Manager) indexLocked(id int64) int {
	return slices.IndexFunc(m.trades, func(t models.Trade) bool { return t.ID == id })
}

func (m *Manager) lastIndexLocked(id int64) int {
	for i := len(m.trades) - 1; i >= 0; i-- {
		if m.trades[i].ID == id {
			return i
		}
	}
	return -1
}

func duplicateIDs(trades []models.Trade) []int64 {
	seen := make(map[int64]bool, len(trades))
	var dups []int64
	for _, t := range trades {
		if seen[t.ID] && !slices.Contains(dups, t.ID) {
			dups = append(dups, t.ID)
		}
		seen[t.ID] = true
	}
	return dups
}

// nextIDLocked issues a millisecond timestamp id, bumped past any id already
// issued or present in the collection.
func (m *Manager) nextIDLocked() int64 {
	id := m.now().UnixMilli()
	if id <= m.lastID {
		id = m.lastID + 1
	}
	for m.indexLocked(id) >= 0 {
		id++
	}
	m.lastID = id
	return id
}
