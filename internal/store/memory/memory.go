package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"VestLedger/internal/store"
)

// Store is an in-memory implementation of store.Backend.
// Transactions buffer their writes and apply them under the store lock on
// Commit. There is no conflict detection: callers serialize writers.
type Store struct {
	mu     sync.RWMutex
	tables map[store.Table]map[string]store.Row
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		tables: make(map[store.Table]map[string]store.Row),
	}
}

// Get returns a copy of the committed row.
func (s *Store) Get(_ context.Context, table store.Table, key string) (store.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.tables[table][key]
	if !ok {
		return store.Row{}, store.ErrNotFound
	}
	return copyRow(row), nil
}

// Scan returns committed rows with the given key prefix, ordered by key.
func (s *Store) Scan(_ context.Context, table store.Table, prefix string) ([]store.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []store.Row
	for key, row := range s.tables[table] {
		if strings.HasPrefix(key, prefix) {
			rows = append(rows, copyRow(row))
		}
	}
	sortRows(rows)
	return rows, nil
}

// Begin starts a buffered transaction.
func (s *Store) Begin(_ context.Context) (store.Tx, error) {
	return &tx{
		base:   s,
		writes: make(map[store.Table]map[string]*store.Row),
	}, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// Len returns the number of committed rows in table.
func (s *Store) Len(table store.Table) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table])
}

func (s *Store) apply(writes map[store.Table]map[string]*store.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for table, rows := range writes {
		t, ok := s.tables[table]
		if !ok {
			t = make(map[string]store.Row)
			s.tables[table] = t
		}
		for key, row := range rows {
			if row == nil {
				delete(t, key)
				continue
			}
			t[key] = *row
		}
	}
}

// tx overlays pending writes on the committed tables. A nil entry in
// writes marks a pending delete.
type tx struct {
	base   *Store
	writes map[store.Table]map[string]*store.Row
	done   bool
}

func (t *tx) lookup(ctx context.Context, table store.Table, key string) (store.Row, bool, error) {
	if pending, ok := t.writes[table][key]; ok {
		if pending == nil {
			return store.Row{}, false, nil
		}
		return copyRow(*pending), true, nil
	}
	row, err := t.base.Get(ctx, table, key)
	if err == store.ErrNotFound {
		return store.Row{}, false, nil
	}
	if err != nil {
		return store.Row{}, false, err
	}
	return row, true, nil
}

func (t *tx) stage(table store.Table, key string, row *store.Row) {
	rows, ok := t.writes[table]
	if !ok {
		rows = make(map[string]*store.Row)
		t.writes[table] = rows
	}
	rows[key] = row
}

func (t *tx) Get(ctx context.Context, table store.Table, key string) (store.Row, error) {
	if t.done {
		return store.Row{}, store.ErrTxDone
	}
	row, ok, err := t.lookup(ctx, table, key)
	if err != nil {
		return store.Row{}, err
	}
	if !ok {
		return store.Row{}, store.ErrNotFound
	}
	return row, nil
}

func (t *tx) Scan(ctx context.Context, table store.Table, prefix string) ([]store.Row, error) {
	if t.done {
		return nil, store.ErrTxDone
	}
	committed, err := t.base.Scan(ctx, table, prefix)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]store.Row, len(committed))
	for _, row := range committed {
		merged[row.Key] = row
	}
	for key, pending := range t.writes[table] {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if pending == nil {
			delete(merged, key)
			continue
		}
		merged[key] = copyRow(*pending)
	}

	rows := make([]store.Row, 0, len(merged))
	for _, row := range merged {
		rows = append(rows, row)
	}
	sortRows(rows)
	return rows, nil
}

func (t *tx) Insert(ctx context.Context, table store.Table, row store.Row) error {
	if t.done {
		return store.ErrTxDone
	}
	_, exists, err := t.lookup(ctx, table, row.Key)
	if err != nil {
		return err
	}
	if exists {
		return store.ErrDuplicateKey
	}
	r := copyRow(row)
	t.stage(table, row.Key, &r)
	return nil
}

func (t *tx) Update(ctx context.Context, table store.Table, row store.Row) error {
	if t.done {
		return store.ErrTxDone
	}
	existing, exists, err := t.lookup(ctx, table, row.Key)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	r := copyRow(row)
	if r.Payer == "" {
		r.Payer = existing.Payer
	}
	t.stage(table, row.Key, &r)
	return nil
}

func (t *tx) Delete(ctx context.Context, table store.Table, key string) error {
	if t.done {
		return store.ErrTxDone
	}
	_, exists, err := t.lookup(ctx, table, key)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	t.stage(table, key, nil)
	return nil
}

func (t *tx) Commit(_ context.Context) error {
	if t.done {
		return store.ErrTxDone
	}
	t.done = true
	t.base.apply(t.writes)
	return nil
}

// Rollback discards pending writes. Rolling back a finished tx is a no-op so
// it can be deferred unconditionally.
func (t *tx) Rollback(_ context.Context) error {
	t.done = true
	t.writes = nil
	return nil
}

func copyRow(r store.Row) store.Row {
	value := make([]byte, len(r.Value))
	copy(value, r.Value)
	return store.Row{Key: r.Key, Payer: r.Payer, Value: value}
}

func sortRows(rows []store.Row) {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Key < rows[j].Key
	})
}

var _ store.Backend = (*Store)(nil)
