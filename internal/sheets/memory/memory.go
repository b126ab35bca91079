// Package memory is an in-process TransactionMirror used in development and
// tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows map[string][]any
	// order keeps first-insert order, like rows appended to a sheet.
	order []string
}

var (
	_ sheets.TransactionMirror = (*Mirror)(nil)
	_ sheets.MirrorLister      = (*Mirror)(nil)
)

func New() *Mirror {
	return &Mirror{rows: make(map[string][]any)}
}

func (m *Mirror) Upsert(_ context.Context, t core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[t.ID]; !ok {
		m.order = append(m.order, t.ID)
	}
	m.rows[t.ID] = sheets.ToRow(t)
	return nil
}

func (m *Mirror) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return nil
	}
	delete(m.rows, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Mirror) MirroredIDs(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...), nil
}

// Rows returns the mirrored rows in sheet order.
func (m *Mirror) Rows() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]any, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, append([]any(nil), m.rows[id]...))
	}
	return out
}

// Transactions decodes the mirror back into transactions ordered by id.
func (m *Mirror) Transactions() []core.Transaction {
	rows := m.Rows()
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		if t, err := sheets.FromRow(r); err == nil {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
