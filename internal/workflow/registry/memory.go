package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evalgo/vaultforge/internal/workflow"
)

// MemoryConfig controls the in-memory Registry.
type MemoryConfig struct {
	// MaxRecords bounds how many records are retained. When exceeded, the
	// oldest-by-CreatedAt record is evicted, mirroring the teacher's
	// capacity-based operation-state eviction.
	MaxRecords int
}

// DefaultMemoryConfig returns sane defaults for local development and tests.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{MaxRecords: 10000}
}

// Memory is an in-process Registry backed by a mutex-guarded map. It is the
// default implementation for local development and the fixture every
// dispatcher/worker test runs against.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*workflow.Record
	cfg     MemoryConfig
	clock   Clock
}

// NewMemory builds a Memory registry.
func NewMemory(cfg MemoryConfig) *Memory {
	return &Memory{
		records: make(map[string]*workflow.Record),
		cfg:     cfg,
		clock:   SystemClock,
	}
}

// WithClock overrides the registry's notion of "now"; used by tests that
// need deterministic timestamps.
func (m *Memory) WithClock(c Clock) *Memory {
	m.clock = c
	return m
}

func (m *Memory) Create(ctx context.Context, typ string, prompts []string, strategy string) (*workflow.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("%w: generating record id: %v", workflow.ErrInternal, err)
	}
	rec := workflow.NewRecord(id.String(), typ, prompts, strategy, m.clock())
	m.records[id.String()] = rec

	if m.cfg.MaxRecords > 0 && len(m.records) > m.cfg.MaxRecords {
		m.evictOldestLocked()
	}

	return rec.Clone(), nil
}

func (m *Memory) MarkRunning(ctx context.Context, id, asyncTaskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", workflow.ErrNotFound, id)
	}
	return rec.Start(asyncTaskID, m.clock())
}

func (m *Memory) ReportProgress(ctx context.Context, id, message string, percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", workflow.ErrNotFound, id)
	}
	return rec.ReportProgress(message, percent)
}

func (m *Memory) MarkCompleted(ctx context.Context, id, branchName string, metadata map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", workflow.ErrNotFound, id)
	}
	return rec.Complete(branchName, metadata, m.clock())
}

func (m *Memory) MarkFailed(ctx context.Context, id, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", workflow.ErrNotFound, id)
	}
	return rec.Fail(errMsg, m.clock())
}

func (m *Memory) Get(ctx context.Context, id string) (*workflow.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", workflow.ErrNotFound, id)
	}
	return rec.Clone(), nil
}

func (m *Memory) List(ctx context.Context, filter ListFilter) ([]*workflow.Record, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*workflow.Record, 0, len(m.records))
	for _, rec := range m.records {
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		matched = append(matched, rec)
	}

	sortByCreatedAtDesc(matched)

	total := len(matched)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if filter.Limit <= 0 || end > total {
		end = total
	}

	page := make([]*workflow.Record, 0, end-start)
	for _, rec := range matched[start:end] {
		page = append(page, rec.Clone())
	}

	return page, total, nil
}

func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var s Stats
	for _, rec := range m.records {
		s.Total++
		switch rec.Status {
		case workflow.StatusPending:
			s.Pending++
		case workflow.StatusRunning:
			s.Running++
		case workflow.StatusCompleted:
			s.Completed++
		case workflow.StatusFailed:
			s.Failed++
		}
	}
	return s, nil
}

// evictOldestLocked removes the record with the smallest CreatedAt. Caller
// must hold m.mu for writing.
func (m *Memory) evictOldestLocked() {
	var oldestID string
	var oldestAt time.Time
	first := true
	for id, rec := range m.records {
		if first || rec.CreatedAt.Before(oldestAt) {
			oldestID = id
			oldestAt = rec.CreatedAt
			first = false
		}
	}
	if oldestID != "" {
		delete(m.records, oldestID)
	}
}

func sortByCreatedAtDesc(recs []*workflow.Record) {
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}
