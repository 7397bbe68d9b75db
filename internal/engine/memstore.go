package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/celerix-dev/celerix-bugs/internal/logging"
	"github.com/celerix-dev/celerix-bugs/pkg/schema"
)

// DefaultSeverity is used when a new bug does not name one.
const DefaultSeverity = schema.SeverityMedium

type record struct {
	mu  sync.Mutex
	bug schema.BugReport
}

// MemStore is the thread-safe bug collection.
// mu guards the index and the insertion order; each record's own mutex
// guards its fields. Lock order is always mu before record.mu.
type MemStore struct {
	mu    sync.RWMutex
	index map[string]*record
	order []string

	clock     *Clock
	newID     func() string
	persister *Persistence
	log       *slog.Logger
	wg        sync.WaitGroup

	seqMu sync.Mutex
	seq   uint64
}

// Option configures a MemStore.
type Option func(*MemStore)

// WithClock replaces the timestamp source.
func WithClock(c *Clock) Option {
	return func(m *MemStore) { m.clock = c }
}

// WithIDGenerator replaces the uuid-based id source.
func WithIDGenerator(fn func() string) Option {
	return func(m *MemStore) { m.newID = fn }
}

// NewMemStore initializes a store.
// It accepts existing bugs (from LoadAll) in creation order and a persister,
// either of which may be nil. Invalid or duplicate records are skipped and
// logged. The clock is floored at the newest loaded timestamp.
func NewMemStore(initial []schema.BugReport, p *Persistence, opts ...Option) *MemStore {
	m := &MemStore{
		index:     make(map[string]*record, len(initial)),
		clock:     NewClock(nil),
		newID:     uuid.NewString,
		persister: p,
		log:       logging.New("engine"),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, b := range initial {
		if err := checkLoaded(b); err != nil {
			m.log.Warn("skipping invalid bug record", "bug_id", b.ID, "err", err)
			continue
		}
		if _, dup := m.index[b.ID]; dup {
			m.log.Warn("skipping duplicate bug record", "bug_id", b.ID)
			continue
		}
		m.index[b.ID] = &record{bug: b.Clone()}
		m.order = append(m.order, b.ID)
		m.clock.Observe(b.CreatedAt)
		m.clock.Observe(b.UpdatedAt)
	}
	return m
}

// checkLoaded reports why a persisted record cannot be served.
func checkLoaded(b schema.BugReport) error {
	switch {
	case b.ID == "":
		return errors.New("empty id")
	case !b.Status.Valid():
		return fmt.Errorf("unknown status %q", b.Status)
	case !b.Severity.Valid():
		return fmt.Errorf("unknown severity %q", b.Severity)
	case b.UpdatedAt.Before(b.CreatedAt):
		return fmt.Errorf("updated_at %s before created_at %s", b.UpdatedAt, b.CreatedAt)
	}
	return nil
}

// Wait waits for all background persistence tasks to complete.
func (m *MemStore) Wait() {
	m.wg.Wait()
}

// Len returns the number of stored bugs.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

func (m *MemStore) Create(in schema.NewBugReport, reporter schema.Identity) (schema.BugReport, error) {
	bug, err := m.newBug(in, reporter)
	if err != nil {
		return schema.BugReport{}, err
	}

	m.mu.Lock()
	for {
		if _, taken := m.index[bug.ID]; !taken {
			break
		}
		bug.ID = m.newID()
	}
	m.index[bug.ID] = &record{bug: bug}
	m.order = append(m.order, bug.ID)
	m.mu.Unlock()

	m.persist()
	return bug.Clone(), nil
}

func (m *MemStore) newBug(in schema.NewBugReport, reporter schema.Identity) (schema.BugReport, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	project := strings.TrimSpace(in.Project)

	switch {
	case title == "":
		return schema.BugReport{}, &schema.ValidationError{Field: "title", Reason: "is required"}
	case description == "":
		return schema.BugReport{}, &schema.ValidationError{Field: "description", Reason: "is required"}
	case project == "":
		return schema.BugReport{}, &schema.ValidationError{Field: "project", Reason: "is required"}
	}
	if strings.TrimSpace(reporter.Email) == "" {
		return schema.BugReport{}, &schema.ValidationError{Field: "reporter", Reason: "has no email"}
	}

	severity := in.Severity
	if severity == "" {
		severity = DefaultSeverity
	}
	if !severity.Valid() {
		return schema.BugReport{}, &schema.ValidationError{Field: "severity", Reason: "must be one of low, medium, high, critical"}
	}

	now := m.clock.Now()
	return schema.BugReport{
		ID:          m.newID(),
		Title:       title,
		Description: description,
		Severity:    severity,
		Status:      schema.StatusOpen,
		ReportedBy:  reporter.Email,
		CreatedAt:   now,
		UpdatedAt:   now,
		Project:     project,
	}, nil
}

func (m *MemStore) lookup(id string) (*record, error) {
	m.mu.RLock()
	rec, ok := m.index[id]
	m.mu.RUnlock()
	if !ok {
		return nil, &schema.NotFoundError{ID: id}
	}
	return rec, nil
}

func (m *MemStore) Get(id string) (schema.BugReport, error) {
	rec, err := m.lookup(id)
	if err != nil {
		return schema.BugReport{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.bug.Clone(), nil
}

func (m *MemStore) List() []schema.BugReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]schema.BugReport, 0, len(m.order))
	for _, id := range m.order {
		rec := m.index[id]
		rec.mu.Lock()
		list = append(list, rec.bug.Clone())
		rec.mu.Unlock()
	}
	return list
}

func (m *MemStore) Update(id string, mutate Mutator) (schema.BugReport, error) {
	rec, err := m.lookup(id)
	if err != nil {
		return schema.BugReport{}, err
	}

	rec.mu.Lock()
	next := rec.bug.Clone()
	if err := mutate(&next); err != nil {
		rec.mu.Unlock()
		return schema.BugReport{}, err
	}
	// Identity and audit stamps are not patchable.
	next.ID = rec.bug.ID
	next.ReportedBy = rec.bug.ReportedBy
	next.CreatedAt = rec.bug.CreatedAt
	next.UpdatedAt = m.clock.Now()
	if next.UpdatedAt.Before(rec.bug.UpdatedAt) {
		next.UpdatedAt = rec.bug.UpdatedAt
	}
	rec.bug = next
	out := next.Clone()
	rec.mu.Unlock()

	m.persist()
	return out, nil
}

// persist writes a full snapshot in the background. Snapshots carry a
// sequence number so a slow older write cannot replace a newer one.
func (m *MemStore) persist() {
	if m.persister == nil {
		return
	}
	m.seqMu.Lock()
	m.seq++
	seq := m.seq
	snapshot := m.List()
	m.seqMu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.persister.Save(seq, snapshot)
	}()
}
