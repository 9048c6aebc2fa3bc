// Package store provides in-memory progress.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/sitetrack/progress"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	projects   map[progress.ProjectID]progress.Project
	order      []progress.ProjectID
	reports    map[progress.ProjectID][]progress.ProjectReport
	attendance map[progress.ProjectID][]progress.ProjectAttendance
	summaries  map[progress.ProjectID]progress.StoredSummary
	reportIDs  map[progress.ReportID]bool
	attIDs     map[progress.AttendanceID]bool
	runs       []progress.RecomputeRun
}

var _ progress.Store = (*Memory)(nil)

func NewMemory() *Memory {
	m := &Memory{}
	m.resetLocked()
	return m
}

func (m *Memory) resetLocked() {
	m.projects = make(map[progress.ProjectID]progress.Project)
	m.order = nil
	m.reports = make(map[progress.ProjectID][]progress.ProjectReport)
	m.attendance = make(map[progress.ProjectID][]progress.ProjectAttendance)
	m.summaries = make(map[progress.ProjectID]progress.StoredSummary)
	m.reportIDs = make(map[progress.ReportID]bool)
	m.attIDs = make(map[progress.AttendanceID]bool)
	m.runs = nil
}

// =============================================================================
// PROJECTS
// =============================================================================

func (m *Memory) SaveProject(_ context.Context, p progress.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.projects[p.ID]; !exists {
		m.order = append(m.order, p.ID)
	}
	m.projects[p.ID] = p
	return nil
}

func (m *Memory) Project(_ context.Context, id progress.ProjectID) (progress.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[id]
	if !ok {
		return progress.Project{}, progress.ErrProjectNotFound
	}
	return p, nil
}

// ListProjects returns projects in the order they were first saved.
func (m *Memory) ListProjects(_ context.Context) ([]progress.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]progress.Project, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.projects[id])
	}
	return result, nil
}

// =============================================================================
// FIELD RECORDS - Append-only, kept sorted by date
// =============================================================================

func (m *Memory) AppendReport(_ context.Context, r progress.ProjectReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[r.ProjectID]; !ok {
		return progress.ErrProjectNotFound
	}
	if m.reportIDs[r.ID] {
		return progress.ErrDuplicateRecord
	}

	rs := m.reports[r.ProjectID]
	// Insert after every record with an equal or earlier date.
	i := sort.Search(len(rs), func(i int) bool {
		return rs[i].Date.After(r.Date)
	})
	rs = append(rs, progress.ProjectReport{})
	copy(rs[i+1:], rs[i:])
	rs[i] = r
	m.reports[r.ProjectID] = rs
	m.reportIDs[r.ID] = true
	return nil
}

func (m *Memory) AppendAttendance(_ context.Context, a progress.ProjectAttendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[a.ProjectID]; !ok {
		return progress.ErrProjectNotFound
	}
	if m.attIDs[a.ID] {
		return progress.ErrDuplicateRecord
	}

	as := m.attendance[a.ProjectID]
	i := sort.Search(len(as), func(i int) bool {
		return as[i].Date.After(a.Date)
	})
	as = append(as, progress.ProjectAttendance{})
	copy(as[i+1:], as[i:])
	as[i] = a
	m.attendance[a.ProjectID] = as
	m.attIDs[a.ID] = true
	return nil
}

func (m *Memory) Reports(_ context.Context, id progress.ProjectID) ([]progress.ProjectReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.projects[id]; !ok {
		return nil, progress.ErrProjectNotFound
	}
	result := make([]progress.ProjectReport, len(m.reports[id]))
	copy(result, m.reports[id])
	return result, nil
}

func (m *Memory) Attendance(_ context.Context, id progress.ProjectID) ([]progress.ProjectAttendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.projects[id]; !ok {
		return nil, progress.ErrProjectNotFound
	}
	result := make([]progress.ProjectAttendance, len(m.attendance[id]))
	copy(result, m.attendance[id])
	return result, nil
}

// =============================================================================
// SUMMARIES
// =============================================================================

func (m *Memory) SaveSummary(_ context.Context, s progress.StoredSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[s.Summary.ProjectID]; !ok {
		return progress.ErrProjectNotFound
	}
	m.summaries[s.Summary.ProjectID] = s
	return nil
}

func (m *Memory) LatestSummary(_ context.Context, id progress.ProjectID) (progress.StoredSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.summaries[id]
	if !ok {
		return progress.StoredSummary{}, progress.ErrSummaryNotFound
	}
	return s, nil
}

// =============================================================================
// RUN LOG
// =============================================================================

func (m *Memory) SaveRun(_ context.Context, run progress.RecomputeRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

// ListRuns returns the newest runs first. limit <= 0 returns all.
func (m *Memory) ListRuns(_ context.Context, limit int) ([]progress.RecomputeRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.runs)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]progress.RecomputeRun, 0, n)
	for i := len(m.runs) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, m.runs[i])
	}
	return result, nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	return nil
}
