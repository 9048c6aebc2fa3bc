package progress_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/sitetrack/progress"
)

func outsourced(id progress.OutsourceID, entry, exit *progress.MinuteOfDay) progress.AttendanceEntry {
	e := worker("", entry, exit)
	e.Name = string(id)
	e.Outsource = progress.Some(progress.OutsourceWorker{ID: id, Name: string(id)})
	return e
}

// =============================================================================
// ATTENDANCE RECONCILIATION
// =============================================================================

func TestReconcile_WorkedMinutes(t *testing.T) {
	// GIVEN: Entry 08:00 and exit 17:00
	att := attendance(day(1), worker("u-foreman", at(8, 0), at(17, 0)))

	// WHEN: Reconciled
	s := progress.Reconcile(att)

	// THEN: 540 minutes worked
	require.Len(t, s.Entries, 1)
	m, ok := s.Entries[0].Minutes.Get()
	require.True(t, ok)
	assert.Equal(t, 540, m)
	assert.Equal(t, 540, s.Regular.KnownMinutes)
	assert.Equal(t, "9", s.Regular.KnownHours().String())
	assert.True(t, s.Regular.IsComplete())
}

func TestReconcile_MissingExitIsUnknownNotZero(t *testing.T) {
	att := attendance(day(1),
		worker("u-foreman", at(8, 0), nil),
		worker("u-operator", at(7, 30), at(16, 0)),
	)

	s := progress.Reconcile(att)

	assert.False(t, s.Entries[0].Minutes.IsPresent())
	assert.Equal(t, 510, s.Regular.KnownMinutes)
	assert.Equal(t, 1, s.Regular.UnknownEntries)
	assert.False(t, s.Regular.IsComplete())
	assert.Equal(t, 2, s.Regular.CrewSize)
}

func TestReconcile_MissingEntryIsUnknown(t *testing.T) {
	s := progress.Reconcile(attendance(day(1), worker("u-foreman", nil, at(17, 0))))

	assert.False(t, s.Entries[0].Minutes.IsPresent())
	assert.Equal(t, 0, s.Regular.KnownMinutes)
}

func TestReconcile_OutsourcedTotalledSeparately(t *testing.T) {
	// GIVEN: One regular user and two outsourced workers
	att := attendance(day(1),
		worker("u-foreman", at(8, 0), at(12, 0)),
		outsourced("ext-1", at(9, 0), at(10, 0)),
		outsourced("ext-2", at(9, 0), nil),
	)

	// WHEN: Reconciled
	s := progress.Reconcile(att)

	// THEN: Each category has its own totals
	assert.Equal(t, 1, s.Regular.CrewSize)
	assert.Equal(t, 240, s.Regular.KnownMinutes)
	assert.Equal(t, 2, s.Outsourced.CrewSize)
	assert.Equal(t, 60, s.Outsourced.KnownMinutes)
	assert.Equal(t, 1, s.Outsourced.UnknownEntries)
	assert.Equal(t, 3, s.CrewSize())
	assert.True(t, s.Entries[1].Outsourced)
	assert.Equal(t, progress.OutsourceID("ext-1"), s.Entries[1].OutsourceID)
}

func TestReconcile_SplitShiftCountsOnePerson(t *testing.T) {
	att := attendance(day(1),
		worker("u-foreman", at(7, 0), at(11, 0)),
		worker("u-foreman", at(13, 0), at(17, 30)),
	)

	s := progress.Reconcile(att)

	assert.Equal(t, 1, s.Regular.CrewSize)
	assert.Equal(t, 510, s.Regular.KnownMinutes)
	assert.Len(t, s.Entries, 2)
}

func TestCoverage(t *testing.T) {
	p := project()
	att := attendance(day(1),
		worker("u-foreman", at(8, 0), at(17, 0)),
		worker("u-visitor", at(10, 0), at(11, 0)),
		outsourced("ext-1", at(8, 0), at(17, 0)),
	)

	cov := progress.Coverage(progress.Reconcile(att), p)

	assert.Equal(t, 2, cov.RosterSize)
	assert.Equal(t, 1, cov.Present)
	assert.Equal(t, "0.5", cov.Share.OrElse(dec("-1")).String())
	assert.Equal(t, []progress.UserID{"u-visitor"}, cov.OffRoster)
}

func TestCoverage_EmptyRosterUnknownShare(t *testing.T) {
	p := project()
	p.Users = nil

	cov := progress.Coverage(progress.Reconcile(attendance(day(1), worker("u-foreman", at(8, 0), nil))), p)

	assert.False(t, cov.Share.IsPresent())
	assert.Equal(t, []progress.UserID{"u-foreman"}, cov.OffRoster)
}
