package progress

// =============================================================================
// LOOKUP INDEXES - Rebuilt from authoritative lists, never owned state
// =============================================================================

// AttendanceLookup resolves a report's attendance reference.
type AttendanceLookup interface {
	Attendance(id AttendanceID) (ProjectAttendance, bool)
}

// AttendanceIndex is an AttendanceLookup over a materialized list.
type AttendanceIndex map[AttendanceID]ProjectAttendance

func NewAttendanceIndex(records []ProjectAttendance) AttendanceIndex {
	idx := make(AttendanceIndex, len(records))
	for _, a := range records {
		idx[a.ID] = a
	}
	return idx
}

func (idx AttendanceIndex) Attendance(id AttendanceID) (ProjectAttendance, bool) {
	a, ok := idx[id]
	return a, ok
}

// ReportIndex maps each task to the reports that give it a value, in report order.
type ReportIndex map[TaskID][]ReportID

// BuildReportIndex derives the task -> report back-reference from the report list.
// Plan entries are not progress and are not indexed.
func BuildReportIndex(reports []ProjectReport) ReportIndex {
	idx := make(ReportIndex)
	for _, r := range reports {
		for _, e := range r.Tasks {
			idx[e.TaskID] = append(idx[e.TaskID], r.ID)
		}
	}
	return idx
}

// ReportsFor returns the reports mentioning the task, or nil.
func (idx ReportIndex) ReportsFor(id TaskID) []ReportID {
	return idx[id]
}
