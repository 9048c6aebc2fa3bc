/*
Package factory converts project documents into progress records.

PURPOSE:
  Site offices keep projects as YAML (or JSON) files; field apps post daily
  reports and attendance as JSON. The documents use the notation people type
  by hand (dates as 2025-03-01, times as "08:00", weather as "heavy rain")
  and the factory turns them into progress types, rejecting anything it
  cannot parse.

DOCUMENT SCHEMA:
  id: prj-embankment
  name: North Embankment
  contract_value: 250000
  groups:
    - {id: earthworks, name: Earthworks}
  users:
    - {user_id: u-foreman, role: foreman}
  tasks:
    - id: excavation
      group: earthworks
      name: Bulk excavation
      volume: 1200
      unit: m3
      cost: 48000
      estimation:
        - {date: 2025-03-03, planned: 200}
        - {date: 2025-03-10, planned: 700}
  attendance:
    - id: att-0303
      date: 2025-03-03
      entries:
        - {user_id: u-foreman, name: Ana, role: foreman, entry: "07:00", exit: "16:30"}
        - {name: Crane op, entry: "09:00", outsource: {id: ext-1, name: LiftCo}}
  reports:
    - id: rep-0303
      date: 2025-03-03
      attendance_id: att-0303
      reported_by: u-foreman
      tasks:
        - {task_id: excavation, value: 180}
      plan:
        - {task_id: excavation}
      weather:
        - {start: "07:00", end: "11:59", condition: sunny}
        - {start: "12:00", end: "16:30", condition: heavy rain}

WEATHER INTERVALS:
  start and end are both included, so 07:00-11:59 covers 300 minutes.
  Back-to-back intervals start one minute after the previous end
  (11:59 then 12:00); 08:00-12:00 followed by 12:00-16:00 overlaps.

PRESENCE:
  A missing optional key (cost, estimation, weather, documentation, exit)
  stays absent. An empty list is present and empty.

SEE ALSO:
  - progress/types.go: Target types
  - api/handlers.go: Accepts ReportDocument and AttendanceDocument over HTTP
*/
package factory

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/sitetrack/progress"
)

// =============================================================================
// DOCUMENT SCHEMA TYPES
// =============================================================================

// ProjectDocument is a project with its field records.
type ProjectDocument struct {
	ID            string               `json:"id" yaml:"id"`
	Name          string               `json:"name" yaml:"name"`
	ContractValue *string              `json:"contract_value,omitempty" yaml:"contract_value"`
	Customer      *CustomerDocument    `json:"customer,omitempty" yaml:"customer"`
	Groups        []GroupDocument      `json:"groups" yaml:"groups"`
	Users         []UserDocument       `json:"users" yaml:"users"`
	Tasks         []TaskDocument       `json:"tasks" yaml:"tasks"`
	Reports       []ReportDocument     `json:"reports,omitempty" yaml:"reports"`
	Attendance    []AttendanceDocument `json:"attendance,omitempty" yaml:"attendance"`
}

type CustomerDocument struct {
	ID     string         `json:"id" yaml:"id"`
	Person PersonDocument `json:"person" yaml:"person"`
}

type PersonDocument struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Role string `json:"role" yaml:"role"`
}

type GroupDocument struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type UserDocument struct {
	UserID string `json:"user_id" yaml:"user_id"`
	Role   string `json:"role" yaml:"role"`
}

type TaskDocument struct {
	ID         string               `json:"id" yaml:"id"`
	Group      string               `json:"group" yaml:"group"`
	Name       string               `json:"name" yaml:"name"`
	Volume     string               `json:"volume" yaml:"volume"`
	Unit       string               `json:"unit" yaml:"unit"`
	Cost       *string              `json:"cost,omitempty" yaml:"cost"`
	Estimation []EstimationDocument `json:"estimation,omitempty" yaml:"estimation"`
	Reports    []string             `json:"reports,omitempty" yaml:"reports"`
}

type EstimationDocument struct {
	Date    string `json:"date" yaml:"date"`
	Planned string `json:"planned" yaml:"planned"`
}

// ReportDocument is one daily report as typed or posted by a field app.
type ReportDocument struct {
	ID            string                  `json:"id" yaml:"id"`
	Date          string                  `json:"date" yaml:"date"`
	AttendanceID  string                  `json:"attendance_id" yaml:"attendance_id"`
	ReportedBy    string                  `json:"reported_by" yaml:"reported_by"`
	Customer      string                  `json:"customer,omitempty" yaml:"customer"`
	Tasks         []ReportEntryDocument   `json:"tasks" yaml:"tasks"`
	Plan          []PlanEntryDocument     `json:"plan,omitempty" yaml:"plan"`
	Weather       []WeatherDocument       `json:"weather,omitempty" yaml:"weather"`
	Documentation []DocumentationDocument `json:"documentation,omitempty" yaml:"documentation"`
}

type ReportEntryDocument struct {
	TaskID  string   `json:"task_id" yaml:"task_id"`
	Value   string   `json:"value" yaml:"value"`
	Details []string `json:"details,omitempty" yaml:"details"`
}

type PlanEntryDocument struct {
	TaskID  string   `json:"task_id" yaml:"task_id"`
	Details []string `json:"details,omitempty" yaml:"details"`
}

type WeatherDocument struct {
	Start     string `json:"start" yaml:"start"`
	End       string `json:"end" yaml:"end"`
	Condition string `json:"condition" yaml:"condition"`
}

type DocumentationDocument struct {
	Image       string  `json:"image" yaml:"image"`
	Description *string `json:"description,omitempty" yaml:"description"`
}

// AttendanceDocument is one day's attendance sheet.
type AttendanceDocument struct {
	ID      string                    `json:"id" yaml:"id"`
	Date    string                    `json:"date" yaml:"date"`
	Entries []AttendanceEntryDocument `json:"entries" yaml:"entries"`
}

type AttendanceEntryDocument struct {
	UserID    string             `json:"user_id,omitempty" yaml:"user_id"`
	Name      string             `json:"name" yaml:"name"`
	Role      string             `json:"role,omitempty" yaml:"role"`
	Entry     *string            `json:"entry,omitempty" yaml:"entry"`
	Exit      *string            `json:"exit,omitempty" yaml:"exit"`
	Outsource *OutsourceDocument `json:"outsource,omitempty" yaml:"outsource"`
}

type OutsourceDocument struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// =============================================================================
// LOADING
// =============================================================================

// Bundle is a decoded project with its field records in date order.
type Bundle struct {
	Project    progress.Project
	Reports    []progress.ProjectReport
	Attendance []progress.ProjectAttendance
}

// Input returns the bundle as an engine input.
func (b Bundle) Input() progress.Input {
	return progress.Input{Project: b.Project, Reports: b.Reports, Attendance: b.Attendance}
}

// LoadFile reads a YAML or JSON project document.
func LoadFile(path string) (Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Bundle{}, fmt.Errorf("read %s: %w", path, err)
	}
	b, err := ParseBundle(data)
	if err != nil {
		return Bundle{}, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Decode reads a project document from r.
func Decode(r io.Reader) (Bundle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Bundle{}, err
	}
	return ParseBundle(data)
}

// ParseBundle parses a YAML or JSON project document. JSON is valid YAML.
func ParseBundle(data []byte) (Bundle, error) {
	doc, err := ParseProjectDocument(data)
	if err != nil {
		return Bundle{}, err
	}
	return doc.ToBundle()
}

// ParseProjectDocument decodes a project document without converting it,
// so callers can fill in missing ids first.
func ParseProjectDocument(data []byte) (ProjectDocument, error) {
	var doc ProjectDocument
	if err := decodeStrict(data, &doc); err != nil {
		return ProjectDocument{}, fmt.Errorf("invalid project document: %w", err)
	}
	return doc, nil
}

// ParseReport decodes one report document.
func ParseReport(data []byte) (ReportDocument, error) {
	var doc ReportDocument
	if err := decodeStrict(data, &doc); err != nil {
		return ReportDocument{}, fmt.Errorf("invalid report document: %w", err)
	}
	return doc, nil
}

// ParseAttendance decodes one attendance document.
func ParseAttendance(data []byte) (AttendanceDocument, error) {
	var doc AttendanceDocument
	if err := decodeStrict(data, &doc); err != nil {
		return AttendanceDocument{}, fmt.Errorf("invalid attendance document: %w", err)
	}
	return doc, nil
}

// decodeStrict rejects keys that no document field maps to.
func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// =============================================================================
// CONVERSION
// =============================================================================

// ToBundle converts the document. Reports and attendance are sorted by date,
// keeping document order among equal dates.
func (d ProjectDocument) ToBundle() (Bundle, error) {
	project, err := d.ToProject()
	if err != nil {
		return Bundle{}, err
	}

	b := Bundle{
		Project:    project,
		Reports:    make([]progress.ProjectReport, 0, len(d.Reports)),
		Attendance: make([]progress.ProjectAttendance, 0, len(d.Attendance)),
	}
	for _, ad := range d.Attendance {
		att, err := ad.ToAttendance(project.ID)
		if err != nil {
			return Bundle{}, err
		}
		b.Attendance = append(b.Attendance, att)
	}
	for _, rd := range d.Reports {
		r, err := rd.ToReport(project.ID)
		if err != nil {
			return Bundle{}, err
		}
		b.Reports = append(b.Reports, r)
	}

	sort.SliceStable(b.Reports, func(i, j int) bool { return b.Reports[i].Date.Before(b.Reports[j].Date) })
	sort.SliceStable(b.Attendance, func(i, j int) bool { return b.Attendance[i].Date.Before(b.Attendance[j].Date) })
	return b, nil
}

// ToProject converts the planned side of the document.
func (d ProjectDocument) ToProject() (progress.Project, error) {
	if d.ID == "" {
		return progress.Project{}, fmt.Errorf("project id is required")
	}

	p := progress.Project{
		ID:     progress.ProjectID(d.ID),
		Name:   d.Name,
		Groups: make([]progress.Group, 0, len(d.Groups)),
		Tasks:  make([]progress.Task, 0, len(d.Tasks)),
		Users:  make([]progress.ProjectUser, 0, len(d.Users)),
	}
	if d.ContractValue != nil {
		v, err := parseDecimal("contract_value", *d.ContractValue)
		if err != nil {
			return progress.Project{}, err
		}
		p.ContractValue = progress.Some(v)
	}
	if d.Customer != nil {
		p.Customer = progress.Customer{
			ID: progress.CustomerID(d.Customer.ID),
			Person: progress.Person{
				ID:   progress.PersonID(d.Customer.Person.ID),
				Name: d.Customer.Person.Name,
				Role: d.Customer.Person.Role,
			},
		}
	}
	for _, g := range d.Groups {
		p.Groups = append(p.Groups, progress.Group{ID: progress.GroupID(g.ID), Name: g.Name})
	}
	for _, u := range d.Users {
		p.Users = append(p.Users, progress.ProjectUser{UserID: progress.UserID(u.UserID), Role: u.Role})
	}
	for _, td := range d.Tasks {
		t, err := td.ToTask()
		if err != nil {
			return progress.Project{}, err
		}
		p.Tasks = append(p.Tasks, t)
	}
	return p, nil
}

func (d TaskDocument) ToTask() (progress.Task, error) {
	volume, err := parseDecimal("task "+d.ID+" volume", d.Volume)
	if err != nil {
		return progress.Task{}, err
	}

	t := progress.Task{
		ID:     progress.TaskID(d.ID),
		Group:  progress.GroupID(d.Group),
		Name:   d.Name,
		Volume: progress.Volume{Value: volume, Unit: d.Unit},
	}
	if d.Cost != nil {
		cost, err := parseDecimal("task "+d.ID+" cost", *d.Cost)
		if err != nil {
			return progress.Task{}, err
		}
		t.Cost = progress.Some(cost)
	}
	if d.Estimation != nil {
		est := make([]progress.Estimation, 0, len(d.Estimation))
		for _, e := range d.Estimation {
			date, err := progress.ParseDate(e.Date)
			if err != nil {
				return progress.Task{}, fmt.Errorf("task %s estimation: %w", d.ID, err)
			}
			planned, err := parseDecimal("task "+d.ID+" planned", e.Planned)
			if err != nil {
				return progress.Task{}, err
			}
			est = append(est, progress.Estimation{Date: date, Planned: planned})
		}
		t.Estimation = progress.Some(est)
	}
	if d.Reports != nil {
		ids := make([]progress.ReportID, 0, len(d.Reports))
		for _, id := range d.Reports {
			ids = append(ids, progress.ReportID(id))
		}
		t.Reports = progress.Some(ids)
	}
	return t, nil
}

// ToReport converts a report document for the given project.
func (d ReportDocument) ToReport(projectID progress.ProjectID) (progress.ProjectReport, error) {
	date, err := progress.ParseDate(d.Date)
	if err != nil {
		return progress.ProjectReport{}, fmt.Errorf("report %s: %w", d.ID, err)
	}

	r := progress.ProjectReport{
		ID:           progress.ReportID(d.ID),
		ProjectID:    projectID,
		Date:         date,
		Tasks:        make([]progress.ReportEntry, 0, len(d.Tasks)),
		Plan:         make([]progress.PlanEntry, 0, len(d.Plan)),
		AttendanceID: progress.AttendanceID(d.AttendanceID),
		ReportedBy:   progress.UserID(d.ReportedBy),
		Customer:     progress.PersonID(d.Customer),
	}
	for _, e := range d.Tasks {
		v, err := parseDecimal("report "+d.ID+" task "+e.TaskID, e.Value)
		if err != nil {
			return progress.ProjectReport{}, err
		}
		r.Tasks = append(r.Tasks, progress.ReportEntry{TaskID: progress.TaskID(e.TaskID), Value: v, Details: optionalList(e.Details)})
	}
	for _, p := range d.Plan {
		r.Plan = append(r.Plan, progress.PlanEntry{TaskID: progress.TaskID(p.TaskID), Details: optionalList(p.Details)})
	}
	if d.Weather != nil {
		weather := make([]progress.WeatherEntry, 0, len(d.Weather))
		for _, w := range d.Weather {
			entry, err := w.toEntry()
			if err != nil {
				return progress.ProjectReport{}, fmt.Errorf("report %s weather: %w", d.ID, err)
			}
			weather = append(weather, entry)
		}
		r.Weather = progress.Some(weather)
	}
	if d.Documentation != nil {
		docs := make([]progress.Documentation, 0, len(d.Documentation))
		for _, doc := range d.Documentation {
			pd := progress.Documentation{Image: doc.Image}
			if doc.Description != nil {
				pd.Description = progress.Some(*doc.Description)
			}
			docs = append(docs, pd)
		}
		r.Documentation = progress.Some(docs)
	}
	return r, nil
}

func (w WeatherDocument) toEntry() (progress.WeatherEntry, error) {
	start, err := progress.ParseClock(w.Start)
	if err != nil {
		return progress.WeatherEntry{}, err
	}
	end, err := progress.ParseClock(w.End)
	if err != nil {
		return progress.WeatherEntry{}, err
	}
	cond, err := progress.ParseWeatherCondition(w.Condition)
	if err != nil {
		return progress.WeatherEntry{}, err
	}
	return progress.WeatherEntry{Start: start, End: end, Condition: cond}, nil
}

// ToAttendance converts an attendance document for the given project.
func (d AttendanceDocument) ToAttendance(projectID progress.ProjectID) (progress.ProjectAttendance, error) {
	date, err := progress.ParseDate(d.Date)
	if err != nil {
		return progress.ProjectAttendance{}, fmt.Errorf("attendance %s: %w", d.ID, err)
	}

	att := progress.ProjectAttendance{
		ID:        progress.AttendanceID(d.ID),
		ProjectID: projectID,
		Date:      date,
		Entries:   make([]progress.AttendanceEntry, 0, len(d.Entries)),
	}
	for _, e := range d.Entries {
		entry := progress.AttendanceEntry{UserID: progress.UserID(e.UserID), Name: e.Name, Role: e.Role}
		if e.Entry != nil {
			m, err := progress.ParseClock(*e.Entry)
			if err != nil {
				return progress.ProjectAttendance{}, fmt.Errorf("attendance %s entry of %s: %w", d.ID, e.Name, err)
			}
			entry.Entry = progress.Some(m)
		}
		if e.Exit != nil {
			m, err := progress.ParseClock(*e.Exit)
			if err != nil {
				return progress.ProjectAttendance{}, fmt.Errorf("attendance %s exit of %s: %w", d.ID, e.Name, err)
			}
			entry.Exit = progress.Some(m)
		}
		if e.Outsource != nil {
			entry.Outsource = progress.Some(progress.OutsourceWorker{ID: progress.OutsourceID(e.Outsource.ID), Name: e.Outsource.Name})
		}
		att.Entries = append(att.Entries, entry)
	}
	return att, nil
}

// Helper functions

func parseDecimal(field, s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid number %q", field, s)
	}
	return v, nil
}

func optionalList(items []string) progress.Optional[[]string] {
	if items == nil {
		return progress.None[[]string]()
	}
	return progress.Some(items)
}
