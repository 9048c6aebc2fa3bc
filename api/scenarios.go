/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
	Provides pre-built construction projects that populate the store with
	realistic field records. Each scenario is a project document in the same
	YAML format a site office would keep, loaded through the factory and the
	normal intake path, so scenarios exercise the same validation as the API.

AVAILABLE SCENARIOS:
	culvert-on-track:     Small drainage job reported exactly to plan
	embankment-rain:      Earthworks slowed by a wet week, behind schedule
	tower-outsourced:     Mixed own and subcontracted crews, cost signals, one task lagging

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Parse the scenario document via factory
 3. Import project, attendance and reports through intake
 4. Recompute once so the latest summary is available

USAGE VIA API:
	POST /api/scenarios/load
	{"scenario_id": "embankment-rain"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add the document to 'scenarioDocuments' under the same ID

NOTE:
	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: importBundle
  - factory/document.go: Document format
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/sitetrack/factory"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "culvert-on-track",
		Name:        "Culvert On Track",
		Description: "Pipe culvert reported exactly to plan",
		Category:    "on_track",
	},
	{
		ID:          "embankment-rain",
		Name:        "Embankment After Rain",
		Description: "Earthworks slowed by a wet week; most volume is behind",
		Category:    "behind",
	},
	{
		ID:          "tower-outsourced",
		Name:        "Tower With Subcontractors",
		Description: "Own and outsourced crews, costed tasks, one minor task lagging",
		Category:    "at_risk",
	},
}

var scenarioDocuments = map[string]string{
	"culvert-on-track": culvertOnTrack,
	"embankment-rain":  embankmentRain,
	"tower-outsourced": towerOutsourced,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.scenario()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current, Description: "Currently loaded scenario"})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if _, ok := scenarioDocuments[req.ScenarioID]; !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"scenario": req.ScenarioID,
	})
}

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	bundle, err := factory.ParseBundle([]byte(scenarioDocuments[id]))
	if err != nil {
		return fmt.Errorf("scenario %s: %w", id, err)
	}

	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	rejected, err := h.importBundle(ctx, bundle)
	if err != nil {
		return err
	}
	if len(rejected) > 0 {
		return fmt.Errorf("scenario %s: %d records rejected, first: %w", id, len(rejected), rejected[0])
	}
	if _, _, err := h.Recompute(ctx, bundle.Project.ID); err != nil {
		return err
	}

	h.setCurrentScenario(id)
	return nil
}

// =============================================================================
// SCENARIO DOCUMENTS
// =============================================================================

// One pipe task, reported exactly on its plan.
const culvertOnTrack = `
id: prj-culvert
name: Mill Lane Culvert
contract_value: 42000
customer:
  id: c-county
  person: {id: p-eng, name: Dana Cole, role: county engineer}
groups:
  - {id: drainage, name: Drainage}
users:
  - {user_id: u-lee, role: foreman}
  - {user_id: u-kim, role: pipelayer}
tasks:
  - id: pipe
    group: drainage
    name: Lay 600mm pipe
    volume: 60
    unit: m
    cost: 30000
    estimation:
      - {date: 2025-04-07, planned: 20}
      - {date: 2025-04-08, planned: 40}
      - {date: 2025-04-09, planned: 60}
attendance:
  - id: att-culvert-0407
    date: 2025-04-07
    entries:
      - {user_id: u-lee, name: Lee, role: foreman, entry: "07:00", exit: "15:30"}
      - {user_id: u-kim, name: Kim, role: pipelayer, entry: "07:00", exit: "15:30"}
  - id: att-culvert-0408
    date: 2025-04-08
    entries:
      - {user_id: u-lee, name: Lee, role: foreman, entry: "07:00", exit: "15:30"}
      - {user_id: u-kim, name: Kim, role: pipelayer, entry: "07:00", exit: "15:30"}
reports:
  - id: rep-culvert-0407
    date: 2025-04-07
    attendance_id: att-culvert-0407
    reported_by: u-lee
    tasks:
      - {task_id: pipe, value: 20}
    plan:
      - {task_id: pipe}
    weather:
      - {start: "07:00", end: "15:30", condition: sunny}
  - id: rep-culvert-0408
    date: 2025-04-08
    attendance_id: att-culvert-0408
    reported_by: u-lee
    tasks:
      - {task_id: pipe, value: 20}
    plan:
      - {task_id: pipe}
    weather:
      - {start: "07:00", end: "15:30", condition: cloudy}
`

// Excavation carries most of the volume and falls behind after rain.
const embankmentRain = `
id: prj-embankment
name: North Embankment
contract_value: 250000
groups:
  - {id: earthworks, name: Earthworks}
  - {id: survey, name: Survey}
users:
  - {user_id: u-ana, role: foreman}
  - {user_id: u-raj, role: excavator operator}
tasks:
  - id: excavation
    group: earthworks
    name: Bulk excavation
    volume: 1200
    unit: m3
    cost: 48000
    estimation:
      - {date: 2025-03-03, planned: 200}
      - {date: 2025-03-05, planned: 600}
      - {date: 2025-03-07, planned: 1000}
  - id: pegs
    group: survey
    name: Set-out pegs
    volume: 40
    unit: ea
    estimation:
      - {date: 2025-03-03, planned: 40}
attendance:
  - id: att-emb-0303
    date: 2025-03-03
    entries:
      - {user_id: u-ana, name: Ana, role: foreman, entry: "07:00", exit: "16:30"}
      - {user_id: u-raj, name: Raj, role: excavator operator, entry: "07:00", exit: "16:30"}
  - id: att-emb-0305
    date: 2025-03-05
    entries:
      - {user_id: u-ana, name: Ana, role: foreman, entry: "07:00", exit: "11:00"}
      - {user_id: u-raj, name: Raj, role: excavator operator, entry: "07:00"}
  - id: att-emb-0307
    date: 2025-03-07
    entries:
      - {user_id: u-ana, name: Ana, role: foreman, entry: "07:00", exit: "16:30"}
      - {user_id: u-raj, name: Raj, role: excavator operator, entry: "07:00", exit: "16:30"}
reports:
  - id: rep-emb-0303
    date: 2025-03-03
    attendance_id: att-emb-0303
    reported_by: u-ana
    tasks:
      - {task_id: excavation, value: 210}
      - {task_id: pegs, value: 40}
    plan:
      - {task_id: excavation}
      - {task_id: pegs}
    weather:
      - {start: "07:00", end: "16:30", condition: sunny}
  - id: rep-emb-0305
    date: 2025-03-05
    attendance_id: att-emb-0305
    reported_by: u-ana
    tasks:
      - {task_id: excavation, value: 60, details: ["stopped at 11:00", pumping]}
    plan:
      - {task_id: excavation}
    weather:
      - {start: "07:00", end: "08:59", condition: rainy}
      - {start: "09:00", end: "16:30", condition: heavy rain}
    documentation:
      - {image: img/emb-0305-flooded-cut.jpg, description: flooded cut}
  - id: rep-emb-0307
    date: 2025-03-07
    attendance_id: att-emb-0307
    reported_by: u-ana
    tasks:
      - {task_id: excavation, value: 230}
    plan:
      - {task_id: excavation}
    weather:
      - {start: "07:00", end: "12:00", condition: cloudy}
      - {start: "12:01", end: "16:30", condition: sunny}
`

// The curtain wall (small volume) lags; the frame is ahead.
const towerOutsourced = `
id: prj-tower
name: Harbour Tower Block C
contract_value: 1800000
groups:
  - {id: frame, name: Structural frame}
  - {id: envelope, name: Envelope}
users:
  - {user_id: u-sol, role: site manager}
  - {user_id: u-ivo, role: carpenter}
tasks:
  - id: columns
    group: frame
    name: Pour columns L3
    volume: 48
    unit: ea
    cost: 96000
    estimation:
      - {date: 2025-05-12, planned: 16}
      - {date: 2025-05-13, planned: 32}
  - id: slab
    group: frame
    name: Slab L3
    volume: 450
    unit: m2
    cost: 135000
    estimation:
      - {date: 2025-05-12, planned: 150}
      - {date: 2025-05-13, planned: 300}
  - id: curtain
    group: envelope
    name: Curtain wall panels L1
    volume: 60
    unit: ea
    cost: 240000
    estimation:
      - {date: 2025-05-12, planned: 10}
      - {date: 2025-05-13, planned: 20}
attendance:
  - id: att-tower-0512
    date: 2025-05-12
    entries:
      - {user_id: u-sol, name: Sol, role: site manager, entry: "06:30", exit: "17:00"}
      - {user_id: u-ivo, name: Ivo, role: carpenter, entry: "07:00", exit: "15:30"}
      - {name: Glazier 1, role: glazier, entry: "08:00", exit: "16:00", outsource: {id: sub-glass, name: ClearSpan Glazing}}
      - {name: Pump operator, role: concrete pump, entry: "09:00", exit: "13:00", outsource: {id: sub-pump, name: Metro Pumping}}
  - id: att-tower-0513
    date: 2025-05-13
    entries:
      - {user_id: u-sol, name: Sol, role: site manager, entry: "06:30", exit: "17:00"}
      - {name: Glazier 1, role: glazier, entry: "08:00", outsource: {id: sub-glass, name: ClearSpan Glazing}}
reports:
  - id: rep-tower-0512
    date: 2025-05-12
    attendance_id: att-tower-0512
    reported_by: u-sol
    tasks:
      - {task_id: columns, value: 18}
      - {task_id: slab, value: 170}
      - {task_id: curtain, value: 6}
    plan:
      - {task_id: columns}
      - {task_id: slab}
      - {task_id: curtain}
    weather:
      - {start: "06:30", end: "17:00", condition: sunny}
  - id: rep-tower-0513
    date: 2025-05-13
    attendance_id: att-tower-0513
    reported_by: u-sol
    tasks:
      - {task_id: columns, value: 16}
      - {task_id: slab, value: 140}
      - {task_id: curtain, value: 3}
    plan:
      - {task_id: columns}
      - {task_id: slab}
    weather:
      - {start: "06:30", end: "10:00", condition: cloudy}
`
