/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario loads through the normal intake path and lands
	in the health state it was written to show. These double as integration
	tests over factory, intake, engine and the SQLite store.
*/
package api

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/sitetrack/progress"
	"github.com/warp/sitetrack/store/sqlite"
)

func setupTestHandler(t *testing.T) *Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewHandler(store, progress.NewEngine(progress.DefaultHealthConfig(), 2))
}

func latestSummary(t *testing.T, h *Handler, id progress.ProjectID) progress.ProjectSummary {
	t.Helper()
	stored, err := h.Store.LatestSummary(context.Background(), id)
	require.NoError(t, err)
	return stored.Summary
}

func TestScenario_CulvertOnTrack(t *testing.T) {
	// GIVEN: The culvert scenario
	h := setupTestHandler(t)

	// WHEN: Loaded
	require.NoError(t, h.loadScenario(context.Background(), "culvert-on-track"))

	// THEN: Reported exactly to plan
	s := latestSummary(t, h, "prj-culvert")
	assert.Equal(t, progress.HealthOnTrack, s.Health)
	pipe, ok := s.Task("pipe")
	require.True(t, ok)
	assert.Equal(t, "40", pipe.Cumulative.String())
	latest, ok := pipe.Latest.Get()
	require.True(t, ok)
	assert.True(t, latest.ScheduleVariance.OrElse(decimal.NewFromInt(-1)).IsZero())
	assert.Equal(t, "culvert-on-track", h.scenario())
}

func TestScenario_EmbankmentRain(t *testing.T) {
	h := setupTestHandler(t)

	require.NoError(t, h.loadScenario(context.Background(), "embankment-rain"))

	s := latestSummary(t, h, "prj-embankment")
	assert.Equal(t, progress.HealthBehind, s.Health)

	excavation, ok := s.Task("excavation")
	require.True(t, ok)
	assert.Equal(t, "500", excavation.Cumulative.String())
	assert.True(t, excavation.Behind)

	pegs, ok := s.Task("pegs")
	require.True(t, ok)
	assert.Equal(t, "1", pegs.PercentComplete.OrElse(decimal.Zero).String())

	// Raj's missing exit on the wet day leaves that entry Unknown
	assert.Equal(t, 1, s.Labor.Regular.UnknownEntries)
}

func TestScenario_TowerOutsourced(t *testing.T) {
	h := setupTestHandler(t)

	require.NoError(t, h.loadScenario(context.Background(), "tower-outsourced"))

	s := latestSummary(t, h, "prj-tower")
	// Only the curtain wall lags, and it holds a small share of the volume.
	assert.Equal(t, progress.HealthAtRisk, s.Health)
	curtain, _ := s.Task("curtain")
	assert.True(t, curtain.Behind)
	slab, _ := s.Task("slab")
	assert.False(t, slab.Behind)

	// glazier 08:00-16:00 and pump 09:00-13:00 on day one; glazier has no exit on day two
	assert.Equal(t, 720, s.Labor.Outsourced.KnownMinutes)
	assert.Equal(t, 1, s.Labor.Outsourced.UnknownEntries)
	assert.True(t, s.EarnedValue.IsPresent())
	assert.True(t, s.PlannedValue.IsPresent())
}

func TestScenario_LoadReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	h := setupTestHandler(t)

	require.NoError(t, h.loadScenario(ctx, "culvert-on-track"))
	require.NoError(t, h.loadScenario(ctx, "embankment-rain"))

	projects, err := h.Store.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, progress.ProjectID("prj-embankment"), projects[0].ID)
}

func TestScenario_AllScenariosLoadWithoutError(t *testing.T) {
	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			h := setupTestHandler(t)

			err := h.loadScenario(context.Background(), s.ID)

			require.NoError(t, err)
			runs, err := h.Store.ListRuns(context.Background(), 10)
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.Equal(t, progress.RunCompleted, runs[0].Status)
			assert.Zero(t, runs[0].Rejected)
		})
	}
}

func TestScenario_EveryDefinitionHasDocument(t *testing.T) {
	for _, s := range scenarios {
		_, ok := scenarioDocuments[s.ID]
		assert.True(t, ok, "scenario %s has no document", s.ID)
	}
	assert.Len(t, scenarioDocuments, len(scenarios))
}
