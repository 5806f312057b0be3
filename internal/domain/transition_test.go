package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTransitions_Lookup(t *testing.T) {
	table := DefaultTransitions()

	tests := []struct {
		name string
		mode Mode
		from Status
		to   Status
		kind EdgeKind
		ok   bool
	}{
		{"dev start analysis", ModeDevelopment, StatusBacklog, StatusAnalysis, EdgeManual, true},
		{"dev analysis done", ModeDevelopment, StatusAnalysis, StatusInProgress, EdgeAuto, true},
		{"dev testing", ModeDevelopment, StatusInProgress, StatusTesting, EdgeAuto, true},
		{"dev review", ModeDevelopment, StatusTesting, StatusCodeReview, EdgeAuto, true},
		{"dev finish", ModeDevelopment, StatusCodeReview, StatusDone, EdgeManual, true},
		{"dev rework from testing", ModeDevelopment, StatusTesting, StatusInProgress, EdgeManual, true},
		{"dev rework from review", ModeDevelopment, StatusCodeReview, StatusInProgress, EdgeManual, true},
		{"dev skip analysis", ModeDevelopment, StatusBacklog, StatusInProgress, "", false},
		{"dev skip to done", ModeDevelopment, StatusInProgress, StatusDone, "", false},
		{"simple start", ModeSimple, StatusBacklog, StatusInProgress, EdgeManual, true},
		{"simple finish", ModeSimple, StatusInProgress, StatusDone, EdgeManual, true},
		{"simple has no testing", ModeSimple, StatusInProgress, StatusTesting, "", false},
		{"done is terminal", ModeDevelopment, StatusDone, StatusBacklog, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := table.Lookup(tt.mode, tt.from, tt.to)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.kind, e.Kind)
			}
		})
	}
}

func TestDefaultTransitions_NoAutoEdgeIntoDone(t *testing.T) {
	for _, e := range DefaultTransitions().Edges() {
		if e.To == StatusDone {
			assert.Equal(t, EdgeManual, e.Kind, e.Key())
		}
	}
}

func TestTransitionTable_From(t *testing.T) {
	edges := DefaultTransitions().From(ModeDevelopment, StatusTesting)
	require.Len(t, edges, 2)
	assert.Equal(t, StatusCodeReview, edges[0].To)
	assert.Equal(t, StatusInProgress, edges[1].To)

	assert.Empty(t, DefaultTransitions().From(ModeSimple, StatusDone))
}

func TestNewTransitionTable_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		edges []Edge
	}{
		{"unknown mode", []Edge{{Mode: "x", From: StatusBacklog, To: StatusDone, Kind: EdgeManual}}},
		{"status outside mode", []Edge{{Mode: ModeSimple, From: StatusBacklog, To: StatusTesting, Kind: EdgeManual}}},
		{"self loop", []Edge{{Mode: ModeSimple, From: StatusBacklog, To: StatusBacklog, Kind: EdgeManual}}},
		{"unknown kind", []Edge{{Mode: ModeSimple, From: StatusBacklog, To: StatusInProgress, Kind: "sometimes"}}},
		{"auto into done", []Edge{{Mode: ModeSimple, From: StatusInProgress, To: StatusDone, Kind: EdgeAuto}}},
		{"duplicate", []Edge{
			{Mode: ModeSimple, From: StatusBacklog, To: StatusInProgress, Kind: EdgeManual},
			{Mode: ModeSimple, From: StatusBacklog, To: StatusInProgress, Kind: EdgeAuto},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransitionTable(tt.edges)
			assert.ErrorIs(t, err, ErrInvalidTransitionTable)
		})
	}
}

func TestNewTransitionTable_SameEdgeInDifferentModes(t *testing.T) {
	table, err := NewTransitionTable([]Edge{
		{Mode: ModeSimple, From: StatusBacklog, To: StatusInProgress, Kind: EdgeManual},
		{Mode: ModeDevelopment, From: StatusBacklog, To: StatusInProgress, Kind: EdgeAuto},
	})
	require.NoError(t, err)

	e, ok := table.Lookup(ModeDevelopment, StatusBacklog, StatusInProgress)
	require.True(t, ok)
	assert.Equal(t, EdgeAuto, e.Kind)
}

func TestEdgeKey(t *testing.T) {
	assert.Equal(t, "in_progress->testing", EdgeKey(StatusInProgress, StatusTesting))
}
