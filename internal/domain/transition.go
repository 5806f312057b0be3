package domain

import (
	"fmt"
	"slices"
)

// EdgeKind tags how a transition may be initiated.
type EdgeKind string

const (
	// EdgeManual transitions require an explicit request from a user or session.
	EdgeManual EdgeKind = "manual"
	// EdgeAuto transitions may also be taken internally once their precondition holds.
	EdgeAuto EdgeKind = "auto"
)

// Edge is a single legal transition of a mode's workflow.
type Edge struct {
	Mode Mode     `json:"mode"`
	From Status   `json:"from"`
	To   Status   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// Key returns the "from->to" form used in configuration.
func (e Edge) Key() string {
	return EdgeKey(e.From, e.To)
}

// EdgeKey formats a transition as "from->to".
func EdgeKey(from, to Status) string {
	return string(from) + "->" + string(to)
}

type edgeKey struct {
	mode Mode
	from Status
	to   Status
}

// TransitionTable holds the validated edges of every mode.
type TransitionTable struct {
	index map[edgeKey]Edge
	edges []Edge
}

// defaultEdges is the workflow shipped with taskflow.
//
//	development: backlog → analysis → in_progress → testing → code_review → done
//	                                       ↑            │            │
//	                                       └────────────┴────────────┘ (rework)
//	simple:      backlog → in_progress → done
var defaultEdges = []Edge{
	{Mode: ModeDevelopment, From: StatusBacklog, To: StatusAnalysis, Kind: EdgeManual},
	{Mode: ModeDevelopment, From: StatusAnalysis, To: StatusInProgress, Kind: EdgeAuto},
	{Mode: ModeDevelopment, From: StatusInProgress, To: StatusTesting, Kind: EdgeAuto},
	{Mode: ModeDevelopment, From: StatusTesting, To: StatusCodeReview, Kind: EdgeAuto},
	{Mode: ModeDevelopment, From: StatusCodeReview, To: StatusDone, Kind: EdgeManual},
	{Mode: ModeDevelopment, From: StatusTesting, To: StatusInProgress, Kind: EdgeManual},
	{Mode: ModeDevelopment, From: StatusCodeReview, To: StatusInProgress, Kind: EdgeManual},

	{Mode: ModeSimple, From: StatusBacklog, To: StatusInProgress, Kind: EdgeManual},
	{Mode: ModeSimple, From: StatusInProgress, To: StatusDone, Kind: EdgeManual},
}

var defaultTable = mustTransitionTable(defaultEdges)

// DefaultTransitions returns the built-in transition table.
func DefaultTransitions() *TransitionTable {
	return defaultTable
}

// NewTransitionTable validates edges and builds a lookup table.
// Every endpoint must belong to the edge's mode, edges must be unique,
// self-loops are rejected, and done is never the target of an auto edge.
func NewTransitionTable(edges []Edge) (*TransitionTable, error) {
	t := &TransitionTable{
		index: make(map[edgeKey]Edge, len(edges)),
		edges: make([]Edge, 0, len(edges)),
	}
	for _, e := range edges {
		if !e.Mode.IsValid() {
			return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidTransitionTable, e.Mode)
		}
		if !e.Mode.HasStatus(e.From) || !e.Mode.HasStatus(e.To) {
			return nil, fmt.Errorf("%w: %s not in %s mode", ErrInvalidTransitionTable, e.Key(), e.Mode)
		}
		if e.From == e.To {
			return nil, fmt.Errorf("%w: self transition %s", ErrInvalidTransitionTable, e.Key())
		}
		if e.Kind != EdgeManual && e.Kind != EdgeAuto {
			return nil, fmt.Errorf("%w: unknown kind %q on %s", ErrInvalidTransitionTable, e.Kind, e.Key())
		}
		if e.Kind == EdgeAuto && e.To.IsTerminal() {
			return nil, fmt.Errorf("%w: %s cannot be automatic", ErrInvalidTransitionTable, e.Key())
		}
		k := edgeKey{mode: e.Mode, from: e.From, to: e.To}
		if _, dup := t.index[k]; dup {
			return nil, fmt.Errorf("%w: duplicate edge %s in %s mode", ErrInvalidTransitionTable, e.Key(), e.Mode)
		}
		t.index[k] = e
		t.edges = append(t.edges, e)
	}
	return t, nil
}

func mustTransitionTable(edges []Edge) *TransitionTable {
	t, err := NewTransitionTable(edges)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the edge from → to in the given mode.
func (t *TransitionTable) Lookup(mode Mode, from, to Status) (Edge, bool) {
	e, ok := t.index[edgeKey{mode: mode, from: from, to: to}]
	return e, ok
}

// From returns the edges leaving a status in table order.
func (t *TransitionTable) From(mode Mode, from Status) []Edge {
	var out []Edge
	for _, e := range t.edges {
		if e.Mode == mode && e.From == from {
			out = append(out, e)
		}
	}
	return out
}

// Edges returns a copy of every edge in table order.
func (t *TransitionTable) Edges() []Edge {
	return slices.Clone(t.edges)
}
