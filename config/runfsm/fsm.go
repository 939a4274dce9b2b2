package runfsm

import (
	"fmt"
	"sync"
	"time"

	"github.com/kastheco/monothematic/config/runstate"
)

// Status represents the lifecycle state of a run.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusResolving  Status = "resolving"
	StatusGenerating Status = "generating"
	StatusRendering  Status = "rendering"
	StatusCommitting Status = "committing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
	StatusSuperseded Status = "superseded"
)

// IsTerminal reports whether no further transitions leave s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusSuperseded:
		return true
	}
	return false
}

// Event represents a lifecycle transition trigger.
type Event string

const (
	Resolve   Event = "resolve"
	Generate  Event = "generate"
	Render    Event = "render"
	Commit    Event = "commit"
	Finish    Event = "finish"
	Fail      Event = "fail"
	Supersede Event = "supersede"
)

// transitionTable defines all valid state transitions.
// Key: current status → event → new status.
var transitionTable = map[Status]map[Event]Status{
	StatusIdle: {
		Resolve: StatusResolving,
		Fail:    StatusFailed,
	},
	StatusResolving: {
		Generate:  StatusGenerating,
		Fail:      StatusFailed,
		Supersede: StatusSuperseded,
	},
	StatusGenerating: {
		Render:    StatusRendering,
		Fail:      StatusFailed,
		Supersede: StatusSuperseded,
	},
	StatusRendering: {
		Commit:    StatusCommitting,
		Fail:      StatusFailed,
		Supersede: StatusSuperseded,
	},
	StatusCommitting: {
		Finish: StatusDone,
		Fail:   StatusFailed,
	},
}

// ApplyTransition returns the new status for the given current status and event.
// Returns an error if the transition is not valid.
func ApplyTransition(current Status, event Event) (Status, error) {
	events, ok := transitionTable[current]
	if !ok {
		return "", fmt.Errorf("no transitions defined for status %q", current)
	}
	next, ok := events[event]
	if !ok {
		return "", fmt.Errorf("invalid transition: %q + %q", current, event)
	}
	return next, nil
}

// stateMu serializes writes to state.json from concurrent machines.
var stateMu sync.Mutex

// RunStateMachine tracks one run and is the sole writer of its entry in
// state.json. All status changes flow through Transition(); the entry is
// persisted when the run reaches a terminal status. An empty dir disables
// persistence (dry runs).
type RunStateMachine struct {
	mu    sync.Mutex
	dir   string
	now   func() time.Time
	entry runstate.RunEntry
}

// New creates a machine in StatusIdle for the run with the given id.
func New(dir, id string) *RunStateMachine {
	return NewWithClock(dir, id, time.Now)
}

// NewWithClock is New with an injectable clock.
func NewWithClock(dir, id string, now func() time.Time) *RunStateMachine {
	return &RunStateMachine{
		dir: dir,
		now: now,
		entry: runstate.RunEntry{
			ID:        id,
			Status:    string(StatusIdle),
			StartedAt: now(),
		},
	}
}

// Status returns the current status.
func (m *RunStateMachine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status(m.entry.Status)
}

// Entry returns a copy of the run entry as it stands.
func (m *RunStateMachine) Entry() runstate.RunEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entry
	e.Templates = append([]runstate.TemplateResult(nil), m.entry.Templates...)
	return e
}

// Annotate lets the caller fill in run details (wallpaper, seed, templates)
// that are saved with the entry.
func (m *RunStateMachine) Annotate(fn func(*runstate.RunEntry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, status, started := m.entry.ID, m.entry.Status, m.entry.StartedAt
	fn(&m.entry)
	m.entry.ID, m.entry.Status, m.entry.StartedAt = id, status, started
}

// Transition applies event to the run.
func (m *RunStateMachine) Transition(event Event) error {
	return m.transition(event, "")
}

// TransitionFailed moves the run to StatusFailed and records cause.
func (m *RunStateMachine) TransitionFailed(cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return m.transition(Fail, msg)
}

func (m *RunStateMachine) transition(event Event, errMsg string) error {
	m.mu.Lock()
	next, err := ApplyTransition(Status(m.entry.Status), event)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.entry.Status = string(next)
	if errMsg != "" {
		m.entry.Error = errMsg
	}
	if !next.IsTerminal() {
		m.mu.Unlock()
		return nil
	}
	m.entry.FinishedAt = m.now()
	entry := m.entry
	m.mu.Unlock()

	if m.dir == "" {
		return nil
	}
	return record(m.dir, entry)
}

func record(dir string, entry runstate.RunEntry) error {
	stateMu.Lock()
	defer stateMu.Unlock()

	rs, err := runstate.Load(dir)
	if err != nil {
		return fmt.Errorf("load run state: %w", err)
	}
	return rs.Record(entry)
}
