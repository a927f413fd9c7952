package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides whether a configured transition may be taken
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns the configuration for transitions leaving state
	Configure(state State) StateConfiguration

	// Build creates a machine positioned at initialState
	Build(initialState State) StateMachine
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration interface {
	// Permit allows trigger to move to toState unconditionally
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows trigger to move to toState when guard passes
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

type transition struct {
	to    State
	guard GuardFunc
}

// transitionTable maps a source state and trigger to its candidate transitions
type transitionTable map[State]map[Trigger][]transition

type stateConfig struct {
	from  State
	table transitionTable
}

type stateMachineBuilder struct {
	table transitionTable
}

type stateMachine struct {
	current State
	table   transitionTable
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{table: make(transitionTable)}
}

// Configure panics on an unknown state; configuration is programmer input
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	if _, ok := b.table[state]; !ok {
		b.table[state] = make(map[Trigger][]transition)
	}
	return &stateConfig{from: state, table: b.table}
}

// Build copies the table so later Configure calls do not leak into built machines
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	snapshot := make(transitionTable, len(b.table))
	for from, triggers := range b.table {
		copied := make(map[Trigger][]transition, len(triggers))
		for trigger, ts := range triggers {
			copied[trigger] = append([]transition(nil), ts...)
		}
		snapshot[from] = copied
	}

	return &stateMachine{current: initialState, table: snapshot}
}

func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	c.table[c.from][trigger] = append(c.table[c.from][trigger], transition{to: toState, guard: guard})
	return c
}

func (m *stateMachine) State() State {
	return m.current
}

func (m *stateMachine) CanFire(ctx context.Context, trigger Trigger) bool {
	_, err := m.resolve(ctx, trigger)
	return err == nil
}

func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	to, err := m.resolve(ctx, trigger)
	if err != nil {
		return err
	}
	m.current = to
	return nil
}

// PermittedTriggers is sorted so callers can render it deterministically
func (m *stateMachine) PermittedTriggers() []Trigger {
	triggers := make([]Trigger, 0, len(m.table[m.current]))
	for trigger, ts := range m.table[m.current] {
		if len(ts) > 0 {
			triggers = append(triggers, trigger)
		}
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}

// resolve returns the first transition whose guard passes, in configuration order
func (m *stateMachine) resolve(ctx context.Context, trigger Trigger) (State, error) {
	ts := m.table[m.current][trigger]
	if len(ts) == 0 {
		return "", fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}
	for _, t := range ts {
		if t.guard == nil || t.guard(ctx) {
			return t.to, nil
		}
	}
	return "", fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.current)
}
