package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StatePending, false},
		{StateInfoRequested, false},
		{StateApproved, false},
		{StateRejected, true},
		{StatePurchased, true},
		{StateCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"pending", StatePending, true},
		{"purchased", StatePurchased, true},
		{"uppercase", State("PENDING"), false},
		{"empty", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	NewBuilder().Configure(State("INVALID"))
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	NewBuilder().Build(State("INVALID"))
}

func TestStateConfiguration_PermitPanicsOnInvalidTarget(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic on invalid target state")
		}
	}()

	NewBuilder().Configure(StatePending).Permit(TriggerApprove, State("INVALID"))
}

func TestStateMachine_Fire(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePending).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)

	machine := builder.Build(StatePending)

	if err := machine.Fire(context.Background(), TriggerApprove); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if machine.State() != StateApproved {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), StateApproved)
	}

	err := machine.Fire(context.Background(), TriggerReject)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
	if machine.State() != StateApproved {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateApproved, machine.State())
	}
}

func TestStateMachine_Guards(t *testing.T) {
	hasCartError := false

	builder := NewBuilder()
	builder.Configure(StateApproved).
		PermitIf(TriggerRetryCart, StateApproved, func(ctx context.Context) bool {
			return hasCartError
		})

	machine := builder.Build(StateApproved)

	if machine.CanFire(context.Background(), TriggerRetryCart) {
		t.Error("CanFire() should be false while guard rejects")
	}
	if err := machine.Fire(context.Background(), TriggerRetryCart); !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}

	hasCartError = true
	if !machine.CanFire(context.Background(), TriggerRetryCart) {
		t.Error("CanFire() should be true once guard passes")
	}
}

func TestStateMachine_GuardsTriedInOrder(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateApproved).
		PermitIf(TriggerMarkPurchased, StateCancelled, func(ctx context.Context) bool { return false }).
		PermitIf(TriggerMarkPurchased, StatePurchased, func(ctx context.Context) bool { return true })

	machine := builder.Build(StateApproved)
	if err := machine.Fire(context.Background(), TriggerMarkPurchased); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if machine.State() != StatePurchased {
		t.Errorf("State = %v, want %v", machine.State(), StatePurchased)
	}
}

func TestStateMachine_PermittedTriggers(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePending).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerApprove, StateApproved)

	triggers := builder.Build(StatePending).PermittedTriggers()
	if len(triggers) != 2 || triggers[0] != TriggerApprove || triggers[1] != TriggerReject {
		t.Errorf("PermittedTriggers() = %v, want [approve reject]", triggers)
	}

	if got := builder.Build(StatePurchased).PermittedTriggers(); len(got) != 0 {
		t.Errorf("PermittedTriggers() on unconfigured state = %v, want empty", got)
	}
}

func TestStateMachine_Immutability(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePending).Permit(TriggerApprove, StateApproved)

	machine1 := builder.Build(StatePending)
	machine2 := builder.Build(StatePending)

	// Configuring after Build must not affect existing machines
	builder.Configure(StatePending).Permit(TriggerReject, StateRejected)

	if err := machine1.Fire(context.Background(), TriggerApprove); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if machine2.State() != StatePending {
		t.Errorf("machine2 state = %v, want %v", machine2.State(), StatePending)
	}
	if machine2.CanFire(context.Background(), TriggerReject) {
		t.Error("machine2 picked up configuration added after Build()")
	}
}
