package workflow

import (
	"context"

	"github.com/garyjia/procurement-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/procurement-workflow/internal/domain/workflow"
)

// BuildRequestStateMachine creates a machine positioned at the request's
// current status. Guards close over req, so a machine is built per call.
func BuildRequestStateMachine(req *entity.PurchaseRequest) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	isAmazon := func(ctx context.Context) bool { return req.IsAmazonURL }
	canRetry := func(ctx context.Context) bool { return req.IsAmazonURL && req.HasCartError() }

	builder.Configure(domainwf.StatePending).
		Permit(domainwf.TriggerApprove, domainwf.StateApproved).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		Permit(domainwf.TriggerRequestInfo, domainwf.StateInfoRequested).
		Permit(domainwf.TriggerCancel, domainwf.StateCancelled)

	builder.Configure(domainwf.StateInfoRequested).
		Permit(domainwf.TriggerResubmit, domainwf.StatePending).
		Permit(domainwf.TriggerCancel, domainwf.StateCancelled)

	// Cart outcomes and retries only exist on the Amazon branch
	builder.Configure(domainwf.StateApproved).
		Permit(domainwf.TriggerMarkPurchased, domainwf.StatePurchased).
		PermitIf(domainwf.TriggerCartSucceeded, domainwf.StatePurchased, isAmazon).
		PermitIf(domainwf.TriggerCartFailed, domainwf.StateApproved, isAmazon).
		PermitIf(domainwf.TriggerRetryCart, domainwf.StateApproved, canRetry)

	// REJECTED, PURCHASED and CANCELLED are terminal states - no outgoing transitions

	return builder.Build(domainwf.State(req.Status))
}

// AllowedActions lists the triggers callerID may fire on req right now. System
// triggers for cart outcomes are never offered.
func AllowedActions(ctx context.Context, req *entity.PurchaseRequest, callerID int64, role entity.Role) []string {
	actions := make([]string, 0, 4)
	if domainwf.State(req.Status).IsTerminal() {
		return actions
	}

	machine := BuildRequestStateMachine(req)
	for _, trigger := range machine.PermittedTriggers() {
		if !callerMayFire(trigger, req, callerID, role) || !machine.CanFire(ctx, trigger) {
			continue
		}
		actions = append(actions, trigger.String())
	}
	return actions
}

func callerMayFire(trigger domainwf.Trigger, req *entity.PurchaseRequest, callerID int64, role entity.Role) bool {
	switch trigger {
	case domainwf.TriggerApprove, domainwf.TriggerReject, domainwf.TriggerRequestInfo:
		return role.Can(entity.CapApprove)
	case domainwf.TriggerResubmit, domainwf.TriggerCancel:
		return req.IsOwnedBy(callerID)
	case domainwf.TriggerMarkPurchased:
		return role.Can(entity.CapMarkPurchased)
	case domainwf.TriggerRetryCart:
		return role.Can(entity.CapRetryCart)
	default:
		return false
	}
}
