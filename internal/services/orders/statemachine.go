package orders

import (
	"context"

	"workshop-billing-backend/internal/apperrors"
	"workshop-billing-backend/internal/models"

	"github.com/qmuntal/stateless"
)

type Trigger string

const (
	TriggerStart     Trigger = "start"
	TriggerFinish    Trigger = "finish"
	TriggerReopen    Trigger = "reopen"
	TriggerInvoice   Trigger = "invoice"
	TriggerUninvoice Trigger = "uninvoice"
)

// manualTriggers are the ones a user may fire directly. Invoicing belongs
// to the invoice engine.
var manualTriggers = map[models.OrderState]Trigger{
	models.OrderInProgress: TriggerStart,
	models.OrderDone:       TriggerFinish,
}

func newMachine(state models.OrderState) *stateless.StateMachine {
	machine := stateless.NewStateMachine(state)

	machine.Configure(models.OrderReceived).
		Permit(TriggerStart, models.OrderInProgress)

	machine.Configure(models.OrderInProgress).
		Permit(TriggerFinish, models.OrderDone)

	machine.Configure(models.OrderDone).
		Permit(TriggerReopen, models.OrderInProgress).
		Permit(TriggerInvoice, models.OrderInvoiced)

	machine.Configure(models.OrderInvoiced).
		Permit(TriggerUninvoice, models.OrderDone)

	return machine
}

// Next returns the state reached by firing trigger from current.
func Next(current models.OrderState, trigger Trigger) (models.OrderState, error) {
	machine := newMachine(current)
	if err := machine.FireCtx(context.Background(), trigger); err != nil {
		return current, apperrors.InvalidState("orders.Next", "order in state %s cannot %s", current, trigger)
	}
	state, err := machine.State(context.Background())
	if err != nil {
		return current, err
	}
	return state.(models.OrderState), nil
}

// manualTrigger picks the trigger a user transition to target maps to.
func manualTrigger(current, target models.OrderState) (Trigger, bool) {
	if current == models.OrderDone && target == models.OrderInProgress {
		return TriggerReopen, true
	}
	t, ok := manualTriggers[target]
	return t, ok
}
