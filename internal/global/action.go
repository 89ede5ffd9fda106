package global

import (
	"context"
	"fmt"
)

// ActionID indexes the action registry.
type ActionID int32

// NoAction marks an unset post-step action.
const NoAction ActionID = -1

// ActionOrder is the category that fixes where an explicit action runs
// within a step. Within one category actions run in registration order.
type ActionOrder int

const (
	// OrderStart initializes tracks into vacant slots.
	OrderStart ActionOrder = iota
	// OrderPre resets per-step scratch and samples the physics step.
	OrderPre
	// OrderAlong propagates and applies continuous processes.
	OrderAlong
	// OrderPost applies the post-step action selected along the step.
	OrderPost
	// OrderMidStep observes the finished step before secondaries are
	// turned into initializers.
	OrderMidStep
	// OrderExtend turns secondaries into initializers and recycles slots.
	OrderExtend
	// OrderEnd does end-of-step bookkeeping.
	OrderEnd
)

var orderLabels = [...]string{"start", "pre", "along", "post", "mid_step", "extend", "end"}

func (o ActionOrder) String() string {
	if o < 0 || int(o) >= len(orderLabels) {
		return fmt.Sprintf("order(%d)", int(o))
	}
	return orderLabels[o]
}

// Action is anything in the action registry. Actions without an Execute
// method are implicit: they only tag the post-step action of a slot.
type Action interface {
	ActionID() ActionID
	Label() string
	Description() string
}

// ExplicitAction is an action that runs once per step over all slots.
type ExplicitAction interface {
	Action
	Order() ActionOrder
	Execute(ctx context.Context, params *CoreParams, state *CoreState) error
}

// ConcreteAction carries the identity of an action and is embedded by
// action implementations.
type ConcreteAction struct {
	id          ActionID
	label       string
	description string
}

// NewConcreteAction builds the identity part of an action.
func NewConcreteAction(id ActionID, label, description string) ConcreteAction {
	return ConcreteAction{id: id, label: label, description: description}
}

// ActionID implements Action.
func (a ConcreteAction) ActionID() ActionID { return a.id }

// Label implements Action.
func (a ConcreteAction) Label() string { return a.label }

// Description implements Action.
func (a ConcreteAction) Description() string { return a.description }

// ImplicitAction is an action that is never executed; it only records why a
// step ended.
type ImplicitAction struct {
	ConcreteAction
}
