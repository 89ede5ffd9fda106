package global

import "context"

// Diagnostic observes each step after the post-step actions and before
// secondaries are extended, when killed tracks still hold their final state.
// Diagnostics must only read the state (View, Sim). Implementations shared
// between streams must be safe for concurrent use.
type Diagnostic interface {
	Label() string
	MidStep(ctx context.Context, params *CoreParams, state *CoreState) error
	// Result returns the accumulated tallies as a JSON-encodable value.
	Result() any
}

// DiagnosticAction runs a Diagnostic as part of the action sequence.
type DiagnosticAction struct {
	ConcreteAction
	diag Diagnostic
}

// NewDiagnosticAction wraps a diagnostic in an explicit action.
func NewDiagnosticAction(id ActionID, d Diagnostic) *DiagnosticAction {
	return &DiagnosticAction{
		ConcreteAction: NewConcreteAction(id, d.Label(), "diagnostic "+d.Label()),
		diag:           d,
	}
}

// Order implements ExplicitAction.
func (a *DiagnosticAction) Order() ActionOrder { return OrderMidStep }

// Execute implements ExplicitAction.
func (a *DiagnosticAction) Execute(ctx context.Context, params *CoreParams, state *CoreState) error {
	return a.diag.MidStep(ctx, params, state)
}

// Diagnostic returns the wrapped diagnostic.
func (a *DiagnosticAction) Diagnostic() Diagnostic { return a.diag }
