package global

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ActionObserver receives the wall time of each executed action.
type ActionObserver func(label string, elapsed time.Duration)

// SequenceOptions configures an ActionSequence.
type SequenceOptions struct {
	// Sync accumulates the wall time of each action.
	Sync bool
	// Observer, if set, is called after every action with its wall time.
	Observer ActionObserver
	// Tracer overrides the global OpenTelemetry tracer.
	Tracer trace.Tracer
}

// ActionSequence is the ordered list of explicit actions executed each step.
// Order is by ActionOrder, then by registration order.
type ActionSequence struct {
	actions []ExplicitAction
	accum   []time.Duration
	opts    SequenceOptions
	tracer  trace.Tracer
}

// NewActionSequence snapshots the explicit actions of the registry.
func NewActionSequence(reg *ActionRegistry, opts SequenceOptions) (*ActionSequence, error) {
	var actions []ExplicitAction
	for _, a := range reg.Actions() {
		if ea, ok := a.(ExplicitAction); ok {
			actions = append(actions, ea)
		}
	}
	if len(actions) == 0 {
		return nil, &ConfigError{Code: ErrCodeNoActions, Message: "action registry has no explicit actions"}
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Order() < actions[j].Order()
	})

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("trackloop/global")
	}
	return &ActionSequence{
		actions: actions,
		accum:   make([]time.Duration, len(actions)),
		opts:    opts,
		tracer:  tracer,
	}, nil
}

// Execute runs every action once. It stops at the first failing action;
// the failing action itself always completes its batch over all slots.
func (s *ActionSequence) Execute(ctx context.Context, params *CoreParams, state *CoreState) error {
	timed := s.opts.Sync || s.opts.Observer != nil
	for i, a := range s.actions {
		actx, span := s.tracer.Start(ctx, a.Label(),
			trace.WithAttributes(
				attribute.Int("action.id", int(a.ActionID())),
				attribute.String("action.order", a.Order().String()),
				attribute.Int("stream.id", int(state.StreamID())),
			),
		)

		var start time.Time
		if timed {
			start = time.Now()
		}
		err := a.Execute(actx, params, state)
		if timed {
			elapsed := time.Since(start)
			if s.opts.Sync {
				s.accum[i] += elapsed
			}
			if s.opts.Observer != nil {
				s.opts.Observer(a.Label(), elapsed)
			}
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "action failed")
			span.End()
			return fmt.Errorf("action %q failed: %w", a.Label(), err)
		}
		span.End()
	}
	return nil
}

// Actions returns the actions in execution order.
func (s *ActionSequence) Actions() []ExplicitAction {
	return append([]ExplicitAction(nil), s.actions...)
}

// Labels returns the action labels in execution order.
func (s *ActionSequence) Labels() []string {
	labels := make([]string, len(s.actions))
	for i, a := range s.actions {
		labels[i] = a.Label()
	}
	return labels
}

// AccumTime returns the accumulated wall time per action label. It is
// empty unless the sequence was built with Sync.
func (s *ActionSequence) AccumTime() map[string]time.Duration {
	out := make(map[string]time.Duration, len(s.actions))
	if !s.opts.Sync {
		return out
	}
	for i, a := range s.actions {
		out[a.Label()] = s.accum[i]
	}
	return out
}
