package global

import (
	"fmt"
	"sync"
)

// ActionRegistry assigns ids to actions and looks them up by id or label.
// Registration happens during setup; lookups are safe at any time.
type ActionRegistry struct {
	mu      sync.RWMutex
	actions []Action
	byLabel map[string]ActionID
}

// NewActionRegistry creates an empty registry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{byLabel: make(map[string]ActionID)}
}

// NextID returns the id the next inserted action must carry.
func (r *ActionRegistry) NextID() ActionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ActionID(len(r.actions))
}

// Insert adds an action. Its id must equal NextID and its label must be new.
func (r *ActionRegistry) Insert(a Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if want := ActionID(len(r.actions)); a.ActionID() != want {
		return fmt.Errorf("action %q has id %d, expected %d", a.Label(), a.ActionID(), want)
	}
	if a.Label() == "" {
		return fmt.Errorf("action %d has an empty label", a.ActionID())
	}
	if _, dup := r.byLabel[a.Label()]; dup {
		return &ConfigError{
			Code:    ErrCodeDuplicateAction,
			Message: fmt.Sprintf("action label %q is already registered", a.Label()),
		}
	}
	r.actions = append(r.actions, a)
	r.byLabel[a.Label()] = a.ActionID()
	return nil
}

// Size returns the number of registered actions.
func (r *ActionRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions)
}

// Action returns the action with the given id, or nil.
func (r *ActionRegistry) Action(id ActionID) Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id < 0 || int(id) >= len(r.actions) {
		return nil
	}
	return r.actions[id]
}

// Find returns the id of the action with the given label.
func (r *ActionRegistry) Find(label string) (ActionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byLabel[label]
	return id, ok
}

// Label returns the label of an action id, or a placeholder.
func (r *ActionRegistry) Label(id ActionID) string {
	if a := r.Action(id); a != nil {
		return a.Label()
	}
	return "[none]"
}

// Actions returns the registered actions in id order.
func (r *ActionRegistry) Actions() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Action(nil), r.actions...)
}
