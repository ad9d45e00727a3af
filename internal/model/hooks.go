package model

import (
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

// ChangeKind describes how a property value changed
type ChangeKind int

const (
	// ChangeAssign replaces an attribute, statements or 1:1 value
	ChangeAssign ChangeKind = iota
	// ChangeAdd adds a member to a 1:M association
	ChangeAdd
	// ChangeRemove removes a member from a 1:M association
	ChangeRemove
)

// String returns the string representation of the change kind
func (k ChangeKind) String() string {
	switch k {
	case ChangeAssign:
		return "assign"
	case ChangeAdd:
		return "add"
	case ChangeRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// ChangeEvent describes a single property mutation.
// For ChangeAdd, New is the added member and Old is a placeholder it
// replaced, if any. For ChangeRemove, Old is the removed member.
type ChangeEvent struct {
	Object   *Object
	Property *schema.MetaProperty
	Kind     ChangeKind
	Old      any
	New      any

	// Inverse marks the peer-side half of inverse link maintenance
	Inverse bool
}

// ChangingFunc is called before a mutation; a non-nil error vetoes it
type ChangingFunc func(ev *ChangeEvent) error

// ChangedFunc is called after a mutation
type ChangedFunc func(ev *ChangeEvent)

// HookType represents when a hook runs relative to the mutation
type HookType int

const (
	HookChanging HookType = iota
	HookChanged
)

// Hook represents a registered change subscriber
type Hook struct {
	id       uint64
	Type     HookType
	changing ChangingFunc
	changed  ChangedFunc
}

// Subscription cancels a registered hook
type Subscription struct {
	cancel func()
}

// Cancel removes the hook. It is safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil || s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
}

// hookRegistry manages the subscribers of one object
type hookRegistry struct {
	hooks  map[HookType][]*Hook
	nextID uint64
}

func newHookRegistry() *hookRegistry {
	return &hookRegistry{
		hooks: make(map[HookType][]*Hook),
	}
}

func (r *hookRegistry) register(hook *Hook) *Subscription {
	r.nextID++
	hook.id = r.nextID
	r.hooks[hook.Type] = append(r.hooks[hook.Type], hook)

	return &Subscription{cancel: func() { r.remove(hook.Type, hook.id) }}
}

func (r *hookRegistry) remove(hookType HookType, id uint64) {
	hooks := r.hooks[hookType]
	for i, h := range hooks {
		if h.id == id {
			r.hooks[hookType] = append(hooks[:i:i], hooks[i+1:]...)
			return
		}
	}
}

// getHooks returns a copy so subscribers may cancel while being notified
func (r *hookRegistry) getHooks(hookType HookType) []*Hook {
	hooks := r.hooks[hookType]
	if len(hooks) == 0 {
		return nil
	}
	out := make([]*Hook, len(hooks))
	copy(out, hooks)
	return out
}

func (r *hookRegistry) changing(ev *ChangeEvent) error {
	for _, h := range r.getHooks(HookChanging) {
		if err := h.changing(ev); err != nil {
			return err
		}
	}
	return nil
}

func (r *hookRegistry) changed(ev *ChangeEvent) {
	for _, h := range r.getHooks(HookChanged) {
		h.changed(ev)
	}
}

// OnChanging subscribes fn to run before every vetoable mutation of o.
// Peer-side inverse updates are not offered for veto.
func (o *Object) OnChanging(fn ChangingFunc) *Subscription {
	return o.hooks.register(&Hook{Type: HookChanging, changing: fn})
}

// OnChanged subscribes fn to run after every mutation of o, including
// peer-side inverse updates.
func (o *Object) OnChanged(fn ChangedFunc) *Subscription {
	return o.hooks.register(&Hook{Type: HookChanged, changed: fn})
}
