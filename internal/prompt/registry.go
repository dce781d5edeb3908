package prompt

import (
	"fmt"
	"sync"

	"github.com/kayz/inkwright/internal/logger"
)

// ArgKind is the declared kind of a call-binding argument.
type ArgKind int

const (
	ArgInt ArgKind = iota
	ArgBool
	ArgString
)

func (k ArgKind) String() string {
	switch k {
	case ArgInt:
		return "int"
	case ArgBool:
		return "bool"
	case ArgString:
		return "string"
	}
	return "unknown"
}

// Value is a typed argument passed to a call binding.
type Value struct {
	Kind ArgKind
	Int  int
	Bool bool
	Str  string
}

// IntValue builds an int argument value.
func IntValue(v int) Value { return Value{Kind: ArgInt, Int: v} }

// BoolValue builds a bool argument value.
func BoolValue(v bool) Value { return Value{Kind: ArgBool, Bool: v} }

// StringValue builds a string argument value.
func StringValue(v string) Value { return Value{Kind: ArgString, Str: v} }

type bindingKind int

const (
	bindConstant bindingKind = iota
	bindThunk
	bindCall
)

// Binding is a tagged value producer: a constant, a zero-argument thunk,
// or a call accepting a declared list of typed positional arguments.
type Binding struct {
	kind     bindingKind
	constant string
	thunk    func() (string, error)
	call     func(args []Value) (string, error)
	argKinds []ArgKind
}

// Constant builds a binding that always yields v.
func Constant(v string) Binding {
	return Binding{kind: bindConstant, constant: v}
}

// Thunk builds a binding evaluated on each snapshot or resolve.
func Thunk(fn func() (string, error)) Binding {
	return Binding{kind: bindThunk, thunk: fn}
}

// Call builds a parameterized binding with a declared argument signature.
func Call(kinds []ArgKind, fn func(args []Value) (string, error)) Binding {
	return Binding{kind: bindCall, call: fn, argKinds: kinds}
}

// Registry is a catalog of named value producers used to assemble render
// contexts. Registration is last-write-wins; resolution never panics.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]Binding
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]Binding)}
}

// Register adds or replaces a binding.
func (r *Registry) Register(name string, b Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[name] = b
}

// Unregister removes a binding if present.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, name)
}

// Resolve evaluates the named binding with the given arguments. The second
// return value is false when the name is unknown, the arguments do not match
// the declared signature, or the producer failed; a failed producer affects
// only this name, never the surrounding render.
func (r *Registry) Resolve(name string, args []Value) (string, bool) {
	r.mu.RLock()
	b, ok := r.bindings[name]
	r.mu.RUnlock()
	if !ok {
		return "", false
	}

	switch b.kind {
	case bindConstant:
		if len(args) > 0 {
			logger.Warnf("variable %q takes no arguments, got %d", name, len(args))
			return "", false
		}
		return b.constant, true
	case bindThunk:
		if len(args) > 0 {
			logger.Warnf("variable %q takes no arguments, got %d", name, len(args))
			return "", false
		}
		v, err := b.thunk()
		if err != nil {
			logger.Warnf("variable %q failed: %v", name, err)
			return "", false
		}
		return v, true
	case bindCall:
		if err := checkArgs(name, b.argKinds, args); err != nil {
			logger.Warnf("%v", err)
			return "", false
		}
		v, err := b.call(args)
		if err != nil {
			logger.Warnf("variable %q failed: %v", name, err)
			return "", false
		}
		return v, true
	}
	return "", false
}

// Snapshot eagerly evaluates every constant and zero-argument binding once,
// producing the baseline mapping for a render pass. Failed producers yield an
// empty string for their name only.
func (r *Registry) Snapshot() map[string]string {
	r.mu.RLock()
	names := make([]string, 0, len(r.bindings))
	kinds := make(map[string]bindingKind, len(r.bindings))
	for name, b := range r.bindings {
		names = append(names, name)
		kinds[name] = b.kind
	}
	r.mu.RUnlock()

	out := make(map[string]string, len(names))
	for _, name := range names {
		if kinds[name] == bindCall {
			continue
		}
		v, ok := r.Resolve(name, nil)
		if !ok {
			v = ""
		}
		out[name] = v
	}
	return out
}

func checkArgs(name string, kinds []ArgKind, args []Value) error {
	if len(args) != len(kinds) {
		return fmt.Errorf("variable %q expects %d arguments, got %d", name, len(kinds), len(args))
	}
	for i, k := range kinds {
		if args[i].Kind != k {
			return fmt.Errorf("variable %q argument %d: expected %s, got %s", name, i+1, k, args[i].Kind)
		}
	}
	return nil
}
