package cinnamon

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/pkg/errors"

	cerrors "github.com/ajaimes/cinnamon/internal/errors"
)

// Factory builds a fresh handler instance for one request
type Factory func() (any, error)

var resultType = reflect.TypeOf((*Result)(nil))

// ActionSpec describes one dispatchable action of a handler: its name as
// it appears in URLs, the function invoked, and one Binding per parameter.
type ActionSpec struct {
	name     string
	fn       reflect.Value
	bindings []*Binding
	mapping  string
	slots    []string

	params       []*BindingSpec
	returnsError bool
	dispatchable bool
	err          error
}

// Action declares an action. fn is a method expression such as
// (*Users).Show, or any func whose first parameter receives the handler.
// Supported return shapes are *Result and (*Result, error); any other
// shape is kept but never matched by a request.
func Action(name string, fn any, bindings ...*Binding) *ActionSpec {
	return &ActionSpec{
		name:     name,
		fn:       reflect.ValueOf(fn),
		bindings: bindings,
	}
}

// Mapping names the positional URL parameters, e.g. "/year/month" binds
// /Archive/show/2024/05 to the bindings named year and month.
func (a *ActionSpec) Mapping(path string) *ActionSpec {
	a.mapping = path
	a.slots = nil
	for _, slot := range strings.Split(strings.Trim(path, "/"), "/") {
		if slot != "" {
			a.slots = append(a.slots, slot)
		}
	}
	return a
}

// Name returns the action name
func (a *ActionSpec) Name() string {
	return a.name
}

// Err returns the compile error remembered for the action, if any
func (a *ActionSpec) Err() error {
	return a.err
}

// slotIndex returns the position of name in the mapping, or -1
func (a *ActionSpec) slotIndex(name string) int {
	for i, slot := range a.slots {
		if slot == name {
			return i
		}
	}
	return -1
}

// compile validates the function shape and compiles every binding
func (a *ActionSpec) compile(handler string) error {
	loc := cerrors.SourceLocation{Handler: handler, Member: a.name}
	if a.name == "" {
		return cerrors.NewRegistrationError(handler, "action has no name")
	}
	if !a.fn.IsValid() || a.fn.Kind() != reflect.Func {
		return cerrors.NewBindingError(loc, "action function is not a func", nil)
	}

	ft := a.fn.Type()
	if ft.NumIn() < 1 {
		return cerrors.NewBindingError(loc, "action function must take the handler as its first parameter", nil)
	}
	if ft.IsVariadic() {
		return cerrors.NewBindingError(loc, "variadic action functions are not supported", ErrUnsupportedType)
	}

	switch {
	case ft.NumOut() == 1 && ft.Out(0) == resultType:
		a.dispatchable = true
	case ft.NumOut() == 2 && ft.Out(0) == resultType && ft.Out(1) == errorType:
		a.dispatchable = true
		a.returnsError = true
	}

	if n := ft.NumIn() - 1; n != len(a.bindings) {
		return cerrors.NewBindingError(loc,
			fmt.Sprintf("%d parameters but %d bindings", n, len(a.bindings)), ErrNonMatchingAnnotations)
	}

	a.params = make([]*BindingSpec, 0, len(a.bindings))
	for i, b := range a.bindings {
		paramLoc := loc
		paramLoc.Index = i + 1
		spec, err := compileBinding(b, ft.In(i+1), paramLoc)
		if err != nil {
			return err
		}
		a.params = append(a.params, spec)
	}
	return nil
}

// handlerEntry is one registered handler
type handlerEntry struct {
	name    string
	factory Factory
	actions []*ActionSpec
}

// findAction returns the first dispatchable action named name, in
// registration order
func (h *handlerEntry) findAction(name string) *ActionSpec {
	for _, a := range h.actions {
		if a.name == name && a.dispatchable {
			return a
		}
	}
	return nil
}

// RouteInfo contains metadata about a registered action
type RouteInfo struct {
	// Handler is the fully qualified handler name
	Handler string

	// Action is the action name as matched against URLs
	Action string

	// Mapping is the positional parameter mapping, if any
	Mapping string

	// Parameters lists the compiled bindings in parameter order
	Parameters []ParameterInfo

	// Dispatchable is false when the return shape can never be matched
	Dispatchable bool

	// Err is the compile error remembered for the action
	Err error
}

// ParameterInfo describes one compiled binding
type ParameterInfo struct {
	Name     string
	Kind     string
	Type     string
	Required bool
}

// Registry is the startup-time table mapping fully qualified handler
// names to factories and actions. It is safe for concurrent lookups.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]*handlerEntry
	order    []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]*handlerEntry)}
}

// DefaultRegistry is the global registry used by package level helpers
var DefaultRegistry = NewRegistry()

// Register adds a handler under a fully qualified name such as
// "github.com/acme/shop/controllers.Users". Action compile errors are
// returned and also remembered, so a request for a broken action fails
// with a server error; the handler is registered either way. A duplicate
// name is rejected.
func (r *Registry) Register(name string, factory Factory, actions ...*ActionSpec) error {
	if name == "" {
		return cerrors.NewRegistrationError("", "handler name is empty")
	}
	if factory == nil {
		return cerrors.NewRegistrationError(name, "factory is nil")
	}

	errs := cerrors.NewMultipleErrors()
	for _, a := range actions {
		if err := a.compile(name); err != nil {
			a.err = err
			if ce, ok := err.(cerrors.CinnamonError); ok {
				errs.Add(ce)
			} else {
				errs.Add(cerrors.Wrap(cerrors.RegistrationErrorCode, "action "+a.name, err))
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return cerrors.NewRegistrationError(name, "handler already registered").
			WithSuggestion("each handler type can only be registered once per registry")
	}
	r.handlers[name] = &handlerEntry{name: name, factory: factory, actions: actions}
	r.order = append(r.order, name)
	return errs.ErrOrNil()
}

// RegisterHandler calls factory once to learn the handler type and
// registers it under the type's package path and name.
func (r *Registry) RegisterHandler(factory Factory, actions ...*ActionSpec) (string, error) {
	if factory == nil {
		return "", cerrors.NewRegistrationError("", "factory is nil")
	}
	probe, err := factory()
	if err != nil {
		return "", cerrors.Wrap(cerrors.RegistrationErrorCode, "factory failed", err)
	}
	name, err := TypeName(probe)
	if err != nil {
		return "", err
	}
	if _, ok := probe.(Handler); !ok {
		return name, cerrors.NewRegistrationError(name, "type does not implement cinnamon.Handler").
			WithSuggestion("embed cinnamon.Controller in the handler struct")
	}
	for _, a := range actions {
		if a.fn.IsValid() && a.fn.Kind() == reflect.Func && a.fn.Type().NumIn() > 0 &&
			!reflect.TypeOf(probe).AssignableTo(a.fn.Type().In(0)) {
			a.err = cerrors.NewBindingError(cerrors.SourceLocation{Handler: name, Member: a.name},
				fmt.Sprintf("first parameter %s does not accept %T", a.fn.Type().In(0), probe), nil)
		}
	}

	if err := r.Register(name, factory, actions...); err != nil {
		return name, err
	}
	return name, firstActionError(actions)
}

func firstActionError(actions []*ActionSpec) error {
	for _, a := range actions {
		if a.err != nil {
			return a.err
		}
	}
	return nil
}

// MustRegister is Register that panics on error
func (r *Registry) MustRegister(name string, factory Factory, actions ...*ActionSpec) {
	if err := r.Register(name, factory, actions...); err != nil {
		panic(err)
	}
}

// TypeName returns "<package path>.<type name>" for v's type, looking
// through one pointer
func TypeName(v any) (string, error) {
	t := reflect.TypeOf(v)
	if t == nil {
		return "", errors.New("nil value has no type name")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return "", errors.Errorf("type %s has no package qualified name", t)
	}
	return t.PkgPath() + "." + t.Name(), nil
}

func (r *Registry) lookup(name string) (*handlerEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered handler names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Routes returns every registered action in registration order
func (r *Registry) Routes() []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var routes []RouteInfo
	for _, name := range r.order {
		for _, a := range r.handlers[name].actions {
			info := RouteInfo{
				Handler:      name,
				Action:       a.name,
				Mapping:      a.mapping,
				Dispatchable: a.dispatchable,
				Err:          a.err,
			}
			for _, p := range a.params {
				info.Parameters = append(info.Parameters, ParameterInfo{
					Name:     p.Name,
					Kind:     p.Kind.String(),
					Type:     p.Type.String(),
					Required: p.Required,
				})
			}
			routes = append(routes, info)
		}
	}
	return routes
}

// GetRoutes returns all routes of DefaultRegistry (convenience function)
func GetRoutes() []RouteInfo {
	return DefaultRegistry.Routes()
}
