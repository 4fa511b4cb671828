package cinnamon

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// ResolvedHandler is a freshly built handler instance together with the
// action chosen for the request. It lives for one request.
type ResolvedHandler struct {
	Name     string
	Instance Handler
	Action   *ActionSpec
}

// Resolve runs the controller resolver and then the method resolver
func (r *Registry) Resolve(handlerName, actionName string) (*ResolvedHandler, error) {
	entry, instance, err := r.instantiate(handlerName)
	if err != nil {
		return nil, err
	}
	action, err := resolveAction(entry, instance, actionName)
	if err != nil {
		return nil, err
	}
	return &ResolvedHandler{Name: handlerName, Instance: instance, Action: action}, nil
}

// instantiate builds a handler by fully qualified name. An unknown name or
// a value that is not a Handler is NotFound; a factory error, nil value or
// panic is a ServerError.
func (r *Registry) instantiate(name string) (entry *handlerEntry, h Handler, err error) {
	entry, ok := r.lookup(name)
	if !ok {
		return nil, nil, NotFound(fmt.Sprintf("handler %q not found or access not allowed", name), nil)
	}

	defer func() {
		if rec := recover(); rec != nil {
			entry, h = nil, nil
			err = ServerError(fmt.Sprintf("handler %q cannot be instantiated", name),
				errors.Errorf("factory panic: %v", rec))
		}
	}()

	v, ferr := entry.factory()
	if ferr != nil {
		return nil, nil, ServerError(fmt.Sprintf("handler %q cannot be instantiated", name), errors.WithStack(ferr))
	}
	if v == nil || isNilPointer(v) {
		return nil, nil, ServerError(fmt.Sprintf("handler %q factory returned nil", name), nil)
	}
	h, ok = v.(Handler)
	if !ok {
		return nil, nil, NotFound(fmt.Sprintf("%T does not implement cinnamon.Handler", v), nil)
	}
	return entry, h, nil
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// resolveAction picks the first registered action with a matching name and
// a supported return shape
func resolveAction(entry *handlerEntry, instance Handler, name string) (*ActionSpec, error) {
	action := entry.findAction(name)
	if action == nil {
		return nil, NotFound(fmt.Sprintf("path to %q was not found or access is not allowed", entry.name+"."+name), nil)
	}
	if action.err != nil {
		return nil, ServerError(fmt.Sprintf("action %q cannot be dispatched", entry.name+"."+name), action.err)
	}
	if recv := action.fn.Type().In(0); !reflect.TypeOf(instance).AssignableTo(recv) {
		return nil, ServerError(fmt.Sprintf("action %q expects %s, handler is %T", entry.name+"."+name, recv, instance), nil)
	}
	return action, nil
}
