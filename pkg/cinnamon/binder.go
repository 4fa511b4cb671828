package cinnamon

import (
	"fmt"
	"reflect"
)

// checkMapping fails with NotFound when the action maps positional
// parameters and the URL carries a different number of them
func (a *ActionSpec) checkMapping(target RouteTarget) error {
	if len(a.slots) == 0 {
		return nil
	}
	if got := len(target.Params()); got != len(a.slots) {
		return NotFound(fmt.Sprintf("mapping %q expects %d positional parameters, URL has %d", a.mapping, len(a.slots), got), nil)
	}
	return nil
}

// BindArguments produces the argument list for the action, handler
// excluded. Constraint violations are recorded in msgs and never fail the
// bind; only a mapping mismatch (NotFound) or a binding that could not be
// compiled (ServerError) does, before any value is coerced.
func (a *ActionSpec) BindArguments(target RouteTarget, params Params, msgs *Messages) ([]reflect.Value, error) {
	if a.err != nil {
		return nil, ServerError("action bindings are invalid", a.err)
	}
	if err := a.checkMapping(target); err != nil {
		return nil, err
	}

	positional := target.Params()
	args := make([]reflect.Value, len(a.params))
	for i, spec := range a.params {
		switch spec.Kind {
		case KindObject:
			args[i] = spec.object.bind(params, msgs)
		case KindStringArray:
			args[i] = spec.coerceAll(params.GetAll(spec.Name))
		default:
			raw, present := "", false
			if slot := a.slotIndex(spec.Name); slot >= 0 {
				raw, present = positional[slot], true
			} else {
				raw, present = params.Lookup(spec.Name)
			}
			args[i] = spec.coerce(raw, present, msgs)
		}
	}
	return args, nil
}
