package cinnamon

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/ajaimes/cinnamon/internal/annotations"
	cerrors "github.com/ajaimes/cinnamon/internal/errors"
)

// ParamTagName is the struct tag read by object bindings
const ParamTagName = "param"

type objectSpec struct {
	typ      reflect.Type
	pointer  bool
	fields   []*fieldSpec
	validate bool
}

type fieldSpec struct {
	index  int
	spec   *BindingSpec
	setter *reflect.Method
}

// Fields returns the compiled field bindings in declaration order
func (o *objectSpec) Fields() []*BindingSpec {
	out := make([]*BindingSpec, len(o.fields))
	for i, f := range o.fields {
		out[i] = f.spec
	}
	return out
}

// compileObject builds the BindingSpec for a struct or *struct parameter. Each
// field carrying a param tag is bound from the request, through a
// Set<Field> method on the pointer type when one with a single argument
// exists.
func compileObject(t reflect.Type, loc cerrors.SourceLocation) (*BindingSpec, error) {
	obj := &objectSpec{typ: t}
	if t.Kind() == reflect.Pointer {
		obj.typ = t.Elem()
		obj.pointer = true
	}
	if obj.typ.Kind() != reflect.Struct {
		return nil, cerrors.NewBindingError(loc, fmt.Sprintf("object binding needs a struct, got %s", t),
			errors.Wrapf(ErrUnsupportedType, "%s", t))
	}

	ptrType := reflect.PointerTo(obj.typ)
	for i := 0; i < obj.typ.NumField(); i++ {
		field := obj.typ.Field(i)
		if _, ok := field.Tag.Lookup("validate"); ok {
			obj.validate = true
		}
		tag, ok := field.Tag.Lookup(ParamTagName)
		if !ok {
			continue
		}

		fieldLoc := cerrors.SourceLocation{Handler: obj.typ.String(), Member: field.Name, Index: i + 1}
		parsed, err := annotations.Parse(tag)
		if err != nil {
			return nil, cerrors.NewBindingError(fieldLoc, "invalid param tag", err)
		}

		fs := &fieldSpec{index: i}
		target := field.Type
		if m, ok := ptrType.MethodByName("Set" + upperFirst(field.Name)); ok && isSetter(m) {
			fs.setter = &m
			target = m.Type.In(1)
		} else if !field.IsExported() {
			return nil, cerrors.NewBindingError(fieldLoc, "unexported field needs a Set"+upperFirst(field.Name)+" method", nil)
		}

		spec, err := compileBinding(bindingFromTag(parsed), target, fieldLoc)
		if err != nil {
			return nil, err
		}
		fs.spec = spec
		obj.fields = append(obj.fields, fs)
	}

	return &BindingSpec{
		Name:    obj.typ.Name(),
		Kind:    KindObject,
		Type:    t,
		Message: DefaultViolationMessage,
		object:  obj,
	}, nil
}

// isSetter reports whether m takes one argument and returns nothing or an error
func isSetter(m reflect.Method) bool {
	mt := m.Type
	if mt.NumIn() != 2 {
		return false
	}
	switch mt.NumOut() {
	case 0:
		return true
	case 1:
		return mt.Out(0) == errorType
	}
	return false
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// bind builds a fresh value and populates it from request parameters only.
// Setter failures are swallowed and the field skipped.
func (o *objectSpec) bind(params Params, msgs *Messages) reflect.Value {
	ptr := reflect.New(o.typ)
	elem := ptr.Elem()

	for _, f := range o.fields {
		var value reflect.Value
		if f.spec.Kind == KindStringArray {
			values := params.GetAll(f.spec.Name)
			if len(values) == 0 {
				if f.spec.Required {
					msgs.Add(f.spec.Name, f.spec.Message)
				}
				continue
			}
			value = f.spec.coerceAll(values)
		} else {
			raw, present := params.Lookup(f.spec.Name)
			if !present {
				if f.spec.Required {
					msgs.Add(f.spec.Name, f.spec.Message)
				}
				continue
			}
			value = f.spec.coerce(raw, true, msgs)
		}

		if f.setter != nil {
			callSetter(ptr, f.setter, value)
			continue
		}
		elem.Field(f.index).Set(value)
	}

	if o.validate {
		o.runValidator(ptr, msgs)
	}

	if o.pointer {
		return ptr
	}
	return elem
}

func callSetter(ptr reflect.Value, m *reflect.Method, value reflect.Value) {
	defer func() {
		_ = recover()
	}()
	m.Func.Call([]reflect.Value{ptr, value})
}

// runValidator records one message per failing validate tag, keyed by the
// field's param name
func (o *objectSpec) runValidator(ptr reflect.Value, msgs *Messages) {
	err := structValidator().Struct(ptr.Interface())
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return
	}
	for _, fe := range verrs {
		msgs.Add(fe.Field(), o.messageFor(fe.Field()))
	}
}

func (o *objectSpec) messageFor(name string) string {
	for _, f := range o.fields {
		if f.spec.Name == name {
			return f.spec.Message
		}
	}
	return DefaultViolationMessage
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// structValidator returns the shared validator, built on first use
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag, ok := fld.Tag.Lookup(ParamTagName)
			if !ok {
				return ""
			}
			name, _, _ := strings.Cut(strings.TrimSpace(tag), " ")
			return name
		})
	})
	return validate
}
