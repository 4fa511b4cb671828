package cinnamon

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ajaimes/cinnamon/internal/annotations"
	cerrors "github.com/ajaimes/cinnamon/internal/errors"
)

// DefaultViolationMessage is recorded when a binding declares no message
const DefaultViolationMessage = "The value entered is not valid."

// Kind is the coercion family of a bound parameter
type Kind int

const (
	KindString Kind = iota
	KindBoolean
	KindInt
	KindLong
	KindShort
	KindByte
	KindFloat
	KindDouble
	KindStringArray
	KindObject
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindBoolean:
		return "Boolean"
	case KindInt:
		return "Int"
	case KindLong:
		return "Long"
	case KindShort:
		return "Short"
	case KindByte:
		return "Byte"
	case KindFloat:
		return "Float"
	case KindDouble:
		return "Double"
	case KindStringArray:
		return "StringArray"
	case KindObject:
		return "Object"
	default:
		return "Unknown"
	}
}

func (k Kind) isInteger() bool {
	return k == KindInt || k == KindLong || k == KindShort || k == KindByte
}

func (k Kind) isFloat() bool {
	return k == KindFloat || k == KindDouble
}

func (k Kind) bitSize() int {
	switch k {
	case KindInt:
		return strconv.IntSize
	case KindLong, KindDouble:
		return 64
	case KindShort:
		return 16
	case KindByte:
		return 8
	case KindFloat:
		return 32
	}
	return 0
}

// kindOf maps a Go type, named or not, onto its coercion kind
func kindOf(t reflect.Type) (Kind, bool) {
	switch t.Kind() {
	case reflect.String:
		return KindString, true
	case reflect.Bool:
		return KindBoolean, true
	case reflect.Int:
		return KindInt, true
	case reflect.Int64:
		return KindLong, true
	case reflect.Int16:
		return KindShort, true
	case reflect.Int8:
		return KindByte, true
	case reflect.Float32:
		return KindFloat, true
	case reflect.Float64:
		return KindDouble, true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.String {
			return KindStringArray, true
		}
	}
	return 0, false
}

// Binding declares how one action parameter is read from the request.
// Build it with Param, Bind or Tag.
type Binding struct {
	name      string
	object    bool
	def       any
	min       any
	max       any
	minLength *int
	maxLength *int
	regex     *string
	required  bool
	message   *string
	tagErr    error
}

// Param binds a parameter to the request value called name
func Param(name string) *Binding {
	return &Binding{name: name}
}

// Bind populates a struct parameter from its `param` tagged fields
func Bind() *Binding {
	return &Binding{object: true}
}

// Tag builds a Binding from the `param` tag syntax, e.g.
// Tag("age -Default=18 -Min=18 -Max=120").
func Tag(tag string) *Binding {
	parsed, err := annotations.Parse(tag)
	if err != nil {
		return &Binding{name: tag, tagErr: err}
	}
	return bindingFromTag(parsed)
}

func bindingFromTag(t *annotations.ParamTag) *Binding {
	b := &Binding{
		name:      t.Name,
		minLength: t.MinLength,
		maxLength: t.MaxLength,
		regex:     t.Regex,
		required:  t.Required,
		message:   t.Message,
	}
	if t.Default != nil {
		b.def = *t.Default
	}
	if t.Min != nil {
		b.min = *t.Min
	}
	if t.Max != nil {
		b.max = *t.Max
	}
	return b
}

// Builder methods set the optional parts of a Binding and return it.

func (b *Binding) Default(v any) *Binding    { b.def = v; return b }
func (b *Binding) Min(v any) *Binding        { b.min = v; return b }
func (b *Binding) Max(v any) *Binding        { b.max = v; return b }
func (b *Binding) MinLength(n int) *Binding  { b.minLength = &n; return b }
func (b *Binding) MaxLength(n int) *Binding  { b.maxLength = &n; return b }
func (b *Binding) Regex(re string) *Binding  { b.regex = &re; return b }
func (b *Binding) Required() *Binding        { b.required = true; return b }
func (b *Binding) Message(m string) *Binding { b.message = &m; return b }

// Name returns the request parameter name
func (b *Binding) Name() string {
	return b.name
}

// BindingSpec is a Binding compiled against the Go type it fills. It is
// read-only once built.
type BindingSpec struct {
	Name      string
	Kind      Kind
	Type      reflect.Type
	MinLength int
	MaxLength int
	Required  bool
	Message   string

	regex    *regexp.Regexp
	def      reflect.Value
	minInt   int64
	maxInt   int64
	minFloat float64
	maxFloat float64
	object   *objectSpec
}

// Pattern returns the regex source, or ""
func (s *BindingSpec) Pattern() string {
	if s.regex == nil {
		return ""
	}
	return s.regex.String()
}

// Bounds returns the numeric bounds as strings for display
func (s *BindingSpec) Bounds() (min, max string) {
	switch {
	case s.Kind.isInteger():
		return strconv.FormatInt(s.minInt, 10), strconv.FormatInt(s.maxInt, 10)
	case s.Kind.isFloat():
		return strconv.FormatFloat(s.minFloat, 'g', -1, 64), strconv.FormatFloat(s.maxFloat, 'g', -1, 64)
	}
	return "", ""
}

// compileBinding resolves a Binding against the Go type t
func compileBinding(b *Binding, t reflect.Type, loc cerrors.SourceLocation) (*BindingSpec, error) {
	if b == nil {
		return nil, cerrors.NewBindingError(loc, "parameter has no binding", ErrNonMatchingAnnotations)
	}
	if b.tagErr != nil {
		return nil, cerrors.NewBindingError(loc, "invalid binding tag", b.tagErr)
	}
	if b.object {
		return compileObject(t, loc)
	}

	kind, ok := kindOf(t)
	if !ok {
		return nil, cerrors.NewBindingError(loc, fmt.Sprintf("type %s cannot be bound", t),
			errors.Wrapf(ErrUnsupportedType, "%s", t))
	}
	if b.name == "" {
		return nil, cerrors.NewBindingError(loc, "binding has no parameter name", ErrNonMatchingAnnotations)
	}

	spec := &BindingSpec{
		Name:      b.name,
		Kind:      kind,
		Type:      t,
		MinLength: 0,
		MaxLength: -1,
		Required:  b.required,
		Message:   DefaultViolationMessage,
	}
	if b.message != nil {
		spec.Message = *b.message
	}
	if b.minLength != nil {
		spec.MinLength = *b.minLength
	}
	if b.maxLength != nil {
		spec.MaxLength = *b.maxLength
	}
	if b.regex != nil && *b.regex != "" {
		// a pattern must match the whole value
		re, err := regexp.Compile(`^(?:` + *b.regex + `)$`)
		if err != nil {
			return nil, cerrors.NewBindingError(loc, "invalid regex", err)
		}
		spec.regex = re
	}

	if err := spec.compileBounds(b); err != nil {
		return nil, cerrors.NewBindingError(loc, "invalid bounds", err)
	}
	def, err := spec.compileDefault(b.def)
	if err != nil {
		return nil, cerrors.NewBindingError(loc, "invalid default", err)
	}
	spec.def = def
	return spec, nil
}

func (s *BindingSpec) compileBounds(b *Binding) error {
	switch {
	case s.Kind.isInteger():
		s.minInt, s.maxInt = integerRange(s.Kind)
		if b.min != nil {
			n, err := toInt64(b.min, s.Kind.bitSize())
			if err != nil {
				return errors.Wrap(err, "min")
			}
			s.minInt = n
		}
		if b.max != nil {
			n, err := toInt64(b.max, s.Kind.bitSize())
			if err != nil {
				return errors.Wrap(err, "max")
			}
			s.maxInt = n
		}
		if s.minInt > s.maxInt {
			return errors.Errorf("min %d is greater than max %d", s.minInt, s.maxInt)
		}
	case s.Kind.isFloat():
		limit := math.MaxFloat64
		if s.Kind == KindFloat {
			limit = math.MaxFloat32
		}
		s.minFloat, s.maxFloat = -limit, limit
		if b.min != nil {
			f, err := toFloat64(b.min)
			if err != nil {
				return errors.Wrap(err, "min")
			}
			s.minFloat = f
		}
		if b.max != nil {
			f, err := toFloat64(b.max)
			if err != nil {
				return errors.Wrap(err, "max")
			}
			s.maxFloat = f
		}
		if s.minFloat > s.maxFloat {
			return errors.Errorf("min %g is greater than max %g", s.minFloat, s.maxFloat)
		}
	default:
		if b.min != nil || b.max != nil {
			return errors.Errorf("min/max do not apply to %s parameters", s.Kind)
		}
	}
	if s.MinLength < 0 {
		return errors.Errorf("minLength %d is negative", s.MinLength)
	}
	if s.MaxLength >= 0 && s.MaxLength < s.MinLength {
		return errors.Errorf("maxLength %d is less than minLength %d", s.MaxLength, s.MinLength)
	}
	return nil
}

func (s *BindingSpec) compileDefault(v any) (reflect.Value, error) {
	t := s.Type
	if v == nil {
		if s.Kind == KindStringArray {
			return reflect.MakeSlice(t, 0, 0), nil
		}
		return reflect.Zero(t), nil
	}

	switch {
	case s.Kind == KindString:
		str, ok := v.(string)
		if !ok {
			return reflect.Value{}, errors.Errorf("%T is not a string", v)
		}
		return reflect.ValueOf(str).Convert(t), nil
	case s.Kind == KindBoolean:
		switch d := v.(type) {
		case bool:
			return reflect.ValueOf(d).Convert(t), nil
		case string:
			parsed, err := strconv.ParseBool(d)
			if err != nil {
				return reflect.Value{}, errors.Wrap(err, "boolean default")
			}
			return reflect.ValueOf(parsed).Convert(t), nil
		}
		return reflect.Value{}, errors.Errorf("%T is not a bool", v)
	case s.Kind.isInteger():
		n, err := toInt64(v, s.Kind.bitSize())
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(n).Convert(t), nil
	case s.Kind.isFloat():
		f, err := toFloat64(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if s.Kind == KindFloat && math.Abs(f) > math.MaxFloat32 {
			return reflect.Value{}, errors.Errorf("%g overflows float32", f)
		}
		return reflect.ValueOf(f).Convert(t), nil
	case s.Kind == KindStringArray:
		switch d := v.(type) {
		case []string:
			return reflect.ValueOf(append([]string{}, d...)).Convert(t), nil
		case string:
			return reflect.ValueOf([]string{d}).Convert(t), nil
		}
		return reflect.Value{}, errors.Errorf("%T is not a []string", v)
	}
	return reflect.Value{}, errors.Errorf("no default for %s", s.Kind)
}

// defaultValue returns a fresh copy of the default
func (s *BindingSpec) defaultValue() reflect.Value {
	if s.Kind == KindStringArray {
		out := reflect.MakeSlice(s.Type, s.def.Len(), s.def.Len())
		reflect.Copy(out, s.def)
		return out
	}
	return s.def
}

func integerRange(k Kind) (int64, int64) {
	switch k {
	case KindLong:
		return math.MinInt64, math.MaxInt64
	case KindShort:
		return math.MinInt16, math.MaxInt16
	case KindByte:
		return math.MinInt8, math.MaxInt8
	default:
		return math.MinInt, math.MaxInt
	}
}

// toInt64 accepts any integer, an integral float, or a numeric string and
// checks it fits bitSize
func toInt64(v any, bitSize int) (int64, error) {
	var n int64
	switch x := v.(type) {
	case string:
		parsed, err := strconv.ParseInt(x, 10, bitSize)
		if err != nil {
			return 0, errors.Wrapf(err, "parsing %q", x)
		}
		return parsed, nil
	case float32, float64:
		f := reflect.ValueOf(x).Float()
		if f != math.Trunc(f) {
			return 0, errors.Errorf("%g is not an integer", f)
		}
		n = int64(f)
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n = rv.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			u := rv.Uint()
			if u > math.MaxInt64 {
				return 0, errors.Errorf("%d overflows int64", u)
			}
			n = int64(u)
		default:
			return 0, errors.Errorf("%T is not an integer", v)
		}
	}
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if bitSize < 64 {
		lo, hi = -1<<(bitSize-1), 1<<(bitSize-1)-1
	}
	if n < lo || n > hi {
		return 0, errors.Errorf("%d overflows a %d-bit integer", n, bitSize)
	}
	return n, nil
}

func toFloat64(v any) (float64, error) {
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "parsing %q", s)
		}
		return f, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return 0, errors.Errorf("%T is not a number", v)
}
