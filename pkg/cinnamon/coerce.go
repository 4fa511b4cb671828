package cinnamon

import (
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// coerce converts a raw request value into the binding's Go type. Constraint
// failures are recorded in msgs under the binding name and never stop the
// value from being returned.
func (s *BindingSpec) coerce(raw string, present bool, msgs *Messages) reflect.Value {
	switch {
	case s.Kind == KindString:
		return s.coerceString(raw, present, msgs)
	case s.Kind == KindBoolean:
		return reflect.ValueOf(present && strings.EqualFold(raw, "true")).Convert(s.Type)
	case s.Kind.isInteger():
		return s.coerceInteger(raw, present, msgs)
	case s.Kind.isFloat():
		return s.coerceFloat(raw, present, msgs)
	}
	return s.defaultValue()
}

func (s *BindingSpec) coerceString(raw string, present bool, msgs *Messages) reflect.Value {
	if !present {
		return s.defaultValue()
	}
	length := utf8.RuneCountInString(raw)
	if length < s.MinLength {
		msgs.Add(s.Name, s.Message)
	}
	if s.MaxLength >= 0 && length > s.MaxLength {
		msgs.Add(s.Name, s.Message)
	}
	if s.regex != nil && !s.regex.MatchString(raw) {
		msgs.Add(s.Name, s.Message)
	}
	return reflect.ValueOf(raw).Convert(s.Type)
}

func (s *BindingSpec) coerceInteger(raw string, present bool, msgs *Messages) reflect.Value {
	if !present {
		return s.defaultValue()
	}
	n, err := strconv.ParseInt(raw, 10, s.Kind.bitSize())
	if err != nil {
		return s.defaultValue()
	}
	if n < s.minInt || n > s.maxInt {
		msgs.Add(s.Name, s.Message)
	}
	return reflect.ValueOf(n).Convert(s.Type)
}

func (s *BindingSpec) coerceFloat(raw string, present bool, msgs *Messages) reflect.Value {
	if !present {
		return s.defaultValue()
	}
	f, err := strconv.ParseFloat(raw, s.Kind.bitSize())
	if err != nil {
		return s.defaultValue()
	}
	// NaN is never within bounds
	if !(f >= s.minFloat && f <= s.maxFloat) {
		msgs.Add(s.Name, s.Message)
	}
	return reflect.ValueOf(f).Convert(s.Type)
}

// coerceAll fills a string array from every value sent for the name
func (s *BindingSpec) coerceAll(values []string) reflect.Value {
	if len(values) == 0 {
		return s.defaultValue()
	}
	out := reflect.MakeSlice(s.Type, len(values), len(values))
	for i, v := range values {
		out.Index(i).SetString(v)
	}
	return out
}
