package cinnamon

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Params represents the merged query and form parameters of a request with
// convenient typed access methods
type Params struct {
	values url.Values
}

// NewParams wraps a parameter multi-map. A nil map behaves as empty.
func NewParams(values map[string][]string) Params {
	if values == nil {
		values = url.Values{}
	}
	return Params{values: url.Values(values)}
}

// Lookup returns the first value for key and whether the key was sent
func (p Params) Lookup(key string) (string, bool) {
	vs, ok := p.values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Get returns the first value for the given key, or empty string if not found
func (p Params) Get(key string) string {
	return p.values.Get(key)
}

// GetDefault returns the first value for the given key, or the default value if not found
func (p Params) GetDefault(key, defaultValue string) string {
	if value, ok := p.Lookup(key); ok {
		return value
	}
	return defaultValue
}

// GetInt returns the first value for the given key as an integer, or 0 if not found/invalid
func (p Params) GetInt(key string) int {
	return p.GetIntDefault(key, 0)
}

// GetIntDefault returns the first value for the given key as an integer, or the default if not found/invalid
func (p Params) GetIntDefault(key string, defaultValue int) int {
	if value, ok := p.Lookup(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// GetInt64Default returns the value as an int64, or the default if not found/invalid
func (p Params) GetInt64Default(key string, defaultValue int64) int64 {
	if value, ok := p.Lookup(key); ok {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// GetInt16Default returns the value as an int16, or the default if not found/invalid
func (p Params) GetInt16Default(key string, defaultValue int16) int16 {
	if value, ok := p.Lookup(key); ok {
		if i, err := strconv.ParseInt(value, 10, 16); err == nil {
			return int16(i)
		}
	}
	return defaultValue
}

// GetFloat32Default returns the value as a float32, or the default if not found/invalid
func (p Params) GetFloat32Default(key string, defaultValue float32) float32 {
	if value, ok := p.Lookup(key); ok {
		if f, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(f)
		}
	}
	return defaultValue
}

// GetFloat64Default returns the value as a float64, or the default if not found/invalid
func (p Params) GetFloat64Default(key string, defaultValue float64) float64 {
	if value, ok := p.Lookup(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// GetBool returns the first value for the given key as a boolean.
// Accepts "true" and "yes" (case insensitive) as true.
func (p Params) GetBool(key string) bool {
	return p.GetBoolDefault(key, false)
}

// GetBoolDefault is GetBool with a default for an absent key
func (p Params) GetBoolDefault(key string, defaultValue bool) bool {
	value, ok := p.Lookup(key)
	if !ok {
		return defaultValue
	}
	return strings.EqualFold(value, "true") || strings.EqualFold(value, "yes")
}

// GetTime parses the first value with layout. ok is false when the key is
// absent or the value does not match.
func (p Params) GetTime(key, layout string) (t time.Time, ok bool) {
	value, found := p.Lookup(key)
	if !found {
		return time.Time{}, false
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// GetAll returns all values for the given key
func (p Params) GetAll(key string) []string {
	return p.values[key]
}

// Has returns true if the key exists in the parameters
func (p Params) Has(key string) bool {
	_, exists := p.values[key]
	return exists
}

// Keys returns all parameter keys, sorted
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for key := range p.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ToMap returns the underlying values as a map[string][]string
func (p Params) ToMap() map[string][]string {
	return map[string][]string(p.values)
}
