package cinnamon

import (
	"strings"

	"golang.org/x/text/message"
)

// Messages is the request-scoped accumulator of advisory validation
// messages. Keys keep the position of their first insertion; a second write
// to the same key replaces the message.
type Messages struct {
	keys    []string
	values  map[string]string
	printer *message.Printer
}

// NewMessages returns an empty accumulator without a catalog
func NewMessages() *Messages {
	return &Messages{values: make(map[string]string)}
}

// NewLocalizedMessages returns an empty accumulator translating through p
func NewLocalizedMessages(p *message.Printer) *Messages {
	m := NewMessages()
	m.printer = p
	return m
}

// Add records msg under key, replacing any earlier message for that key
func (m *Messages) Add(key, msg string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = msg
}

// AddLocalized records the catalog translation of msgKey under key. Without
// a catalog entry the message key itself is recorded.
func (m *Messages) AddLocalized(key, msgKey string) {
	if m.printer == nil {
		m.Add(key, msgKey)
		return
	}
	m.Add(key, m.printer.Sprintf(msgKey))
}

// Get returns the message for key, or "" when none was recorded
func (m *Messages) Get(key string) string {
	return m.values[key]
}

// Has reports whether a message exists for key
func (m *Messages) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Remove deletes the message for key
func (m *Messages) Remove(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Clear drops every message
func (m *Messages) Clear() {
	m.keys = nil
	m.values = make(map[string]string)
}

// Keys returns the keys in insertion order
func (m *Messages) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Values returns the messages in key insertion order
func (m *Messages) Values() []string {
	out := make([]string, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.values[k])
	}
	return out
}

// Map returns a copy of the key to message mapping
func (m *Messages) Map() map[string]string {
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Join wraps every message in openTag/closeTag and concatenates them, e.g.
// Join("<li>", "</li>").
func (m *Messages) Join(openTag, closeTag string) string {
	var sb strings.Builder
	for _, v := range m.Values() {
		sb.WriteString(openTag)
		sb.WriteString(v)
		sb.WriteString(closeTag)
	}
	return sb.String()
}

// Len returns the number of recorded messages
func (m *Messages) Len() int {
	return len(m.keys)
}

// IsEmpty reports whether no message was recorded
func (m *Messages) IsEmpty() bool {
	return len(m.keys) == 0
}
