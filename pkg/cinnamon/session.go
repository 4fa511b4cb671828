package cinnamon

import (
	"context"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultSessionCookieName names the cookie carrying the session id
const DefaultSessionCookieName = "CINNAMONSESSID"

// DefaultSessionMaxInactive is the idle time after which a stored session expires
const DefaultSessionMaxInactive = 30 * time.Minute

// SessionStore persists serialized sessions. Implementations must be safe
// for concurrent use.
type SessionStore interface {
	// Load returns (nil, nil) when the session does not exist or has expired.
	Load(ctx context.Context, id string) ([]byte, error)

	// Save overwrites any data stored under id.
	Save(ctx context.Context, id string, data []byte, expiresAt time.Time) error

	// Delete does not fail for an unknown id.
	Delete(ctx context.Context, id string) error

	Close() error
}

// Session is the request-scoped snapshot of a client session. Values
// written by a handler are synchronized back to the store once the action
// returns.
type Session struct {
	id             string
	priorID        string
	createdAt      time.Time
	lastAccessedAt time.Time
	maxInactive    time.Duration
	active         bool
	invalid        bool
	values         map[string]any
}

// NewSession returns an empty, inactive session
func NewSession() *Session {
	return &Session{values: make(map[string]any)}
}

func (s *Session) ID() string                 { return s.id }
func (s *Session) CreatedAt() time.Time       { return s.createdAt }
func (s *Session) LastAccessedAt() time.Time  { return s.lastAccessedAt }
func (s *Session) MaxInactive() time.Duration { return s.maxInactive }
func (s *Session) IsActive() bool             { return s.active }
func (s *Session) IsInvalid() bool            { return s.invalid }
func (s *Session) Len() int                   { return len(s.values) }
func (s *Session) IsEmpty() bool              { return len(s.values) == 0 }
func (s *Session) Get(key string) any         { return s.values[key] }
func (s *Session) Set(key string, value any)  { s.values[key] = value }
func (s *Session) Delete(key string)          { delete(s.values, key) }
func (s *Session) Clear()                     { s.values = make(map[string]any) }

// Lookup returns the value for key and whether it exists
func (s *Session) Lookup(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Keys returns the stored keys, sorted
func (s *Session) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns a copy of the stored values
func (s *Session) Values() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Invalidate drops every value and forgets the id and timestamps. The
// stored session is destroyed when the request completes unless new values
// are set before then.
func (s *Session) Invalidate() {
	s.invalid = true
	s.values = make(map[string]any)
	s.id = ""
	s.createdAt = time.Time{}
	s.lastAccessedAt = time.Time{}
}

type storedSession struct {
	CreatedAt      time.Time                  `json:"created_at"`
	LastAccessedAt time.Time                  `json:"last_accessed_at"`
	Values         map[string]json.RawMessage `json:"values,omitempty"`
}

// encodeSession serializes values with JSON. Numbers come back as float64
// and structs as maps after a round trip.
func encodeSession(s *Session, createdAt, accessedAt time.Time) ([]byte, error) {
	stored := storedSession{
		CreatedAt:      createdAt,
		LastAccessedAt: accessedAt,
		Values:         make(map[string]json.RawMessage, len(s.values)),
	}
	for k, v := range s.values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding session value %q", k)
		}
		stored.Values[k] = raw
	}
	return json.Marshal(stored)
}

func decodeSession(data []byte) (*storedSession, map[string]any, error) {
	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, nil, errors.Wrap(err, "decoding session")
	}
	values := make(map[string]any, len(stored.Values))
	for k, raw := range stored.Values {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, nil, errors.Wrapf(err, "decoding session value %q", k)
		}
		values[k] = v
	}
	return &stored, values, nil
}

// SessionManager mirrors Session snapshots to a SessionStore keyed by a
// cookie.
type SessionManager struct {
	store       SessionStore
	cookieName  string
	maxInactive time.Duration
	secure      bool
	now         func() time.Time
}

// SessionOption configures a SessionManager
type SessionOption func(*SessionManager)

// WithCookieName overrides DefaultSessionCookieName
func WithCookieName(name string) SessionOption {
	return func(m *SessionManager) {
		if name != "" {
			m.cookieName = name
		}
	}
}

// WithMaxInactive overrides DefaultSessionMaxInactive
func WithMaxInactive(d time.Duration) SessionOption {
	return func(m *SessionManager) {
		if d > 0 {
			m.maxInactive = d
		}
	}
}

// WithSecureCookie marks the session cookie Secure
func WithSecureCookie(secure bool) SessionOption {
	return func(m *SessionManager) {
		m.secure = secure
	}
}

// NewSessionManager creates a manager over store
func NewSessionManager(store SessionStore, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		store:       store,
		cookieName:  DefaultSessionCookieName,
		maxInactive: DefaultSessionMaxInactive,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CookieName returns the name of the session cookie
func (m *SessionManager) CookieName() string {
	return m.cookieName
}

// Load returns the session named by the request cookie, or an empty
// inactive session when there is none.
func (m *SessionManager) Load(c RequestContext) (*Session, error) {
	s := NewSession()
	s.maxInactive = m.maxInactive

	cookie, err := c.Request().Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return s, nil
	}

	data, err := m.store.Load(c.Context(), cookie.Value)
	if err != nil {
		return s, errors.Wrap(err, "loading session")
	}
	if data == nil {
		return s, nil
	}

	stored, values, err := decodeSession(data)
	if err != nil {
		return s, err
	}

	s.id = cookie.Value
	s.priorID = cookie.Value
	s.createdAt = stored.CreatedAt
	s.lastAccessedAt = stored.LastAccessedAt
	s.values = values
	s.active = true
	return s, nil
}

// Save synchronizes the snapshot with the store:
//   - empty, no prior session: nothing happens
//   - empty, prior session: the stored values are cleared, and the stored
//     session is destroyed if the snapshot was invalidated
//   - values, prior session: the stored values are replaced
//   - values, no prior session: a new session is created
func (m *SessionManager) Save(c RequestContext, s *Session) error {
	ctx := c.Context()
	now := m.now()

	switch {
	case s.IsEmpty() && s.priorID == "":
		return nil

	case s.IsEmpty():
		if s.invalid {
			if err := m.store.Delete(ctx, s.priorID); err != nil {
				return errors.Wrap(err, "invalidating session")
			}
			m.expireCookie(c)
			return nil
		}
		return m.persist(c, s, s.priorID, s.createdAt, now, false)

	case s.priorID != "":
		createdAt := s.createdAt
		if createdAt.IsZero() {
			createdAt = now
		}
		return m.persist(c, s, s.priorID, createdAt, now, false)

	default:
		return m.persist(c, s, uuid.NewString(), now, now, true)
	}
}

func (m *SessionManager) persist(c RequestContext, s *Session, id string, createdAt, now time.Time, created bool) error {
	data, err := encodeSession(s, createdAt, now)
	if err != nil {
		return err
	}
	if err := m.store.Save(c.Context(), id, data, now.Add(m.maxInactive)); err != nil {
		return errors.Wrap(err, "saving session")
	}

	s.id = id
	s.createdAt = createdAt
	s.lastAccessedAt = now
	if created {
		c.Response().SetCookie(Cookie{
			Name:     m.cookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: SameSiteLaxMode,
		})
	}
	return nil
}

func (m *SessionManager) expireCookie(c RequestContext) {
	c.Response().SetCookie(Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
	})
}
