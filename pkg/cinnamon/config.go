package cinnamon

import (
	"strings"
	"time"
)

// Config is the process-wide dispatch configuration. It is read once at
// startup and never changed afterwards.
type Config struct {
	// ControllerPackage is prefixed to the class token of every URL to form
	// the fully qualified handler name (e.g. "github.com/acme/shop/controllers")
	ControllerPackage string

	// UseSlugs converts hyphenated URL segments to Go identifiers
	UseSlugs bool

	// MountPrefix is stripped from the request path before analysis
	MountPrefix string

	// ViewsDir is the root directory of view templates (default: "views")
	ViewsDir string

	// SessionCookieName names the session cookie (default: CINNAMONSESSID)
	SessionCookieName string

	// SessionMaxInactive expires sessions idle for longer (default: 30m)
	SessionMaxInactive time.Duration

	// CompressContent enables brotli compression of rendered bodies
	CompressContent bool
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		ViewsDir:           "views",
		SessionCookieName:  DefaultSessionCookieName,
		SessionMaxInactive: DefaultSessionMaxInactive,
	}
}

// Qualify returns the fully qualified handler name for a class token
func (c Config) Qualify(className string) string {
	if c.ControllerPackage == "" {
		return className
	}
	return c.ControllerPackage + "." + className
}

// RelativePath strips MountPrefix from path on a segment boundary and
// returns a path starting with "/"
func (c Config) RelativePath(path string) string {
	prefix := strings.TrimRight(c.MountPrefix, "/")
	if prefix != "" && strings.HasPrefix(path, prefix) &&
		(len(path) == len(prefix) || path[len(prefix)] == '/') {
		path = path[len(prefix):]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
