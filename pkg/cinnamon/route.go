package cinnamon

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMethodName is used when a URL carries no method segment.
const DefaultMethodName = "index"

// RouteTarget is the {class, method, positional parameters} triple derived
// from a request path. It is immutable once built by Analyze.
type RouteTarget struct {
	className  string
	methodName string
	params     []string
}

// ClassName returns the handler class token
func (t RouteTarget) ClassName() string {
	return t.className
}

// MethodName returns the action token, DefaultMethodName when absent
func (t RouteTarget) MethodName() string {
	return t.methodName
}

// Params returns a copy of the positional parameters in URL order
func (t RouteTarget) Params() []string {
	return append([]string(nil), t.params...)
}

// String returns "Class.method"
func (t RouteTarget) String() string {
	return t.className + "." + t.methodName
}

// Analyze splits a path (already stripped of any mount prefix) into a
// RouteTarget. Segment 1 is the class token, segment 2 the method token and
// every further non-empty segment a positional parameter.
//
//	/hello-world/say-hi/42  ->  HelloWorld.sayHi [42]   (useSlugs)
//	/Users                  ->  Users.index []
func Analyze(path string, useSlugs bool) (RouteTarget, error) {
	segments := splitPath(path)
	if len(segments) < 2 {
		return RouteTarget{}, NotFound("class name was not found in URL", nil)
	}

	target := RouteTarget{methodName: DefaultMethodName}
	for i := 1; i < len(segments); i++ {
		segment := segments[i]
		switch i {
		case 1:
			if useSlugs {
				segment = ClassNameFromSlug(segment)
			}
			target.className = segment
		case 2:
			if useSlugs {
				segment = MethodNameFromSlug(segment)
			}
			if segment != "" {
				target.methodName = segment
			}
		default:
			if segment != "" {
				target.params = append(target.params, segment)
			}
		}
	}

	if target.className == "" {
		return RouteTarget{}, NotFound("class name was not found in URL", nil)
	}
	return target, nil
}

// splitPath splits on "/" and drops trailing empty segments, so "/a/" and
// "/a" both yield ["", "a"].
func splitPath(path string) []string {
	segments := strings.Split(path, "/")
	end := len(segments)
	for end > 0 && segments[end-1] == "" {
		end--
	}
	return segments[:end]
}

// ClassNameFromSlug converts "hello-world" into "HelloWorld".
func ClassNameFromSlug(slug string) string {
	var sb strings.Builder
	for _, part := range strings.Split(slug, "-") {
		sb.WriteString(upperFirst(part))
	}
	return sb.String()
}

// MethodNameFromSlug converts "hello-world" into "helloWorld". The first part
// is kept verbatim.
func MethodNameFromSlug(slug string) string {
	var sb strings.Builder
	for i, part := range strings.Split(slug, "-") {
		if i == 0 {
			sb.WriteString(part)
			continue
		}
		sb.WriteString(upperFirst(part))
	}
	return sb.String()
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
