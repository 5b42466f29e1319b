package routes

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// Registry maps route names to URL patterns and handlers. It supports both
// directions: Reverse builds a concrete path from a name plus parameters, and
// Resolve matches a request path back to the registered handler. The fallback
// chain depends on the second direction to re-dispatch custom-URL hits onto
// the same handler a canonical request would reach.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*Route
	ordered []*Route
}

type Route struct {
	Name    string
	Method  string
	Pattern string
	Handler gin.HandlerFunc

	segments []segment
}

type segment struct {
	literal string
	param   string
}

// Match is the result of resolving a request path.
type Match struct {
	Route  *Route
	Params gin.Params
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Route)}
}

// GET registers a named GET route. Patterns use gin syntax (":param"
// placeholders). Registering a duplicate name is a programming error.
func (r *Registry) GET(name, pattern string, handler gin.HandlerFunc) error {
	return r.register(name, "GET", pattern, handler)
}

// POST registers a named POST route.
func (r *Registry) POST(name, pattern string, handler gin.HandlerFunc) error {
	return r.register(name, "POST", pattern, handler)
}

func (r *Registry) register(name, method, pattern string, handler gin.HandlerFunc) error {
	if name == "" {
		return fmt.Errorf("route name is required")
	}
	if !strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("route %q: pattern must start with /", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("route %q already registered", name)
	}

	route := &Route{
		Name:     name,
		Method:   method,
		Pattern:  pattern,
		Handler:  handler,
		segments: parsePattern(pattern),
	}
	r.byName[name] = route
	r.ordered = append(r.ordered, route)
	return nil
}

func parsePattern(pattern string) []segment {
	parts := splitPath(pattern)
	segments := make([]segment, 0, len(parts))
	for _, part := range parts {
		if strings.HasPrefix(part, ":") {
			segments = append(segments, segment{param: part[1:]})
		} else {
			segments = append(segments, segment{literal: part})
		}
	}
	return segments
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Reverse builds the concrete path for a named route. All pattern parameters
// must be present in params.
func (r *Registry) Reverse(name string, params map[string]string) (string, error) {
	r.mu.RLock()
	route, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown route %q", name)
	}

	if len(route.segments) == 0 {
		return "/", nil
	}

	var b strings.Builder
	for _, seg := range route.segments {
		b.WriteByte('/')
		if seg.param == "" {
			b.WriteString(seg.literal)
			continue
		}
		value, ok := params[seg.param]
		if !ok || value == "" {
			return "", fmt.Errorf("route %q: missing parameter %q", name, seg.param)
		}
		b.WriteString(value)
	}
	return b.String(), nil
}

// Resolve matches a GET request path against the registered routes in
// registration order. The trailing slash is ignored.
func (r *Registry) Resolve(path string) (*Match, bool) {
	parts := splitPath(path)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, route := range r.ordered {
		if route.Method != "GET" {
			continue
		}
		params, ok := matchSegments(route.segments, parts)
		if ok {
			return &Match{Route: route, Params: params}, true
		}
	}
	return nil, false
}

func matchSegments(segments []segment, parts []string) (gin.Params, bool) {
	if len(segments) != len(parts) {
		return nil, false
	}
	var params gin.Params
	for i, seg := range segments {
		if seg.param != "" {
			params = append(params, gin.Param{Key: seg.param, Value: parts[i]})
			continue
		}
		if seg.literal != parts[i] {
			return nil, false
		}
	}
	return params, true
}

// ByName returns the registered route with the given name.
func (r *Registry) ByName(name string) (*Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.byName[name]
	return route, ok
}

// Mount registers every named route on the gin engine, so canonical requests
// and fallback re-dispatch share the exact same handlers.
func (r *Registry) Mount(engine *gin.Engine) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, route := range r.ordered {
		engine.Handle(route.Method, route.Pattern, route.Handler)
	}
}
