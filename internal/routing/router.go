package routing

import (
	"context"
	"fmt"
	"net/http"

	"github.com/AlexKimmel/askgate/internal/config"
)

// Route is one mounted ask endpoint: a path with its own persona and origin.
type Route struct {
	ID            string
	Path          string
	AllowedOrigin string
	SystemPrompt  string
}

type Router struct {
	routes []*Route
	byPath map[string]*Route
}

func New() *Router {
	return &Router{byPath: map[string]*Route{}}
}

// FromConfig builds a Router from the configured routes.
func FromConfig(routes []config.Route) (*Router, error) {
	rr := New()
	for _, c := range routes {
		if err := rr.Add(&Route{
			ID:            c.ID,
			Path:          c.Path,
			AllowedOrigin: c.AllowedOrigin,
			SystemPrompt:  c.SystemPrompt,
		}); err != nil {
			return nil, err
		}
	}
	return rr, nil
}

func (r *Router) Add(rt *Route) error {
	if other, ok := r.byPath[rt.Path]; ok {
		return fmt.Errorf("route %q: path %s already taken by %q", rt.ID, rt.Path, other.ID)
	}
	r.byPath[rt.Path] = rt
	r.routes = append(r.routes, rt)
	return nil
}

func (r *Router) Routes() []*Route {
	return r.routes
}

func (r *Router) Match(path string) (*Route, bool) {
	rt, ok := r.byPath[path]
	return rt, ok
}

// --- context helpers ---
type ctxKey int

const keyRoute ctxKey = 0

func WithRoute(r *http.Request, rt *Route) *http.Request {
	ctx := context.WithValue(r.Context(), keyRoute, rt)
	return r.WithContext(ctx)
}

func RouteFrom(r *http.Request) (*Route, bool) {
	v := r.Context().Value(keyRoute)
	if v == nil {
		return nil, false
	}
	rt, ok := v.(*Route)
	return rt, ok && rt != nil
}

// Tag stores rt in the request context for downstream middleware.
func Tag(rt *Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, WithRoute(r, rt))
		})
	}
}
