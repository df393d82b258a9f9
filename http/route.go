package http

import (
	"slices"
	"strings"
)

type Route struct {
	Methods    []string
	Path       string
	Prefix     bool
	Handler    Handler
	Middleware []Middleware
}

var NotFoundHandler Handler = func(ctx *RequestCtx) {
	ctx.Response.WithStatus(StatusNotFound)
}

// match returns the remainder of path after the route pattern.
func (route *Route) match(path string) (string, bool) {
	if route.Prefix {
		return strings.CutPrefix(path, route.Path)
	}
	return "", path == route.Path
}

// allows reports whether the method is accepted. No methods means any method.
func (route *Route) allows(method string) bool {
	return len(route.Methods) == 0 || slices.Contains(route.Methods, method)
}
