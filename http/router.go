package http

// Router holds routes in registration order. The first route whose path and
// method both match serves the request.
type Router struct {
	Routes     []Route
	Middleware []Middleware
}

func NewRouter() *Router {
	return &Router{
		Routes:     make([]Route, 0),
		Middleware: make([]Middleware, 0),
	}
}

func (router *Router) GET(path string, handler Handler, middleware ...Middleware) {
	router.Any([]string{MethodGet}, path, handler, middleware...)
}

func (router *Router) POST(path string, handler Handler, middleware ...Middleware) {
	router.Any([]string{MethodPost}, path, handler, middleware...)
}

// Any registers an exact path. A nil methods slice accepts every method.
func (router *Router) Any(methods []string, path string, handler Handler, middleware ...Middleware) {
	router.Routes = append(router.Routes, Route{
		Methods:    methods,
		Path:       path,
		Handler:    handler,
		Middleware: middleware,
	})
}

// Prefix registers a route matching every path that starts with prefix.
// The rest of the path is available through RequestCtx.PathTail.
func (router *Router) Prefix(methods []string, prefix string, handler Handler, middleware ...Middleware) {
	router.Routes = append(router.Routes, Route{
		Methods:    methods,
		Path:       prefix,
		Prefix:     true,
		Handler:    handler,
		Middleware: middleware,
	})
}

// Use adds middleware that wraps every route and the not found handler.
func (router *Router) Use(middleware ...Middleware) {
	router.Middleware = append(router.Middleware, middleware...)
}

// Handler compiles the routing table. Routes added afterwards are not seen.
func (router *Router) Handler() Handler {
	routes := make([]Route, len(router.Routes))
	for i, route := range router.Routes {
		route.Handler = chain(chain(route.Handler, route.Middleware), router.Middleware)
		routes[i] = route
	}
	notFound := chain(NotFoundHandler, router.Middleware)

	return func(ctx *RequestCtx) {
		for i := range routes {
			route := &routes[i]

			tail, ok := route.match(ctx.Request.Path)
			if !ok || !route.allows(ctx.Request.Method) {
				continue
			}

			ctx.route = route.Path
			ctx.pathTail = tail
			route.Handler(ctx)
			return
		}

		notFound(ctx)
	}
}
