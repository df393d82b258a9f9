package http

import (
	"context"
	"log/slog"
)

// RequestCtx carries one request through the router and its middleware.
type RequestCtx struct {
	ConnID   string
	Logger   *slog.Logger
	Request  *Request
	Response Response

	ctx      context.Context
	route    string
	pathTail string
}

func (reqCtx *RequestCtx) Reset(ctx context.Context, req *Request) {
	reqCtx.ctx = ctx
	reqCtx.Request = req
	reqCtx.Response.Reset()
	reqCtx.route = ""
	reqCtx.pathTail = ""
}

func (reqCtx *RequestCtx) Context() context.Context {
	if reqCtx.ctx == nil {
		return context.Background()
	}
	return reqCtx.ctx
}

func (reqCtx *RequestCtx) SetContext(ctx context.Context) {
	reqCtx.ctx = ctx
}

// Route is the pattern of the matched route, empty when nothing matched.
func (reqCtx *RequestCtx) Route() string {
	return reqCtx.route
}

// PathTail is the part of the path after a matched prefix route.
func (reqCtx *RequestCtx) PathTail() string {
	return reqCtx.pathTail
}

// Log returns the connection logger, or the default logger outside a connection.
func (reqCtx *RequestCtx) Log() *slog.Logger {
	if reqCtx.Logger == nil {
		return slog.Default()
	}
	return reqCtx.Logger
}
