// Package routes registers the server's endpoints:
//
//	/              200, no body
//	/echo/<text>   200, <text> as text/plain, gzip when the client accepts it
//	/user-agent    200, the User-Agent header as text/plain
//	/files/<name>  GET reads and POST writes <name> in the file store
package routes

import (
	"github.com/freekieb7/httpd/filesystem"
	"github.com/freekieb7/httpd/http"
)

const (
	echoPrefix  = "/echo/"
	filesPrefix = "/files/"
)

func Register(router *http.Router, store filesystem.Filesystem) {
	files := &fileHandlers{store: store}

	router.Any(nil, "/", root)
	router.Prefix(nil, echoPrefix, echo)
	router.Any(nil, "/user-agent", userAgent)
	router.Prefix([]string{http.MethodGet}, filesPrefix, files.get)
	router.Prefix([]string{http.MethodPost}, filesPrefix, files.post)
}

func root(ctx *http.RequestCtx) {
	ctx.Response.WithStatus(http.StatusOK)
}

func echo(ctx *http.RequestCtx) {
	ctx.Response.WithText(ctx.PathTail())

	if !ctx.Request.AcceptsGzip() {
		return
	}

	if err := ctx.Response.Gzip(); err != nil {
		ctx.Log().Error("compressing echo body failed", "error", err)
		ctx.Response.Reset()
		ctx.Response.WithStatus(http.StatusInternalServerError)
	}
}

func userAgent(ctx *http.RequestCtx) {
	value, found := ctx.Request.Header(http.HeaderUserAgent)
	if !found {
		ctx.Response.WithStatus(http.StatusOK)
		return
	}

	ctx.Response.WithText(value)
}
