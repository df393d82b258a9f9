package routes

import (
	"errors"

	"github.com/freekieb7/httpd/filesystem"
	"github.com/freekieb7/httpd/http"
)

type fileHandlers struct {
	store filesystem.Filesystem
}

func (h *fileHandlers) get(ctx *http.RequestCtx) {
	name := ctx.PathTail()

	content, err := h.store.ReadFile(name)
	if err != nil {
		if errors.Is(err, filesystem.ErrFileNotFound) || errors.Is(err, filesystem.ErrInvalidPath) {
			ctx.Response.WithStatus(http.StatusNotFound)
			return
		}

		ctx.Log().Error("reading file failed", "file", name, "error", err)
		ctx.Response.WithStatus(http.StatusInternalServerError)
		return
	}

	ctx.Response.WithBytes(http.ContentTypeOctetStream, content)
}

func (h *fileHandlers) post(ctx *http.RequestCtx) {
	name := ctx.PathTail()

	if err := h.store.WriteFile(name, ctx.Request.Body); err != nil {
		if errors.Is(err, filesystem.ErrInvalidPath) {
			ctx.Response.WithStatus(http.StatusNotFound)
			return
		}

		ctx.Log().Error("writing file failed", "file", name, "error", err)
		ctx.Response.WithStatus(http.StatusInternalServerError)
		return
	}

	ctx.Log().Debug("file stored", "file", name, "bytes", len(ctx.Request.Body))
	ctx.Response.WithStatus(http.StatusCreated)
}
