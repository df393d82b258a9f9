package http

const (
	MaxRequestSize         = 2 * 1024 * 1024 // 2MB
	DefaultReadBufferSize  = 4096            // 4kB
	DefaultWriteBufferSize = 4096            // 4kB
)

const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

const (
	HeaderAcceptEncoding  = "Accept-Encoding"
	HeaderConnection      = "Connection"
	HeaderContentEncoding = "Content-Encoding"
	HeaderContentLength   = "Content-Length"
	HeaderContentType     = "Content-Type"
	HeaderHost            = "Host"
	HeaderUserAgent       = "User-Agent"
)

const (
	ContentTypeText        = "text/plain"
	ContentTypeOctetStream = "application/octet-stream"
)

const crlf = "\r\n"

var protocolHttp11 = "HTTP/1.1"

// Handler serves one request. It reads ctx.Request and fills ctx.Response.
type Handler func(ctx *RequestCtx)
