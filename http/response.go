package http

import (
	"bufio"
	"strings"
)

// Response is built by a handler and written once by the connection loop.
//
// Headers holds extra header lines in wire form, each terminated by CRLF.
// Content-Type and Content-Length are emitted only when the response has a body.
type Response struct {
	Status      uint16
	Headers     []string
	Body        []byte
	ContentType string

	hasBody bool
}

func (res *Response) Reset() {
	res.Status = StatusOK
	res.Headers = res.Headers[:0]
	res.Body = nil
	res.ContentType = ""
	res.hasBody = false
}

func (res *Response) WithStatus(status uint16) *Response {
	res.Status = status
	return res
}

// WithText sets a text/plain body. An empty string still counts as a body.
func (res *Response) WithText(text string) *Response {
	return res.WithBytes(ContentTypeText, []byte(text))
}

func (res *Response) WithBytes(contentType string, body []byte) *Response {
	res.ContentType = contentType
	res.Body = body
	res.hasBody = true
	return res
}

// AddHeader appends a header line. Lines are written in the order they were added.
func (res *Response) AddHeader(name, value string) *Response {
	res.Headers = append(res.Headers, name+": "+value+crlf)
	return res
}

func (res *Response) HasBody() bool {
	return res.hasBody
}

func (res *Response) hasHeader(name string) bool {
	prefix := name + ":"
	for _, line := range res.Headers {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// Write serializes the response onto bw and flushes it.
// The body is not followed by a CRLF; Content-Length frames it.
func (res *Response) Write(bw *bufio.Writer) error {
	status := res.Status
	if status == 0 {
		status = StatusOK
	}

	var num [20]byte

	bw.WriteString(protocolHttp11)
	bw.WriteByte(' ')
	bw.Write(num[:writeIntToBuffer(int(status), num[:])])
	bw.WriteByte(' ')
	bw.WriteString(StatusText(status))
	bw.WriteString(crlf)

	for _, line := range res.Headers {
		bw.WriteString(line)
	}

	if res.hasBody {
		if !res.hasHeader(HeaderContentType) {
			contentType := res.ContentType
			if contentType == "" {
				contentType = ContentTypeText
			}
			bw.WriteString(HeaderContentType + ": ")
			bw.WriteString(contentType)
			bw.WriteString(crlf)
		}

		bw.WriteString(HeaderContentLength + ": ")
		bw.Write(num[:writeIntToBuffer(len(res.Body), num[:])])
		bw.WriteString(crlf)
	}

	bw.WriteString(crlf)

	if res.hasBody {
		bw.Write(res.Body)
	}

	// bufio.Writer keeps the first write error and returns it from Flush.
	return bw.Flush()
}
