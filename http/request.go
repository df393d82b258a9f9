package http

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrMalformedRequestLine = errors.New("http: malformed request line")
	ErrTruncatedBody        = errors.New("http: truncated body")
	ErrBodyTooLarge         = errors.New("http: body exceeds limit")
)

// Request is one parsed request. It is built by ReadRequest and not modified afterwards.
type Request struct {
	Method  string
	Path    string
	Proto   string
	Headers map[string]string
	Body    []byte
}

// ReadRequest reads one request off br. Bodies are framed by Content-Length only.
// A clean end of stream before the request line is reported as a bare io.EOF.
// A maxBody of zero disables the body size limit.
func ReadRequest(br *bufio.Reader, maxBody int) (*Request, error) {
	requestLine, err := br.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			if requestLine == "" {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("http: reading request line: %w", io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("http: reading request line: %w", err)
	}

	parts := strings.Fields(requestLine)
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRequestLine, strings.TrimRight(requestLine, crlf))
	}

	req := &Request{
		Method:  parts[0],
		Path:    parts[1],
		Headers: make(map[string]string),
	}
	if len(parts) > 2 {
		req.Proto = parts[2]
	}

	if err := req.readHeaders(br); err != nil {
		return nil, err
	}

	length := req.ContentLength()
	if length == 0 {
		return req, nil
	}
	if maxBody > 0 && length > maxBody {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrBodyTooLarge, length, maxBody)
	}

	body, err := readBody(br, length)
	if err != nil {
		return nil, err
	}
	req.Body = body

	return req, nil
}

// readBody reads exactly length bytes. Lengths up to MaxRequestSize are
// allocated up front; longer bodies grow with the bytes actually received,
// so a declared length alone cannot exhaust memory.
func readBody(br *bufio.Reader, length int) ([]byte, error) {
	if length <= MaxRequestSize {
		body := make([]byte, length)
		if n, err := io.ReadFull(br, body); err != nil {
			return nil, fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedBody, n, length)
		}
		return body, nil
	}

	var body bytes.Buffer
	body.Grow(MaxRequestSize)
	if n, err := io.CopyN(&body, br, int64(length)); err != nil {
		return nil, fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedBody, n, length)
	}
	return body.Bytes(), nil
}

func (req *Request) readHeaders(br *bufio.Reader) error {
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("http: reading headers: %w", err)
		}

		line = strings.TrimRight(line, crlf)
		if line == "" {
			return nil // end of headers
		}

		name, value, found := strings.Cut(line, ":")
		if !found {
			// Malformed header line: stop here and keep what was collected.
			return nil
		}
		req.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
}

// Header returns the value of the named header. Names are matched exactly.
func (req *Request) Header(name string) (string, bool) {
	value, found := req.Headers[name]
	return value, found
}

// ContentLength is the declared body length, zero when absent or not a number.
func (req *Request) ContentLength() int {
	value, found := req.Headers[HeaderContentLength]
	if !found {
		return 0
	}
	n, err := atoi(value)
	if err != nil {
		return 0
	}
	return n
}

// WantsClose reports whether the client asked for this to be the last exchange.
func (req *Request) WantsClose() bool {
	return req.Headers[HeaderConnection] == "close"
}

// AcceptsGzip is a substring test on Accept-Encoding; quality values are ignored.
func (req *Request) AcceptsGzip() bool {
	return strings.Contains(req.Headers[HeaderAcceptEncoding], "gzip")
}
