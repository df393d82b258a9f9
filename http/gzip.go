package http

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
)

var gzipWriterPool = sync.Pool{
	New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
		return w
	},
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	gw := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(gw)

	gw.Reset(&buf)
	if _, err := gw.Write(data); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Gzip compresses the body and marks it with Content-Encoding: gzip.
// Content-Length follows the compressed size. Responses without a body are left alone.
func (res *Response) Gzip() error {
	if !res.hasBody {
		return nil
	}

	compressed, err := gzipBytes(res.Body)
	if err != nil {
		return err
	}

	res.Body = compressed
	res.AddHeader(HeaderContentEncoding, "gzip")
	return nil
}
