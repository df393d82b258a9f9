package http

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"
)

func writeResponse(t testing.TB, res *Response) string {
	t.Helper()

	buf := &bytes.Buffer{}
	bw := bufio.NewWriter(buf)

	if err := res.Write(bw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return buf.String()
}

func TestResponseWrite_NoBody(t *testing.T) {
	var res Response
	res.Reset()

	got := writeResponse(t, &res)
	if got != "HTTP/1.1 200 OK\r\n\r\n" {
		t.Errorf("unexpected response: %q", got)
	}
}

func TestResponseWrite_Text(t *testing.T) {
	var res Response
	res.Reset()
	res.WithText("abc")

	got := writeResponse(t, &res)
	want := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 3\r\n\r\nabc"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResponseWrite_EmptyBody(t *testing.T) {
	var res Response
	res.Reset()
	res.WithText("")

	got := writeResponse(t, &res)
	want := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 0\r\n\r\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResponseWrite_ExtraHeadersFirst(t *testing.T) {
	var res Response
	res.Reset()
	res.WithBytes(ContentTypeOctetStream, []byte("hello"))
	res.AddHeader(HeaderConnection, "close")

	got := writeResponse(t, &res)
	want := "HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Type: application/octet-stream\r\nContent-Length: 5\r\n\r\nhello"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResponseWrite_ContentTypeOverride(t *testing.T) {
	var res Response
	res.Reset()
	res.WithText("x")
	res.AddHeader(HeaderContentType, "text/html")

	got := writeResponse(t, &res)
	if strings.Count(got, "Content-Type:") != 1 {
		t.Errorf("expected exactly one content type header: %q", got)
	}
	if !strings.Contains(got, "Content-Type: text/html\r\n") {
		t.Errorf("missing override: %q", got)
	}
}

func TestResponseWrite_Status(t *testing.T) {
	testCases := []struct {
		status uint16
		line   string
	}{
		{StatusOK, "HTTP/1.1 200 OK\r\n"},
		{StatusCreated, "HTTP/1.1 201 Created\r\n"},
		{StatusNotFound, "HTTP/1.1 404 Not Found\r\n"},
		{StatusInternalServerError, "HTTP/1.1 500 Internal Server Error\r\n"},
		{599, "HTTP/1.1 599 Unknown Status Code\r\n"},
	}

	for _, tc := range testCases {
		res := Response{Status: tc.status}
		got := writeResponse(t, &res)
		if got != tc.line+"\r\n" {
			t.Errorf("status %d: got %q", tc.status, got)
		}
	}
}

func TestResponseReset(t *testing.T) {
	var res Response
	res.WithStatus(StatusNotFound).WithText("gone").AddHeader("X-Test", "1")
	res.Reset()

	if res.Status != StatusOK || res.HasBody() || len(res.Headers) != 0 || res.Body != nil {
		t.Errorf("reset left state behind: %+v", res)
	}
}

func TestResponseGzip(t *testing.T) {
	for _, text := range []string{"", "abc", strings.Repeat("banana", 1000)} {
		var res Response
		res.Reset()
		res.WithText(text)

		if err := res.Gzip(); err != nil {
			t.Fatal(err)
		}

		got := writeResponse(t, &res)
		head, body, found := strings.Cut(got, "\r\n\r\n")
		if !found {
			t.Fatalf("no header terminator in %q", got)
		}
		if !strings.Contains(head, "Content-Encoding: gzip\r\n") {
			t.Errorf("missing Content-Encoding: %q", head)
		}
		if !strings.Contains(head, "Content-Length: "+itoa(len(body))+"\r\n") {
			t.Errorf("Content-Length does not match compressed size %d: %q", len(body), head)
		}

		zr, err := gzip.NewReader(strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		plain, err := io.ReadAll(zr)
		if err != nil {
			t.Fatal(err)
		}
		if string(plain) != text {
			t.Errorf("round trip mismatch: got %d bytes, want %d", len(plain), len(text))
		}
	}
}

func TestResponseGzipWithoutBody(t *testing.T) {
	var res Response
	res.Reset()

	if err := res.Gzip(); err != nil {
		t.Fatal(err)
	}
	if len(res.Headers) != 0 {
		t.Errorf("no body means no Content-Encoding, got %v", res.Headers)
	}
}

func itoa(n int) string {
	var buf [20]byte
	return string(buf[:writeIntToBuffer(n, buf[:])])
}

func BenchmarkResponseWrite(b *testing.B) {
	var res Response
	res.Reset()
	res.AddHeader("X-Bench", "1")
	res.WithText("benchmarking response write")

	buf := &bytes.Buffer{}
	bw := bufio.NewWriter(buf)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		bw.Reset(buf)
		if err := res.Write(bw); err != nil {
			b.Fatal(err)
		}
	}
}
