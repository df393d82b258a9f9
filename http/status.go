// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package http

const (
	StatusOK      uint16 = 200 // RFC 7231, 6.3.1
	StatusCreated uint16 = 201 // RFC 7231, 6.3.2

	StatusBadRequest            uint16 = 400 // RFC 7231, 6.5.1
	StatusNotFound              uint16 = 404 // RFC 7231, 6.5.4
	StatusRequestEntityTooLarge uint16 = 413 // RFC 7231, 6.5.11

	StatusInternalServerError uint16 = 500 // RFC 7231, 6.6.1
	StatusServiceUnavailable  uint16 = 503 // RFC 7231, 6.6.4
)

var (
	unknownStatusCode = "Unknown Status Code"

	statusMessages = map[uint16]string{
		StatusOK:      "OK",
		StatusCreated: "Created",

		StatusBadRequest:            "Bad Request",
		StatusNotFound:              "Not Found",
		StatusRequestEntityTooLarge: "Request Entity Too Large",

		StatusInternalServerError: "Internal Server Error",
		StatusServiceUnavailable:  "Service Unavailable",
	}
)

// StatusText returns the reason phrase for the status code.
func StatusText(code uint16) string {
	if msg, ok := statusMessages[code]; ok {
		return msg
	}
	return unknownStatusCode
}
