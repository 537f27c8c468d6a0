// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rest

const (
	StatusContinue           = 100 // RFC 7231, 6.2.1
	StatusSwitchingProtocols = 101 // RFC 7231, 6.2.2

	StatusOK             = 200 // RFC 7231, 6.3.1
	StatusCreated        = 201 // RFC 7231, 6.3.2
	StatusAccepted       = 202 // RFC 7231, 6.3.3
	StatusNoContent      = 204 // RFC 7231, 6.3.5
	StatusResetContent   = 205 // RFC 7231, 6.3.6
	StatusPartialContent = 206 // RFC 7233, 4.1

	StatusMovedPermanently  = 301 // RFC 7231, 6.4.2
	StatusFound             = 302 // RFC 7231, 6.4.3
	StatusSeeOther          = 303 // RFC 7231, 6.4.4
	StatusNotModified       = 304 // RFC 7232, 4.1
	StatusTemporaryRedirect = 307 // RFC 7231, 6.4.7
	StatusPermanentRedirect = 308 // RFC 7538, 3

	StatusBadRequest                  = 400 // RFC 7231, 6.5.1
	StatusUnauthorized                = 401 // RFC 7235, 3.1
	StatusForbidden                   = 403 // RFC 7231, 6.5.3
	StatusNotFound                    = 404 // RFC 7231, 6.5.4
	StatusMethodNotAllowed            = 405 // RFC 7231, 6.5.5
	StatusNotAcceptable               = 406 // RFC 7231, 6.5.6
	StatusRequestTimeout              = 408 // RFC 7231, 6.5.7
	StatusConflict                    = 409 // RFC 7231, 6.5.8
	StatusGone                        = 410 // RFC 7231, 6.5.9
	StatusLengthRequired              = 411 // RFC 7231, 6.5.10
	StatusPreconditionFailed          = 412 // RFC 7232, 4.2
	StatusRequestEntityTooLarge       = 413 // RFC 7231, 6.5.11
	StatusRequestURITooLong           = 414 // RFC 7231, 6.5.12
	StatusUnsupportedMediaType        = 415 // RFC 7231, 6.5.13
	StatusTeapot                      = 418 // RFC 7168, 2.3.3
	StatusUnprocessableEntity         = 422 // RFC 4918, 11.2
	StatusTooManyRequests             = 429 // RFC 6585, 4
	StatusRequestHeaderFieldsTooLarge = 431 // RFC 6585, 5

	StatusInternalServerError     = 500 // RFC 7231, 6.6.1
	StatusNotImplemented          = 501 // RFC 7231, 6.6.2
	StatusBadGateway              = 502 // RFC 7231, 6.6.3
	StatusServiceUnavailable      = 503 // RFC 7231, 6.6.4
	StatusGatewayTimeout          = 504 // RFC 7231, 6.6.5
	StatusHTTPVersionNotSupported = 505 // RFC 7231, 6.6.6
)

var statusText = map[int]string{
	StatusContinue:           "Continue",
	StatusSwitchingProtocols: "Switching Protocols",

	StatusOK:             "OK",
	StatusCreated:        "Created",
	StatusAccepted:       "Accepted",
	StatusNoContent:      "No Content",
	StatusResetContent:   "Reset Content",
	StatusPartialContent: "Partial Content",

	StatusMovedPermanently:  "Moved Permanently",
	StatusFound:             "Found",
	StatusSeeOther:          "See Other",
	StatusNotModified:       "Not Modified",
	StatusTemporaryRedirect: "Temporary Redirect",
	StatusPermanentRedirect: "Permanent Redirect",

	StatusBadRequest:                  "Bad Request",
	StatusUnauthorized:                "Unauthorized",
	StatusForbidden:                   "Forbidden",
	StatusNotFound:                    "Not Found",
	StatusMethodNotAllowed:            "Method Not Allowed",
	StatusNotAcceptable:               "Not Acceptable",
	StatusRequestTimeout:              "Request Timeout",
	StatusConflict:                    "Conflict",
	StatusGone:                        "Gone",
	StatusLengthRequired:              "Length Required",
	StatusPreconditionFailed:          "Precondition Failed",
	StatusRequestEntityTooLarge:       "Request Entity Too Large",
	StatusRequestURITooLong:           "Request URI Too Long",
	StatusUnsupportedMediaType:        "Unsupported Media Type",
	StatusTeapot:                      "I'm a teapot",
	StatusUnprocessableEntity:         "Unprocessable Entity",
	StatusTooManyRequests:             "Too Many Requests",
	StatusRequestHeaderFieldsTooLarge: "Request Header Fields Too Large",

	StatusInternalServerError:     "Internal Server Error",
	StatusNotImplemented:          "Not Implemented",
	StatusBadGateway:              "Bad Gateway",
	StatusServiceUnavailable:      "Service Unavailable",
	StatusGatewayTimeout:          "Gateway Timeout",
	StatusHTTPVersionNotSupported: "HTTP Version Not Supported",
}

// StatusText returns the reason phrase for a status code, or an empty
// string for unknown codes.
func StatusText(code int) string {
	return statusText[code]
}
