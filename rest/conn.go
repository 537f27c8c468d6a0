package rest

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// conn drives one accepted connection end to end: parse, route,
// invoke, write, then either loop for the next keep-alive request or
// close. It runs on its own goroutine for the connection's lifetime.
type conn[C any] struct {
	srv *RestServer[C]
	rwc net.Conn
	br  *bufio.Reader
	bw  *bufio.Writer
	log *slog.Logger
}

func (c *conn[C]) serve() {
	defer c.rwc.Close()
	p := newParser(c.br, c.srv.bufSize)
	w := &responseWriter{bw: c.bw, bufSize: c.srv.bufSize}
	for {
		if c.srv.stopping.Load() {
			return
		}
		keepAlive := c.handleRequest(p, w)
		if !keepAlive {
			return
		}
		p.reset()
	}
}

// handleRequest serves one exchange and reports whether the connection
// survives for another.
func (c *conn[C]) handleRequest(p *parser, w *responseWriter) bool {
	start := time.Now()
	head, err := p.parseHead()
	if err != nil {
		if err == io.EOF {
			// Peer closed an idle connection between requests.
			return false
		}
		return c.respondError(w, p, nil, err, start)
	}
	keepAlive := decideKeepAlive(head.proto, head.headers)

	route, params, found := c.srv.routes.find(head.verb, head.path)
	if !found {
		allow := c.srv.routes.allowed(head.path)
		var perr *protocolError
		if len(allow) == 0 {
			perr = errNotFound(head.path)
		} else {
			perr = errMethodNotAllowed(head.verb, head.path, allow)
		}
		return c.respondError(w, p, head, perr, start)
	}

	req := &Request{
		Method:   head.verb,
		Path:     head.path,
		RawQuery: head.query,
		Proto:    head.proto,
		Headers:  head.headers,
		Params:   params,
		bufSize:  c.srv.bufSize,
	}

	_, span := c.srv.tracer.Start(context.Background(), head.verb.String()+" "+head.path,
		trace.WithSpanKind(trace.SpanKindServer))

	resp, outcome := c.invoke(route, req, head, p)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
	span.End()

	switch outcome {
	case outcomeFault:
		keepAlive = false
	case outcomeAborted:
		// The rest of the body was never delivered; the stream is not
		// positioned at a request boundary.
		keepAlive = false
	case outcomeParseError:
		c.writeResponse(w, resp, false, head, start)
		return false
	}

	return c.writeResponse(w, resp, keepAlive, head, start) && keepAlive
}

type invokeOutcome uint8

const (
	outcomeOK invokeOutcome = iota
	outcomeAborted
	outcomeFault
	outcomeParseError
)

// invoke builds the handler, feeds it the body windows, and collects
// the response. Handler panics are a safety boundary: they map to a
// 500 and the connection closes, the server keeps serving.
func (c *conn[C]) invoke(route Route[C], req *Request, head *requestHead, p *parser) (Response, invokeOutcome) {
	handler, fault := c.buildHandler(route, req)
	if fault {
		return internalError(), outcomeFault
	}

	if head.verb.hasRequestBody() {
		if head.body == bodyNone {
			return FixedString(StatusLengthRequired, nil, "Include length or send chunked\r\n"), outcomeOK
		}
		return c.feedBody(req, handler, p)
	}

	// Bodyless verbs may still declare a body on the wire; drain it so
	// the next request starts at a clean boundary.
	if err := p.drain(); err != nil {
		return errorResponse(err), outcomeParseError
	}
	req.Trailers = p.trailers
	return c.end(handler)
}

func (c *conn[C]) feedBody(req *Request, handler RequestHandler, p *parser) (Response, invokeOutcome) {
	buf := make([]byte, c.srv.bufSize)
	for {
		n, err := p.readWindow(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return errorResponse(err), outcomeParseError
		}
		if n == 0 {
			continue
		}
		abort, fault := c.chunk(handler, buf[:n])
		if fault {
			return internalError(), outcomeFault
		}
		if abort != nil {
			return *abort, outcomeAborted
		}
	}
	req.Trailers = p.trailers
	return c.end(handler)
}

func (c *conn[C]) buildHandler(route Route[C], req *Request) (handler RequestHandler, fault bool) {
	defer c.recoverFault(&fault)
	return route(req, c.srv.context), false
}

func (c *conn[C]) chunk(handler RequestHandler, window []byte) (abort *Response, fault bool) {
	defer c.recoverFault(&fault)
	return handler.Chunk(window), false
}

func (c *conn[C]) end(handler RequestHandler) (Response, invokeOutcome) {
	resp, fault := c.endSafe(handler)
	if fault {
		return internalError(), outcomeFault
	}
	return resp, outcomeOK
}

func (c *conn[C]) endSafe(handler RequestHandler) (resp Response, fault bool) {
	defer c.recoverFault(&fault)
	return handler.End(), false
}

func (c *conn[C]) recoverFault(fault *bool) {
	if r := recover(); r != nil {
		c.log.Error("handler panic", "panic", r)
		*fault = true
	}
}

func internalError() Response {
	return FixedString(StatusInternalServerError, nil, "Internal server error\r\n")
}

// errorResponse renders a parse failure as its HTTP answer. Anything
// that is not a protocolError is a socket-level failure; the response
// is a best effort before the connection closes.
func errorResponse(err error) Response {
	var perr *protocolError
	if !errors.As(err, &perr) {
		return FixedString(StatusBadRequest, nil, "IO error while reading\r\n")
	}
	var headers *Headers
	if len(perr.allow) > 0 {
		headers = HeadersOf("Allow", strings.Join(perr.allow, ", "))
	}
	return FixedString(perr.status, headers, perr.message)
}

// respondError answers a failed request. Routing misses keep the
// connection alive when the head parsed cleanly and the declared body
// drains; parse failures close it.
func (c *conn[C]) respondError(w *responseWriter, p *parser, head *requestHead, err error, start time.Time) bool {
	var perr *protocolError
	reusable := errors.As(err, &perr) && perr.reusable && head != nil
	if reusable && p.drain() != nil {
		reusable = false
	}
	keepAlive := reusable && decideKeepAlive(head.proto, head.headers)
	resp := errorResponse(err)
	return c.writeResponse(w, resp, keepAlive, head, start) && keepAlive
}

func (c *conn[C]) writeResponse(w *responseWriter, resp Response, keepAlive bool, head *requestHead, start time.Time) bool {
	if err := w.write(resp, keepAlive); err != nil {
		c.log.Debug("write failed", "err", err)
		return false
	}
	c.record(head, resp.Status, start)
	return true
}

// record feeds the request counter and duration histogram. Instruments
// come from the global meter provider; with none installed they are
// no-ops.
func (c *conn[C]) record(head *requestHead, status int, start time.Time) {
	method := "UNKNOWN"
	if head != nil {
		method = head.verb.String()
	}
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.Int("http.response.status_code", status),
	)
	ctx := context.Background()
	c.srv.requests.Add(ctx, 1, attrs)
	c.srv.duration.Record(ctx, time.Since(start).Seconds(), attrs)
}

// decideKeepAlive applies the version default and any Connection
// header: HTTP/1.1 stays open unless "close", HTTP/1.0 closes unless
// "keep-alive".
func decideKeepAlive(proto string, headers *Headers) bool {
	value, _ := headers.Get("connection")
	value = strings.ToLower(value)
	if proto == "HTTP/1.1" {
		return value != "close"
	}
	return value == "keep-alive"
}
