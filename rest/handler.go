package rest

// RequestHandler consumes a request body one window at a time. Windows
// never exceed the server's buffer bound. A non-nil response from
// Chunk aborts the body and becomes the reply; the connection closes
// afterwards because the remaining body is undelivered. End is called
// once the body is exhausted (immediately for bodyless requests).
type RequestHandler interface {
	Chunk(window []byte) *Response
	End() Response
}

// Route builds the handler for one matched request. The context is the
// caller-supplied shared value; it is handed to every invocation
// unchanged and never mutated by the engine.
type Route[C any] func(req *Request, ctx C) RequestHandler

type simpleHandler[C any] struct {
	req  *Request
	ctx  C
	fn   func(req *Request, ctx C, body []byte) Response
	data []byte
}

func (h *simpleHandler[C]) Chunk(window []byte) *Response {
	if len(h.data)+len(window) > h.req.bufSize {
		resp := FixedString(StatusRequestEntityTooLarge, nil, "Payload too large\r\n")
		return &resp
	}
	h.data = append(h.data, window...)
	return nil
}

func (h *simpleHandler[C]) End() Response {
	return h.fn(h.req, h.ctx, h.data)
}

// Simple adapts a plain function over the fully materialized body.
// This is the bounded convenience layer: a body that grows past the
// buffer bound is rejected with 413 instead of being buffered. Routes
// expecting larger payloads implement RequestHandler directly.
func Simple[C any](fn func(req *Request, ctx C, body []byte) Response) Route[C] {
	return func(req *Request, ctx C) RequestHandler {
		return &simpleHandler[C]{req: req, ctx: ctx, fn: fn}
	}
}
