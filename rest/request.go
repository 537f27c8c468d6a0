package rest

// Request is the parsed head handed to handlers. It is owned by the
// connection for the lifetime of one exchange; handlers must not
// retain it past End.
type Request struct {
	Method Verb
	Path   string
	// RawQuery is everything after the first '?' of the request
	// target, unparsed. Empty when absent.
	RawQuery string
	Proto    string
	// Headers holds the request headers with lowercase-normalized
	// names, in wire order.
	Headers *Headers
	// Params maps path-template parameter names to the matched
	// segments.
	Params map[string]string
	// Trailers holds chunked trailer fields. It is populated only once
	// the body is fully drained: visible in End, never in Chunk.
	Trailers *Headers

	bufSize int
}

// BufferSize is the server's configured buffer bound, the upper limit
// on any single body window a handler will see.
func (r *Request) BufferSize() int {
	return r.bufSize
}
