package rest

type bodyKind uint8

const (
	bodyKindFixed bodyKind = iota
	bodyKindStream
	bodyKindStreamTrailers
)

// ChunkStreamer produces a lazy, finite, non-restartable sequence of
// body chunks. Next returns false once the stream is exhausted.
type ChunkStreamer interface {
	Next() ([]byte, bool)
}

// TrailerStreamer additionally carries trailer fields. TrailerNames
// must be known before the body is written (they are announced in the
// head); Trailers is consulted only after the last chunk.
type TrailerStreamer interface {
	ChunkStreamer
	TrailerNames() []string
	Trailers() []Field
}

// Body is a tagged variant: fixed bytes sent with Content-Length, or a
// chunk stream sent with chunked transfer coding, optionally trailed.
type Body struct {
	kind   bodyKind
	fixed  []byte
	stream ChunkStreamer
}

func FixedBody(data []byte) Body {
	return Body{kind: bodyKindFixed, fixed: data}
}

func StreamBody(s ChunkStreamer) Body {
	return Body{kind: bodyKindStream, stream: s}
}

func StreamBodyWithTrailers(s TrailerStreamer) Body {
	return Body{kind: bodyKindStreamTrailers, stream: s}
}

// Response is built by a handler and owned by the connection until
// fully written. Headers may be nil. Header values must not contain
// line breaks; the writer strips control characters but does not
// otherwise validate caller-supplied content.
type Response struct {
	Status  int
	Headers *Headers
	Body    Body
}

// FixedString is the common case: a complete string body sent with
// Content-Length.
func FixedString(status int, headers *Headers, body string) Response {
	return Response{Status: status, Headers: headers, Body: FixedBody([]byte(body))}
}

// chunkSlice streams a fixed list of chunks.
type chunkSlice struct {
	chunks [][]byte
	next   int
}

func (c *chunkSlice) Next() ([]byte, bool) {
	if c.next >= len(c.chunks) {
		return nil, false
	}
	chunk := c.chunks[c.next]
	c.next++
	return chunk, true
}

// Chunks builds a ChunkStreamer over the given byte slices.
func Chunks(chunks ...[]byte) ChunkStreamer {
	return &chunkSlice{chunks: chunks}
}
