package rest

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// parserState tracks the incremental request parser. States advance
// strictly forward; stateFailed is terminal and maps to an error
// response on the connection.
type parserState uint8

const (
	stateStartLine parserState = iota
	stateHeaders
	stateBodyFixed
	stateChunkSize
	stateChunkData
	stateChunkTrailer
	stateDone
	stateFailed
)

type bodyPresence uint8

const (
	bodyNone bodyPresence = iota
	bodyFixedLength
	bodyChunked
)

// requestHead is the parsed request line plus headers.
type requestHead struct {
	verb    Verb
	path    string
	query   string
	proto   string
	headers *Headers
	body    bodyPresence
}

// parser reads one request at a time off a connection. Every read is
// bounded by bufSize: no line, header block, or body window ever
// exceeds it, regardless of peer-supplied lengths.
type parser struct {
	br        *bufio.Reader
	bufSize   int
	state     parserState
	remaining int
	trailers  *Headers
}

func newParser(br *bufio.Reader, bufSize int) *parser {
	return &parser{br: br, bufSize: bufSize, state: stateStartLine}
}

// reset prepares the parser for the next request on a kept-alive
// connection. Only legal once the previous body reached stateDone.
func (p *parser) reset() {
	p.state = stateStartLine
	p.remaining = 0
	p.trailers = nil
}

func (p *parser) done() bool {
	return p.state == stateDone
}

// readLimitedLine consumes one CRLF- or LF-terminated line, counting
// raw bytes (terminator included) against limit. Exceeding the limit
// returns overflow and poisons the parser.
func (p *parser) readLimitedLine(limit int, overflow *protocolError) (string, int, error) {
	var sb strings.Builder
	n := 0
	for {
		b, err := p.br.ReadByte()
		if err != nil {
			if n > 0 && err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			p.state = stateFailed
			return "", n, err
		}
		n++
		if n > limit {
			p.state = stateFailed
			return "", n, overflow
		}
		if b == '\n' {
			return sb.String(), n, nil
		}
		if b != '\r' {
			sb.WriteByte(b)
		}
	}
}

// parseHead reads the request line and header block. An io.EOF before
// the first byte means the peer closed an idle connection; the caller
// closes quietly.
func (p *parser) parseHead() (*requestHead, error) {
	line, _, err := p.readLimitedLine(p.bufSize, errURITooLong())
	if err != nil {
		return nil, err
	}
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		p.state = stateFailed
		return nil, errNotHTTPConform()
	}
	verb, err := mapMethod(parts[0])
	if err != nil {
		p.state = stateFailed
		return nil, err
	}
	proto := parts[2]
	if proto != "HTTP/1.1" && proto != "HTTP/1.0" {
		p.state = stateFailed
		return nil, errUnsupportedVersion(proto)
	}
	path, query, _ := strings.Cut(parts[1], "?")

	p.state = stateHeaders
	headers, err := p.parseHeaders(p.bufSize)
	if err != nil {
		return nil, err
	}

	head := &requestHead{
		verb:    verb,
		path:    path,
		query:   query,
		proto:   proto,
		headers: headers,
	}
	if err := p.prepareBody(head); err != nil {
		p.state = stateFailed
		return nil, err
	}
	return head, nil
}

// parseHeaders reads "name: value" lines until the empty line. budget
// bounds the cumulative raw size of the block; one byte over is a
// fatal parse error, never a truncation.
func (p *parser) parseHeaders(budget int) (*Headers, error) {
	headers := NewHeaders()
	for {
		line, n, err := p.readLimitedLine(budget, errHeaderTooLarge())
		if err != nil {
			return nil, err
		}
		budget -= n
		if line == "" {
			return headers, nil
		}
		name, value, found := strings.Cut(line, ":")
		if !found || name == "" {
			p.state = stateFailed
			return nil, errBadHeader()
		}
		headers.Add(strings.ToLower(strings.TrimSpace(name)), strings.TrimSpace(value))
	}
}

// prepareBody decides the body framing. When both Content-Length and
// chunked Transfer-Encoding are present, chunked wins.
func (p *parser) prepareBody(head *requestHead) error {
	if te, ok := head.headers.Get("transfer-encoding"); ok && strings.Contains(strings.ToLower(te), "chunked") {
		head.body = bodyChunked
		p.state = stateChunkSize
		return nil
	}
	cl, ok := head.headers.Get("content-length")
	if !ok {
		head.body = bodyNone
		p.state = stateDone
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(cl))
	if err != nil || n < 0 {
		return errInvalidLength()
	}
	head.body = bodyFixedLength
	if n == 0 {
		p.state = stateDone
	} else {
		p.state = stateBodyFixed
		p.remaining = n
	}
	return nil
}

// readWindow fills buf with the next body window. It returns at most
// len(buf) bytes, capped at the buffer bound, and (0, io.EOF) once the
// body is exhausted — with trailers parsed and attached by then.
// Requesting past the end keeps returning io.EOF.
func (p *parser) readWindow(buf []byte) (int, error) {
	if len(buf) > p.bufSize {
		buf = buf[:p.bufSize]
	}
	switch p.state {
	case stateDone:
		return 0, io.EOF
	case stateBodyFixed:
		n, err := p.readData(buf)
		if err != nil {
			return n, err
		}
		if p.remaining == 0 {
			p.state = stateDone
		}
		return n, nil
	case stateChunkSize:
		size, err := p.readChunkSize()
		if err != nil {
			p.state = stateFailed
			return 0, err
		}
		if size == 0 {
			p.state = stateChunkTrailer
			trailers, err := p.parseHeaders(p.bufSize)
			if err != nil {
				return 0, err
			}
			p.trailers = trailers
			p.state = stateDone
			return 0, io.EOF
		}
		p.remaining = size
		p.state = stateChunkData
		return p.readWindow(buf)
	case stateChunkData:
		n, err := p.readData(buf)
		if err != nil {
			return n, err
		}
		if p.remaining == 0 {
			if err := p.expectCRLF(); err != nil {
				return n, err
			}
			p.state = stateChunkSize
		}
		return n, nil
	default:
		return 0, errNotHTTPConform()
	}
}

// readData takes up to remaining bytes of the current fixed body or
// chunk, never more than fits buf.
func (p *parser) readData(buf []byte) (int, error) {
	want := len(buf)
	if want > p.remaining {
		want = p.remaining
	}
	n, err := io.ReadFull(p.br, buf[:want])
	p.remaining -= n
	if err != nil {
		p.state = stateFailed
		return n, err
	}
	return n, nil
}

// drain discards any unread body so the connection can serve the next
// request. Trailers are still collected.
func (p *parser) drain() error {
	if p.state == stateDone {
		return nil
	}
	buf := make([]byte, p.bufSize)
	for {
		_, err := p.readWindow(buf)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// readChunkSize parses a hex chunk-size line; extensions after ';' are
// skipped, not interpreted.
func (p *parser) readChunkSize() (int, error) {
	line, _, err := p.readLimitedLine(p.bufSize, errBrokenChunk())
	if err != nil {
		return 0, err
	}
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, errBrokenChunk()
	}
	size, err := strconv.ParseInt(line, 16, 32)
	if err != nil || size < 0 {
		return 0, errBrokenChunk()
	}
	return int(size), nil
}

func (p *parser) expectCRLF() error {
	b1, err := p.br.ReadByte()
	if err != nil {
		p.state = stateFailed
		return err
	}
	b2, err := p.br.ReadByte()
	if err != nil {
		p.state = stateFailed
		return err
	}
	if b1 != '\r' || b2 != '\n' {
		p.state = stateFailed
		return errBrokenChunk()
	}
	return nil
}
