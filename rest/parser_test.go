package rest

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/hammer90/embeddable-rest-server/test"
)

func parserFor(input string, bufSize int) *parser {
	return newParser(bufio.NewReaderSize(strings.NewReader(input), bufSize), bufSize)
}

func protocolStatus(t *testing.T, err error) int {
	t.Helper()
	var perr *protocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected a protocol error, got %v", err)
	}
	return perr.status
}

func TestParseHead(t *testing.T) {
	p := parserFor("GET /greeting/Bob?count=3 HTTP/1.1\r\nHost: localhost\r\nX-Foo: Bar\r\n\r\n", 2048)

	head, err := p.parseHead()
	test.AssertNoErr(t, err)
	test.AssertEqual(t, GET, head.verb)
	test.AssertEqual(t, "/greeting/Bob", head.path)
	test.AssertEqual(t, "count=3", head.query)
	test.AssertEqual(t, "HTTP/1.1", head.proto)
	test.AssertEqual(t, bodyNone, head.body)
	test.AssertTrue(t, p.done())

	// Names are normalized to lowercase, values keep their case.
	test.AssertEqual(t, "x-foo", head.headers.Fields()[1].Name)
	value, found := head.headers.Get("X-FOO")
	test.AssertTrue(t, found)
	test.AssertEqual(t, "Bar", value)
}

func TestParseHeadUnknownMethod(t *testing.T) {
	p := parserFor("HEAD / HTTP/1.1\r\n\r\n", 2048)

	_, err := p.parseHead()
	test.AssertEqual(t, StatusNotImplemented, protocolStatus(t, err))
}

func TestParseHeadUnsupportedVersion(t *testing.T) {
	p := parserFor("GET / HTTP/2.0\r\n\r\n", 2048)

	_, err := p.parseHead()
	test.AssertEqual(t, StatusHTTPVersionNotSupported, protocolStatus(t, err))
}

func TestParseHeadMalformedRequestLine(t *testing.T) {
	for _, line := range []string{"GET /\r\n", "GET  / HTTP/1.1\r\n", "\r\n"} {
		p := parserFor(line+"\r\n", 2048)
		_, err := p.parseHead()
		test.AssertEqual(t, StatusBadRequest, protocolStatus(t, err))
	}
}

func TestParseHeadRequestLineTooLong(t *testing.T) {
	p := parserFor("GET /"+strings.Repeat("x", 100)+" HTTP/1.1\r\n\r\n", 32)

	_, err := p.parseHead()
	test.AssertEqual(t, StatusRequestURITooLong, protocolStatus(t, err))
}

func TestParseHeadHeaderBlockBoundary(t *testing.T) {
	// The cumulative header block budget equals the buffer size, raw
	// bytes including line terminators and the final empty line.
	bufSize := 64
	line := "foo: " + strings.Repeat("x", 55) + "\r\n"
	test.AssertEqual(t, 62, len(line))

	p := parserFor("GET / HTTP/1.1\r\n"+line+"\r\n", bufSize)
	_, err := p.parseHead()
	test.AssertNoErr(t, err)

	over := "foo: " + strings.Repeat("x", 56) + "\r\n"
	p = parserFor("GET / HTTP/1.1\r\n"+over+"\r\n", bufSize)
	_, err = p.parseHead()
	test.AssertEqual(t, StatusRequestHeaderFieldsTooLarge, protocolStatus(t, err))
}

func TestParseHeadHeaderWithoutColon(t *testing.T) {
	p := parserFor("GET / HTTP/1.1\r\nnot-a-header\r\n\r\n", 2048)

	_, err := p.parseHead()
	test.AssertEqual(t, StatusBadRequest, protocolStatus(t, err))
}

func TestParseHeadInvalidContentLength(t *testing.T) {
	for _, cl := range []string{"abc", "-5"} {
		p := parserFor("POST / HTTP/1.1\r\nContent-Length: "+cl+"\r\n\r\n", 2048)
		_, err := p.parseHead()
		test.AssertEqual(t, StatusLengthRequired, protocolStatus(t, err))
	}
}

func readBody(t *testing.T, p *parser, window int) []byte {
	t.Helper()
	buf := make([]byte, window)
	var body []byte
	for {
		n, err := p.readWindow(buf)
		if err == io.EOF {
			return body
		}
		test.AssertNoErr(t, err)
		body = append(body, buf[:n]...)
	}
}

func TestFixedBodyWindows(t *testing.T) {
	p := parserFor("POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\n0123456789", 4)

	head, err := p.parseHead()
	test.AssertNoErr(t, err)
	test.AssertEqual(t, bodyFixedLength, head.body)

	buf := make([]byte, 16)
	var sizes []int
	var body []byte
	for {
		n, err := p.readWindow(buf)
		if err == io.EOF {
			break
		}
		test.AssertNoErr(t, err)
		sizes = append(sizes, n)
		body = append(body, buf[:n]...)
	}
	// Windows never exceed the buffer bound even when the caller's
	// slice is larger.
	test.AssertEqual(t, 3, len(sizes))
	for _, n := range sizes {
		test.AssertTrue(t, n <= 4)
	}
	test.AssertEqual(t, "0123456789", string(body))
	test.AssertTrue(t, p.done())
}

func TestChunkedBody(t *testing.T) {
	p := parserFor("POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n"+
		"5\r\nHello\r\n6\r\n World\r\n0\r\n\r\n", 2048)

	head, err := p.parseHead()
	test.AssertNoErr(t, err)
	test.AssertEqual(t, bodyChunked, head.body)
	test.AssertEqual(t, "Hello World", string(readBody(t, p, 2048)))
	test.AssertEqual(t, 0, p.trailers.Len())
}

func TestChunkedWinsOverContentLength(t *testing.T) {
	p := parserFor("POST / HTTP/1.1\r\nContent-Length: 9999\r\nTransfer-Encoding: chunked\r\n\r\n"+
		"3\r\nabc\r\n0\r\n\r\n", 2048)

	head, err := p.parseHead()
	test.AssertNoErr(t, err)
	test.AssertEqual(t, bodyChunked, head.body)
	test.AssertEqual(t, "abc", string(readBody(t, p, 2048)))
}

func TestChunkExtensionsSkipped(t *testing.T) {
	p := parserFor("POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n"+
		"3;name=value\r\nabc\r\n0\r\n\r\n", 2048)

	_, err := p.parseHead()
	test.AssertNoErr(t, err)
	test.AssertEqual(t, "abc", string(readBody(t, p, 2048)))
}

func TestChunkLargerThanBuffer(t *testing.T) {
	payload := strings.Repeat("a", 100)
	p := parserFor("POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n"+
		"64\r\n"+payload+"\r\n0\r\n\r\n", 16)

	_, err := p.parseHead()
	test.AssertNoErr(t, err)

	buf := make([]byte, 16)
	var body []byte
	for {
		n, err := p.readWindow(buf)
		if err == io.EOF {
			break
		}
		test.AssertNoErr(t, err)
		test.AssertTrue(t, n <= 16)
		body = append(body, buf[:n]...)
	}
	test.AssertEqual(t, payload, string(body))
}

func TestChunkedTrailers(t *testing.T) {
	p := parserFor("POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n"+
		"4\r\ndata\r\n0\r\nChecksum: abc123\r\n\r\n", 2048)

	_, err := p.parseHead()
	test.AssertNoErr(t, err)
	test.AssertEqual(t, "data", string(readBody(t, p, 2048)))

	value, found := p.trailers.Get("checksum")
	test.AssertTrue(t, found)
	test.AssertEqual(t, "abc123", value)
}

func TestBrokenChunkSize(t *testing.T) {
	p := parserFor("POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\nzz\r\n", 2048)

	_, err := p.parseHead()
	test.AssertNoErr(t, err)

	buf := make([]byte, 16)
	_, err = p.readWindow(buf)
	test.AssertEqual(t, StatusBadRequest, protocolStatus(t, err))
}

func TestDrainFixedBody(t *testing.T) {
	input := "GET / HTTP/1.1\r\nContent-Length: 5\r\n\r\nhelloGET"
	p := parserFor(input, 2048)

	_, err := p.parseHead()
	test.AssertNoErr(t, err)
	test.AssertNoErr(t, p.drain())
	test.AssertTrue(t, p.done())

	// The stream is positioned at the next request boundary.
	rest := make([]byte, 3)
	_, err = io.ReadFull(p.br, rest)
	test.AssertNoErr(t, err)
	test.AssertEqual(t, "GET", string(rest))
}

func TestResetBetweenRequests(t *testing.T) {
	var b bytes.Buffer
	b.WriteString("POST /a HTTP/1.1\r\nContent-Length: 2\r\n\r\nhi")
	b.WriteString("GET /b HTTP/1.1\r\n\r\n")
	p := newParser(bufio.NewReader(&b), 2048)

	head, err := p.parseHead()
	test.AssertNoErr(t, err)
	test.AssertEqual(t, "/a", head.path)
	test.AssertEqual(t, "hi", string(readBody(t, p, 2048)))

	p.reset()
	head, err = p.parseHead()
	test.AssertNoErr(t, err)
	test.AssertEqual(t, "/b", head.path)
	test.AssertTrue(t, p.done())
}
