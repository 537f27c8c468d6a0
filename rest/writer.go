package rest

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// responseWriter serializes responses onto the connection. Payloads
// larger than the buffer bound are split across multiple writes; a
// caller-supplied chunk larger than the bound is re-chunked.
type responseWriter struct {
	bw      *bufio.Writer
	bufSize int
}

// managed headers are framing-relevant and always emitted by the
// writer itself; caller copies are dropped.
func managedHeader(name string) bool {
	return strings.EqualFold(name, "Content-Length") ||
		strings.EqualFold(name, "Transfer-Encoding") ||
		strings.EqualFold(name, "Connection") ||
		strings.EqualFold(name, "Trailer")
}

func (w *responseWriter) write(resp Response, keepAlive bool) error {
	if err := w.writeHead(resp, keepAlive); err != nil {
		return err
	}
	switch resp.Body.kind {
	case bodyKindFixed:
		return w.writeFixed(resp.Body.fixed)
	default:
		return w.writeStream(resp.Body)
	}
}

func (w *responseWriter) writeHead(resp Response, keepAlive bool) error {
	reason := StatusText(resp.Status)
	if _, err := fmt.Fprintf(w.bw, "HTTP/1.1 %d %s\r\n", resp.Status, reason); err != nil {
		return err
	}
	for _, f := range resp.Headers.Fields() {
		if managedHeader(f.Name) {
			continue
		}
		if _, err := fmt.Fprintf(w.bw, "%s: %s\r\n", f.Name, sanitizeFieldValue(f.Value)); err != nil {
			return err
		}
	}
	connection := "close"
	if keepAlive {
		connection = "keep-alive"
	}
	_, err := fmt.Fprintf(w.bw, "Connection: %s\r\n", connection)
	return err
}

func (w *responseWriter) writeFixed(body []byte) error {
	if _, err := fmt.Fprintf(w.bw, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return err
	}
	for len(body) > 0 {
		n := len(body)
		if n > w.bufSize {
			n = w.bufSize
		}
		if _, err := w.bw.Write(body[:n]); err != nil {
			return err
		}
		body = body[n:]
	}
	return w.bw.Flush()
}

func (w *responseWriter) writeStream(body Body) error {
	if _, err := io.WriteString(w.bw, "Transfer-Encoding: chunked\r\n"); err != nil {
		return err
	}
	var trailered TrailerStreamer
	if body.kind == bodyKindStreamTrailers {
		trailered = body.stream.(TrailerStreamer)
		if names := trailered.TrailerNames(); len(names) > 0 {
			if _, err := fmt.Fprintf(w.bw, "Trailer: %s\r\n", strings.Join(names, ", ")); err != nil {
				return err
			}
		}
	}
	if _, err := io.WriteString(w.bw, "\r\n"); err != nil {
		return err
	}
	if err := w.bw.Flush(); err != nil {
		return err
	}

	for {
		chunk, ok := body.stream.Next()
		if !ok {
			break
		}
		if err := w.writeChunk(chunk); err != nil {
			return err
		}
		// Flush per produced chunk so slow streams reach the peer as
		// they are generated.
		if err := w.bw.Flush(); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(w.bw, "0\r\n"); err != nil {
		return err
	}
	if trailered != nil {
		for _, f := range trailered.Trailers() {
			if _, err := fmt.Fprintf(w.bw, "%s: %s\r\n", f.Name, sanitizeFieldValue(f.Value)); err != nil {
				return err
			}
		}
	}
	if _, err := io.WriteString(w.bw, "\r\n"); err != nil {
		return err
	}
	return w.bw.Flush()
}

// writeChunk emits one chunk, splitting anything beyond the buffer
// bound into multiple wire chunks. Empty chunks are skipped; a zero
// size line would terminate the body early.
func (w *responseWriter) writeChunk(data []byte) error {
	for len(data) > 0 {
		n := len(data)
		if n > w.bufSize {
			n = w.bufSize
		}
		if _, err := fmt.Fprintf(w.bw, "%x\r\n", n); err != nil {
			return err
		}
		if _, err := w.bw.Write(data[:n]); err != nil {
			return err
		}
		if _, err := io.WriteString(w.bw, "\r\n"); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// sanitizeFieldValue drops CR, LF and other control bytes so a header
// value cannot break response framing. Content beyond that is the
// caller's responsibility.
func sanitizeFieldValue(v string) string {
	clean := true
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c < 0x20 && c != '\t' || c == 0x7f {
			clean = false
			break
		}
	}
	if clean {
		return v
	}
	var sb strings.Builder
	sb.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c < 0x20 && c != '\t' || c == 0x7f {
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
