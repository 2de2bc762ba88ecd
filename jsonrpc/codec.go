package jsonrpc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"sync"
)

// MaxMessageSize bounds a single message body.
const MaxMessageSize = 64 << 20

var errMissingLength = errors.New("missing Content-Length header")

// Codec reads and writes messages framed with LSP base-protocol headers.
// Reads are not synchronized; writes are.
type Codec struct {
	reader *textproto.Reader
	buf    *bufio.Reader

	wmu    sync.Mutex
	writer io.Writer
}

// NewCodec creates a codec over the given streams.
func NewCodec(r io.Reader, w io.Writer) *Codec {
	buf := bufio.NewReaderSize(r, 64*1024)
	return &Codec{
		reader: textproto.NewReader(buf),
		buf:    buf,
		writer: w,
	}
}

// Read returns the body of the next framed message.
func (c *Codec) Read() ([]byte, error) {
	header, err := c.reader.ReadMIMEHeader()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	raw := header.Get("Content-Length")
	if raw == "" {
		return nil, errMissingLength
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid Content-Length %q", raw)
	}
	if n > MaxMessageSize {
		return nil, fmt.Errorf("message of %d bytes exceeds limit of %d", n, MaxMessageSize)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(c.buf, body); err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// Write frames data and writes it in a single call so concurrent writers
// never interleave.
func (c *Codec) Write(data []byte) error {
	frame := make([]byte, 0, len(data)+32)
	frame = append(frame, "Content-Length: "...)
	frame = strconv.AppendInt(frame, int64(len(data)), 10)
	frame = append(frame, "\r\n\r\n"...)
	frame = append(frame, data...)

	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := c.writer.Write(frame)
	return err
}
