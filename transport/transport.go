// Package transport provides the byte streams an LSP client can reach the
// server over: stdio, TCP, Unix sockets, named pipes, WebSocket and the
// Node.js IPC channel used by VS Code.
package transport

import (
	"io"
	"os"
)

// Transport is a bidirectional byte stream carrying framed JSON-RPC.
type Transport interface {
	io.ReadWriteCloser
}

// Factory opens a transport lazily, typically by accepting a connection.
type Factory func() (Transport, error)

type streamPair struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (p *streamPair) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *streamPair) Write(b []byte) (int, error) { return p.out.Write(b) }

func (p *streamPair) Close() error {
	inErr := p.in.Close()
	if err := p.out.Close(); err != nil {
		return err
	}
	return inErr
}

// Stdio returns a transport over os.Stdin and os.Stdout.
func Stdio() Transport {
	return &streamPair{in: os.Stdin, out: os.Stdout}
}

// NodeIPC returns the transport used when VS Code spawns the server with
// the node-ipc option: the host writes to file descriptor 3 and reads the
// child's stdout.
func NodeIPC() Transport {
	return &streamPair{in: os.NewFile(3, "node-ipc"), out: nopWriteCloser{os.Stdout}}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
