package transport

import (
	"fmt"
	"net"
	"os"
)

// ListenTCP accepts a single client on addr (e.g. ":9257").
func ListenTCP(addr string) (Transport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return acceptOne(ln, "")
}

// ListenSocket accepts a single client on a Unix domain socket. A stale
// socket file at path is removed first and the file is removed again on
// Close.
func ListenSocket(path string) (Transport, error) {
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}
	return acceptOne(ln, path)
}

// ListenPipe accepts a single client on a named pipe. Outside Windows a
// named pipe is a Unix domain socket.
func ListenPipe(name string) (Transport, error) {
	return ListenSocket(name)
}

// Dial connects to a server listening on network/addr.
func Dial(network, addr string) (Transport, error) {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, err
	}
	return &netTransport{Conn: conn}, nil
}

func acceptOne(ln net.Listener, cleanup string) (Transport, error) {
	defer ln.Close()
	conn, err := ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("accepting client: %w", err)
	}
	return &netTransport{Conn: conn, cleanup: cleanup}, nil
}

type netTransport struct {
	net.Conn
	cleanup string
}

func (t *netTransport) Close() error {
	err := t.Conn.Close()
	if t.cleanup != "" {
		_ = os.Remove(t.cleanup)
	}
	return err
}
