package transport

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"
)

// ListenWebSocket serves HTTP on addr and returns the first WebSocket
// client as a transport. Each WebSocket message carries a chunk of the
// framed JSON-RPC stream, as browser-based editors send it.
func ListenWebSocket(addr string) (Transport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	accepted := make(chan *wsTransport, 1)
	var once sync.Once
	srv := &http.Server{}
	srv.Handler = websocket.Handler(func(ws *websocket.Conn) {
		t := &wsTransport{conn: ws, srv: srv, closed: make(chan struct{})}
		first := false
		once.Do(func() { first = true })
		if !first {
			ws.Close()
			return
		}
		accepted <- t
		// The handler must not return while the transport is in use;
		// x/net closes the connection when it does.
		<-t.closed
	})

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case t := <-accepted:
		return t, nil
	case err := <-serveErr:
		return nil, fmt.Errorf("serving websocket: %w", err)
	}
}

type wsTransport struct {
	conn *websocket.Conn
	srv  *http.Server

	pending bytes.Buffer

	closeOnce sync.Once
	closed    chan struct{}
}

func (w *wsTransport) Read(p []byte) (int, error) {
	for w.pending.Len() == 0 {
		var msg []byte
		if err := websocket.Message.Receive(w.conn, &msg); err != nil {
			return 0, err
		}
		w.pending.Write(msg)
	}
	return w.pending.Read(p)
}

func (w *wsTransport) Write(p []byte) (int, error) {
	if err := websocket.Message.Send(w.conn, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsTransport) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed)
		err = w.conn.Close()
		_ = w.srv.Close()
	})
	return err
}
