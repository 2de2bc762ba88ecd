// Package jsonrpc implements a bidirectional JSON-RPC 2.0 connection over
// Content-Length framed streams, as used by the LSP base protocol.
package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Call when the connection shuts down before a
// response arrives.
var ErrClosed = errors.New("jsonrpc: connection closed")

// Handler answers an incoming request.
type Handler func(ctx context.Context, method string, params RawMessage) (result interface{}, err error)

// NotificationHandler processes an incoming notification. Notifications are
// handled one at a time on the read loop, in arrival order, so a handler
// must not block on Call.
type NotificationHandler func(ctx context.Context, method string, params RawMessage)

// Conn is a bidirectional JSON-RPC 2.0 connection. Requests from the peer
// are served concurrently; each gets a context cancelled by $/cancelRequest
// or by the connection closing.
type Conn struct {
	codec   *Codec
	handler Handler
	notif   NotificationHandler
	logger  *slog.Logger

	pending  sync.Map // ID.String() -> chan *Response
	inflight sync.Map // ID.String() -> context.CancelFunc
	nextID   atomic.Int64
	wg       sync.WaitGroup

	closeOnce sync.Once
	done      chan struct{}
}

// ConnOption configures a Conn.
type ConnOption func(*Conn)

// WithConnLogger sets the logger used for protocol-level problems.
func WithConnLogger(l *slog.Logger) ConnOption {
	return func(c *Conn) { c.logger = l }
}

// NewConn creates a connection. Either handler may be nil.
func NewConn(codec *Codec, handler Handler, notif NotificationHandler, opts ...ConnOption) *Conn {
	c := &Conn{
		codec:   codec,
		handler: handler,
		notif:   notif,
		logger:  slog.Default(),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run reads and dispatches messages until the peer hangs up, the connection
// is closed, or ctx is cancelled. A clean end of stream returns io.EOF.
func (c *Conn) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		default:
		}

		data, err := c.codec.Read()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return fmt.Errorf("reading message: %w", err)
		}

		msg, err := DecodeMessage(data)
		if err != nil {
			c.logger.Warn("dropping malformed message", "error", err)
			continue
		}

		switch m := msg.(type) {
		case *Request:
			c.serveRequest(ctx, m)
		case *Notification:
			c.serveNotification(ctx, m)
		case *Response:
			c.deliver(m)
		}
	}
}

func (c *Conn) serveRequest(ctx context.Context, req *Request) {
	reqCtx, cancel := context.WithCancel(ctx)
	key := req.ID.String()
	c.inflight.Store(key, cancel)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.inflight.Delete(key)
			cancel()
		}()

		var (
			result interface{}
			err    error
		)
		if c.handler == nil {
			err = Errorf(CodeMethodNotFound, "method not found: %s", req.Method)
		} else {
			result, err = c.handler(reqCtx, req.Method, req.Params)
		}
		if err == nil && reqCtx.Err() != nil && ctx.Err() == nil {
			err = &Error{Code: CodeRequestCancelled, Message: "request cancelled"}
		}
		c.reply(NewResponse(req.ID, result, err))
	}()
}

func (c *Conn) serveNotification(ctx context.Context, n *Notification) {
	if n.Method == "$/cancelRequest" {
		c.cancelInflight(n.Params)
		return
	}
	if c.notif != nil {
		c.notif(ctx, n.Method, n.Params)
	}
}

func (c *Conn) cancelInflight(params RawMessage) {
	var p struct {
		ID ID `json:"id"`
	}
	if err := json.Unmarshal(params, &p); err != nil || !p.ID.IsValid() {
		return
	}
	if cancel, ok := c.inflight.Load(p.ID.String()); ok {
		cancel.(context.CancelFunc)()
	}
}

func (c *Conn) reply(resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("encoding response", "id", resp.ID.String(), "error", err)
		return
	}
	if err := c.codec.Write(data); err != nil {
		c.logger.Debug("writing response", "id", resp.ID.String(), "error", err)
	}
}

func (c *Conn) deliver(resp *Response) {
	if ch, ok := c.pending.LoadAndDelete(resp.ID.String()); ok {
		ch.(chan *Response) <- resp
	}
}

// Call sends a request to the peer and waits for its response.
func (c *Conn) Call(ctx context.Context, method string, params interface{}) (*Response, error) {
	payload, err := marshalParams(params)
	if err != nil {
		return nil, fmt.Errorf("encoding %s params: %w", method, err)
	}

	id := IntID(c.nextID.Add(1))
	ch := make(chan *Response, 1)
	c.pending.Store(id.String(), ch)
	defer c.pending.Delete(id.String())

	data, err := json.Marshal(&Request{JSONRPC: Version, ID: id, Method: method, Params: payload})
	if err != nil {
		return nil, err
	}
	if err := c.codec.Write(data); err != nil {
		return nil, fmt.Errorf("sending %s: %w", method, err)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		_ = c.Notify(context.Background(), "$/cancelRequest", map[string]ID{"id": id})
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// Notify sends a notification to the peer.
func (c *Conn) Notify(_ context.Context, method string, params interface{}) error {
	payload, err := marshalParams(params)
	if err != nil {
		return fmt.Errorf("encoding %s params: %w", method, err)
	}
	data, err := json.Marshal(&Notification{JSONRPC: Version, Method: method, Params: payload})
	if err != nil {
		return err
	}
	return c.codec.Write(data)
}

// Close stops Run and fails outstanding calls. It does not close the
// underlying stream; the owner of the transport does that.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Done is closed once Close has been called.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func marshalParams(v interface{}) (RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
