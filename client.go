package weblsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gossip-lsp/weblsp/jsonrpc"
	"github.com/gossip-lsp/weblsp/protocol"
)

// ErrNoClient is returned by ClientProxy methods before Serve has connected.
var ErrNoClient = errors.New("weblsp: no client connection")

// ClientProxy sends server-to-client requests and notifications. Requests
// must not be issued from a notification handler: notifications are
// processed on the read loop, which is where the response would arrive.
type ClientProxy struct {
	conn *jsonrpc.Conn
}

func newClientProxy(conn *jsonrpc.Conn) *ClientProxy {
	return &ClientProxy{conn: conn}
}

func (c *ClientProxy) notify(ctx context.Context, method string, params interface{}) error {
	if c == nil || c.conn == nil {
		return ErrNoClient
	}
	return c.conn.Notify(ctx, method, params)
}

func (c *ClientProxy) call(ctx context.Context, method string, params, result interface{}) error {
	if c == nil || c.conn == nil {
		return ErrNoClient
	}
	resp, err := c.conn.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if result == nil || len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}

// LogMessage writes to the client's output channel.
func (c *ClientProxy) LogMessage(ctx context.Context, typ protocol.MessageType, message string) error {
	return c.notify(ctx, protocol.MethodLogMessage, &protocol.LogMessageParams{Type: typ, Message: message})
}

// ShowMessage pops up a message in the client.
func (c *ClientProxy) ShowMessage(ctx context.Context, typ protocol.MessageType, message string) error {
	return c.notify(ctx, protocol.MethodShowMessage, &protocol.ShowMessageParams{Type: typ, Message: message})
}

// Configuration fetches settings sections from the client.
func (c *ClientProxy) Configuration(ctx context.Context, params *protocol.ConfigurationParams) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := c.call(ctx, protocol.MethodWorkspaceConfiguration, params, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// RegisterCapability asks the client to enable a capability dynamically.
func (c *ClientProxy) RegisterCapability(ctx context.Context, params *protocol.RegistrationParams) error {
	return c.call(ctx, protocol.MethodRegisterCapability, params, nil)
}
