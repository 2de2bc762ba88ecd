package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Version is the only JSON-RPC protocol version accepted on the wire.
const Version = "2.0"

// RawMessage is a raw JSON value that delays unmarshaling.
type RawMessage = json.RawMessage

// Message is implemented by Request, Notification and Response.
type Message interface {
	isMessage()
}

// Request expects a Response carrying the same ID.
type Request struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      ID         `json:"id"`
	Method  string     `json:"method"`
	Params  RawMessage `json:"params,omitempty"`
}

// Notification is fire-and-forget.
type Notification struct {
	JSONRPC string     `json:"jsonrpc"`
	Method  string     `json:"method"`
	Params  RawMessage `json:"params,omitempty"`
}

// Response answers a Request. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      ID         `json:"id"`
	Result  RawMessage `json:"result,omitempty"`
	Error   *Error     `json:"error,omitempty"`
}

func (*Request) isMessage()      {}
func (*Notification) isMessage() {}
func (*Response) isMessage()     {}

// Error is a JSON-RPC error object. It satisfies the error interface so
// handlers can return it directly to control the code sent to the peer.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Errorf builds an *Error with a formatted message.
func Errorf(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// LSP error codes.
const (
	CodeServerNotInitialized = -32002
	CodeRequestCancelled     = -32800
	CodeContentModified      = -32801
)

// ID is a request identifier: an integer, a string, or absent.
type ID struct {
	num   int64
	str   string
	isStr bool
	set   bool
}

// IntID returns an integer request ID.
func IntID(v int64) ID { return ID{num: v, set: true} }

// StringID returns a string request ID.
func StringID(v string) ID { return ID{str: v, isStr: true, set: true} }

// IsValid reports whether the ID carries a value.
func (id ID) IsValid() bool { return id.set }

// String renders the ID in a form usable as a map key; integer and string
// IDs with the same text never collide.
func (id ID) String() string {
	switch {
	case !id.set:
		return "null"
	case id.isStr:
		return "s:" + id.str
	default:
		return "n:" + strconv.FormatInt(id.num, 10)
	}
}

func (id ID) MarshalJSON() ([]byte, error) {
	switch {
	case !id.set:
		return []byte("null"), nil
	case id.isStr:
		return json.Marshal(id.str)
	default:
		return []byte(strconv.FormatInt(id.num, 10)), nil
	}
}

func (id *ID) UnmarshalJSON(data []byte) error {
	*id = ID{}
	if string(data) == "null" {
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*id = IntID(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = StringID(s)
		return nil
	}
	return &Error{Code: CodeInvalidRequest, Message: "id must be a number, string, or null"}
}

// wireMessage is the union of every field any message kind may carry.
type wireMessage struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      *ID        `json:"id,omitempty"`
	Method  string     `json:"method,omitempty"`
	Params  RawMessage `json:"params,omitempty"`
	Result  RawMessage `json:"result,omitempty"`
	Error   *Error     `json:"error,omitempty"`
}

// DecodeMessage classifies a raw payload: a method with an ID is a Request,
// a method without one is a Notification, anything else is a Response.
func DecodeMessage(data []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &Error{Code: CodeParseError, Message: "failed to parse JSON-RPC message"}
	}
	if w.JSONRPC != Version {
		return nil, Errorf(CodeInvalidRequest, "unsupported jsonrpc version %q", w.JSONRPC)
	}

	switch {
	case w.Method != "" && w.ID != nil && w.ID.IsValid():
		return &Request{JSONRPC: w.JSONRPC, ID: *w.ID, Method: w.Method, Params: w.Params}, nil
	case w.Method != "":
		return &Notification{JSONRPC: w.JSONRPC, Method: w.Method, Params: w.Params}, nil
	}

	resp := &Response{JSONRPC: w.JSONRPC, Result: w.Result, Error: w.Error}
	if w.ID != nil {
		resp.ID = *w.ID
	}
	return resp, nil
}

// NewResponse builds the reply for id. Non-*Error errors are reported as
// internal errors; a nil result is encoded as JSON null.
func NewResponse(id ID, result interface{}, err error) *Response {
	resp := &Response{JSONRPC: Version, ID: id}
	if err != nil {
		resp.Error = asError(err)
		return resp
	}
	if result == nil {
		resp.Result = RawMessage("null")
		return resp
	}
	data, merr := json.Marshal(result)
	if merr != nil {
		resp.Error = &Error{Code: CodeInternalError, Message: merr.Error()}
		return resp
	}
	resp.Result = data
	return resp
}

func asError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return &Error{Code: CodeInternalError, Message: err.Error()}
}
