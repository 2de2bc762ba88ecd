package jsonrpc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"jsonrpc":"2.0","id":7,"method":"initialize","params":{}}`))
	require.NoError(t, err)
	req, ok := msg.(*Request)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, "n:7", req.ID.String())
	assert.Equal(t, "initialize", req.Method)

	msg, err = DecodeMessage([]byte(`{"jsonrpc":"2.0","method":"initialized"}`))
	require.NoError(t, err)
	assert.IsType(t, &Notification{}, msg)

	msg, err = DecodeMessage([]byte(`{"jsonrpc":"2.0","id":"abc","result":null}`))
	require.NoError(t, err)
	resp, ok := msg.(*Response)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, "s:abc", resp.ID.String())

	_, err = DecodeMessage([]byte(`{"jsonrpc":"1.0","method":"x"}`))
	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeInvalidRequest, rpcErr.Code)

	_, err = DecodeMessage([]byte(`{`))
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeParseError, rpcErr.Code)
}

func TestIDEncoding(t *testing.T) {
	for _, id := range []ID{IntID(3), StringID("3"), {}} {
		data, err := json.Marshal(id)
		require.NoError(t, err)
		var back ID
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, id.String(), back.String())
	}
	assert.NotEqual(t, IntID(3).String(), StringID("3").String())

	var id ID
	assert.Error(t, json.Unmarshal([]byte(`{}`), &id))
}

func TestNewResponse(t *testing.T) {
	got := NewResponse(IntID(1), map[string]int{"n": 1}, nil)
	want := &Response{JSONRPC: Version, ID: IntID(1), Result: RawMessage(`{"n":1}`)}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(ID{})); diff != "" {
		t.Errorf("NewResponse mismatch (-want +got):\n%s", diff)
	}

	nullResult := NewResponse(IntID(2), nil, nil)
	assert.Equal(t, "null", string(nullResult.Result))

	plain := NewResponse(IntID(3), nil, errors.New("boom"))
	require.NotNil(t, plain.Error)
	assert.Equal(t, CodeInternalError, plain.Error.Code)

	typed := NewResponse(IntID(4), nil, Errorf(CodeServerNotInitialized, "not yet"))
	assert.Equal(t, CodeServerNotInitialized, typed.Error.Code)
	assert.Equal(t, "not yet", typed.Error.Message)
}
