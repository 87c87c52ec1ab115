package xapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalArguments_KeyOrder(t *testing.T) {
	a, err := canonicalArguments(json.RawMessage(`{"a":1,"b":2}`))
	require.NoError(t, err)

	b, err := canonicalArguments(json.RawMessage(`{ "b": 2, "a": 1 }`))
	require.NoError(t, err)

	assert.Equal(t, a, b)

	nested1, err := canonicalArguments(json.RawMessage(`{"x":{"q":[1,2],"p":"s"},"y":1.50}`))
	require.NoError(t, err)

	nested2, err := canonicalArguments(json.RawMessage(`{"y":1.50,"x":{"p":"s","q":[1,2]}}`))
	require.NoError(t, err)

	assert.Equal(t, nested1, nested2)

	other, err := canonicalArguments(json.RawMessage(`{"a":1,"b":3}`))
	require.NoError(t, err)

	assert.NotEqual(t, a, other)
}

func TestCanonicalArguments_Empty(t *testing.T) {
	c, err := canonicalArguments(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", c)
}

func TestEncodeArguments(t *testing.T) {
	tests := []struct {
		name    string
		args    any
		want    string
		wantErr bool
	}{
		{name: "nil", args: nil, want: ""},
		{name: "null raw", args: json.RawMessage("null"), want: ""},
		{name: "map", args: map[string]any{"symbol": "EURUSD"}, want: `{"symbol":"EURUSD"}`},
		{name: "struct", args: struct {
			Symbol string `json:"symbol"`
		}{"EURUSD"}, want: `{"symbol":"EURUSD"}`},
		{name: "raw object", args: json.RawMessage(` {"a":1} `), want: `{"a":1}`},
		{name: "array", args: []int{1, 2}, wantErr: true},
		{name: "number", args: 42, wantErr: true},
		{name: "string", args: "EURUSD", wantErr: true},
		{name: "broken raw", args: json.RawMessage(`{"a":`), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := encodeArguments(tt.args)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidArguments)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, string(raw))
		})
	}
}

func TestNewCommand_UniqueTokens(t *testing.T) {
	seen := make(map[string]struct{})

	for i := 0; i < 1000; i++ {
		cmd, err := NewCommand("ping", nil)
		require.NoError(t, err)
		require.NotEmpty(t, cmd.CustomTag)

		_, dup := seen[cmd.CustomTag]
		require.False(t, dup, "duplicate token %s", cmd.CustomTag)
		seen[cmd.CustomTag] = struct{}{}
	}

	cmd, err := NewCommand("ping", nil)
	require.NoError(t, err)

	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "arguments")
}

func TestStreamFrame(t *testing.T) {
	frame, err := streamFrame("getTickPrices", "sid-1", json.RawMessage(`{"symbol":"EURUSD","minArrivalTime":100}`))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"command": "getTickPrices",
		"streamSessionId": "sid-1",
		"symbol": "EURUSD",
		"minArrivalTime": 100
	}`, string(frame))

	frame, err = streamFrame("stopTickPrices", "", json.RawMessage(`{"symbol":"EURUSD"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"stopTickPrices","symbol":"EURUSD"}`, string(frame))

	frame, err = streamFrame("ping", "sid-1", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"ping","streamSessionId":"sid-1"}`, string(frame))
}

func TestPickArguments(t *testing.T) {
	raw, err := pickArguments(json.RawMessage(`{"symbol":"EURUSD","period":5}`), []string{"symbol", "missing"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"EURUSD"}`, string(raw))

	raw, err = pickArguments(json.RawMessage(`{"symbol":"EURUSD"}`), nil)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		name      string
		frame     string
		malformed bool
	}{
		{name: "success", frame: `{"status":true,"returnData":{"version":"2.5.0"},"customTag":"t1"}`},
		{name: "failure", frame: `{"status":false,"errorCode":"BE005","errorDescr":"bad","customTag":"t1"}`},
		{name: "login", frame: `{"status":true,"streamSessionId":"abc"}`},
		{name: "not json", frame: `hello`, malformed: true},
		{name: "array", frame: `[1,2]`, malformed: true},
		{name: "no status", frame: `{"customTag":"t1"}`, malformed: true},
		{name: "string status", frame: `{"status":"true","customTag":"t1"}`, malformed: true},
		{name: "truncated", frame: `{"status":true,`, malformed: true},
		{name: "empty", frame: ``, malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := decodeResponse([]byte(tt.frame))
			if tt.malformed {
				require.ErrorIs(t, err, ErrMalformedFrame)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, resp)
		})
	}
}

func TestDecodeResponse_Failure(t *testing.T) {
	resp, err := decodeResponse([]byte(`{"status":false,"errorCode":"BE005","errorDescr":"userPasswordCheck","customTag":"t1"}`))
	require.NoError(t, err)

	be := resp.brokerError()
	assert.Equal(t, "BE005", be.Code)
	assert.ErrorIs(t, be, ErrBrokerError)
	assert.Contains(t, be.Error(), "userPasswordCheck")
}

func TestDecodeStreamData(t *testing.T) {
	msg, err := decodeStreamData([]byte(`{"command":"tickPrices","data":{"symbol":"EURUSD","ask":1.2345}}`))
	require.NoError(t, err)
	assert.Equal(t, "tickPrices", msg.Command)
	assert.Equal(t, map[string]any{"symbol": "EURUSD", "ask": 1.2345}, msg.Value())

	msg, err = decodeStreamData([]byte(`{"command":"keepAlive","data":42}`))
	require.NoError(t, err)
	assert.Equal(t, float64(42), msg.Value())

	_, err = decodeStreamData([]byte(`{"data":{}}`))
	require.ErrorIs(t, err, ErrMalformedFrame)

	_, err = decodeStreamData([]byte(`nope`))
	require.ErrorIs(t, err, ErrMalformedFrame)
}
