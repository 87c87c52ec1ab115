package xapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type Command struct {
	Command   string          `json:"command"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	CustomTag string          `json:"customTag"`
}

// Response: при Status=false вместо ReturnData приходят ErrorCode и ErrorDescr.
type Response struct {
	Status          bool            `json:"status"`
	CustomTag       string          `json:"customTag,omitempty"`
	ReturnData      json.RawMessage `json:"returnData,omitempty"`
	StreamSessionID string          `json:"streamSessionId,omitempty"`
	ErrorCode       string          `json:"errorCode,omitempty"`
	ErrorDescr      string          `json:"errorDescr,omitempty"`
}

// StreamData - кадр, который брокер присылает по потоковому соединению.
type StreamData struct {
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data"`

	value any
}

// Value возвращает data, декодированные в any.
func (m *StreamData) Value() any {
	return m.value
}

// NewStreamData собирает кадр так, как он пришёл бы от брокера.
func NewStreamData(command string, data any) (*StreamData, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode data: %w", err)
	}

	msg := &StreamData{Command: command, Data: raw}
	if err := json.Unmarshal(raw, &msg.value); err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}

	return msg, nil
}

func NewCommand(name string, args any) (*Command, error) {
	raw, err := encodeArguments(args)
	if err != nil {
		return nil, err
	}

	return &Command{
		Command:   name,
		Arguments: raw,
		CustomTag: newToken(),
	}, nil
}

// UnmarshalReturnData не трогает v, если returnData нет.
func (r *Response) UnmarshalReturnData(v any) error {
	if len(r.ReturnData) == 0 || bytes.Equal(r.ReturnData, []byte("null")) {
		return nil
	}

	return json.Unmarshal(r.ReturnData, v)
}

func (r *Response) brokerError() *BrokerError {
	return &BrokerError{Code: r.ErrorCode, Description: r.ErrorDescr}
}

func newToken() string {
	return uuid.NewString()
}

// encodeArguments возвращает nil для отсутствующих аргументов и null.
func encodeArguments(args any) (json.RawMessage, error) {
	if args == nil {
		return nil, nil
	}

	var data []byte

	switch v := args.(type) {
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		b, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("failed to encode arguments: %w", err)
		}
		data = b
	}

	trimmed := bytes.TrimSpace(data)

	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return nil, nil
	case trimmed[0] != '{':
		return nil, ErrInvalidArguments
	case !json.Valid(trimmed):
		return nil, fmt.Errorf("%w: invalid JSON", ErrInvalidArguments)
	}

	return json.RawMessage(trimmed), nil
}

// canonicalArguments: структурно равные объекты дают одну строку независимо
// от порядка ключей.
func canonicalArguments(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "null", nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("failed to decode arguments: %w", err)
	}

	// encoding/json сортирует ключи map
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode arguments: %w", err)
	}

	return string(b), nil
}

// streamFrame собирает {"command": name, "streamSessionId": id, ...args}.
func streamFrame(name, sessionID string, args json.RawMessage) ([]byte, error) {
	frame := make(map[string]json.RawMessage)

	if len(args) > 0 {
		if err := json.Unmarshal(args, &frame); err != nil {
			return nil, fmt.Errorf("failed to decode arguments: %w", err)
		}
	}

	cmd, err := json.Marshal(name)
	if err != nil {
		return nil, err
	}
	frame["command"] = cmd

	if sessionID != "" {
		sid, err := json.Marshal(sessionID)
		if err != nil {
			return nil, err
		}
		frame["streamSessionId"] = sid
	}

	return json.Marshal(frame)
}
