package xapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// decodeResponse: кадр без логического status считается повреждённым.
func decodeResponse(data []byte) (*Response, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedFrame)
	}

	var head struct {
		Status *json.RawMessage `json:"status"`
	}

	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	if head.Status == nil {
		return nil, fmt.Errorf("%w: status field is missing", ErrMalformedFrame)
	}

	if s := bytes.TrimSpace(*head.Status); !bytes.Equal(s, []byte("true")) && !bytes.Equal(s, []byte("false")) {
		return nil, fmt.Errorf("%w: status field is not boolean", ErrMalformedFrame)
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	return &resp, nil
}

func decodeStreamData(data []byte) (*StreamData, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedFrame)
	}

	var msg StreamData
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	if msg.Command == "" {
		return nil, fmt.Errorf("%w: command field is missing", ErrMalformedFrame)
	}

	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &msg.value); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
		}
	}

	return &msg, nil
}
