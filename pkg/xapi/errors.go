package xapi

import (
	"errors"
	"fmt"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrRequestTimeout   = errors.New("request timeout")
	ErrBrokerError      = errors.New("broker error")
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrUnmatchedToken   = errors.New("response for unknown request")
	ErrInvalidArguments = errors.New("arguments must be a JSON object or null")
	ErrLoginFailed      = errors.New("login failed")
	ErrStreamClosed     = errors.New("stream closed")
)

// BrokerError сообщает об отказе брокера выполнить команду (status=false).
// Ошибка относится только к одному запросу и не закрывает соединение.
type BrokerError struct {
	Code        string
	Description string
}

func (e *BrokerError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("broker error %s", e.Code)
	}

	return fmt.Sprintf("broker error %s: %s", e.Code, e.Description)
}

func (e *BrokerError) Is(target error) bool {
	return target == ErrBrokerError
}

func IsBrokerError(err error) (*BrokerError, bool) {
	var be *BrokerError
	if errors.As(err, &be) {
		return be, true
	}

	return nil, false
}
