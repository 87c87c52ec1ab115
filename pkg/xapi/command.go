package xapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PendingResult - команда в полёте. Разрешается ровно один раз: ответом,
// дедлайном или потерей соединения.
type PendingResult struct {
	Token   string
	Command string

	sentAt time.Time
	timer  *time.Timer
	done   chan struct{}
	resp   *Response
	err    error
}

// Await ждёт разрешения команды. Отмена ctx прекращает только ожидание:
// запрос остаётся в таблице до ответа или дедлайна.
func (p *PendingResult) Await(ctx context.Context) (*Response, error) {
	select {
	case <-p.done:
		return p.resp, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *PendingResult) Done() <-chan struct{} {
	return p.done
}

// CommandConn сопоставляет ответы командного соединения с запросами по
// customTag.
type CommandConn struct {
	t       *transport
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics

	pending map[string]*PendingResult
	pendMu  sync.Mutex
	closed  bool
}

func newCommandConn(t *transport, cfg Config, m *metrics) *CommandConn {
	return &CommandConn{
		t:       t,
		timeout: cfg.RequestTimeout,
		logger:  t.logger,
		metrics: m,
		pending: make(map[string]*PendingResult),
	}
}

// start запускает чтение ответов. onClose вызывается после того, как все
// ожидающие запросы получили ErrConnectionClosed.
func (c *CommandConn) start(onClose func()) {
	c.t.start(c.handleFrame, func() {
		c.failAll(ErrConnectionClosed)

		if onClose != nil {
			onClose()
		}
	})
}

// SendCommand регистрирует запрос и пишет команду. Возвращается, когда кадр
// записан, не дожидаясь ответа.
func (c *CommandConn) SendCommand(ctx context.Context, name string, args any) (*PendingResult, error) {
	cmd, err := NewCommand(name, args)
	if err != nil {
		return nil, fmt.Errorf("failed to create command %s: %w", name, err)
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode command %s: %w", name, err)
	}

	pr := &PendingResult{
		Token:   cmd.CustomTag,
		Command: name,
		sentAt:  time.Now(),
		done:    make(chan struct{}),
	}

	c.pendMu.Lock()

	if c.closed {
		c.pendMu.Unlock()
		return nil, ErrConnectionClosed
	}

	c.pending[pr.Token] = pr
	pr.timer = time.AfterFunc(c.timeout, func() {
		if c.resolve(pr.Token, nil, ErrRequestTimeout) {
			c.logger.Warn("request timed out", "command", name, "customTag", pr.Token)
		}
	})

	c.pendMu.Unlock()

	c.metrics.commandSent(name)

	if err := c.t.write(ctx, data); err != nil {
		c.resolve(pr.Token, nil, err)

		return nil, fmt.Errorf("failed to send command %s: %w", name, err)
	}

	c.logger.Debug("command sent", "command", name, "customTag", pr.Token)

	return pr, nil
}

func (c *CommandConn) Request(ctx context.Context, name string, args any) (*Response, error) {
	pr, err := c.SendCommand(ctx, name, args)
	if err != nil {
		return nil, err
	}

	return pr.Await(ctx)
}

// RequestTyped - Request с декодированием returnData в out. При out == nil
// данные отбрасываются.
func (c *CommandConn) RequestTyped(ctx context.Context, name string, args any, out any) error {
	resp, err := c.Request(ctx, name, args)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	if err := resp.UnmarshalReturnData(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", name, err)
	}

	return nil
}

func (c *CommandConn) handleFrame(data []byte) {
	resp, err := decodeResponse(data)
	if err != nil {
		c.logger.Warn("dropping inbound frame", "error", err)
		c.metrics.discarded("command", "malformed")

		return
	}

	if resp.CustomTag == "" {
		c.logger.Warn("dropping response without customTag", "status", resp.Status)
		c.metrics.discarded("command", "untagged")

		return
	}

	tag := resp.CustomTag

	var result error
	if !resp.Status {
		result = resp.brokerError()
		resp = nil
	}

	if !c.resolve(tag, resp, result) {
		c.logger.Warn("dropping response", "error", ErrUnmatchedToken, "customTag", tag)
		c.metrics.discarded("command", "unmatched")
	}
}

// resolve завершает запрос только тот, кто удалил токен из таблицы.
func (c *CommandConn) resolve(token string, resp *Response, err error) bool {
	c.pendMu.Lock()

	pr, ok := c.pending[token]
	if ok {
		delete(c.pending, token)
	}

	c.pendMu.Unlock()

	if !ok {
		return false
	}

	c.complete(pr, resp, err)

	return true
}

func (c *CommandConn) complete(pr *PendingResult, resp *Response, err error) {
	pr.timer.Stop()
	pr.resp, pr.err = resp, err
	close(pr.done)

	c.metrics.resolved(pr.Command, resultStatus(err), time.Since(pr.sentAt).Seconds())
}

func (c *CommandConn) failAll(err error) {
	c.pendMu.Lock()
	c.closed = true
	pending := c.pending
	c.pending = make(map[string]*PendingResult)
	c.pendMu.Unlock()

	for _, pr := range pending {
		c.complete(pr, nil, err)
	}

	if len(pending) > 0 {
		c.logger.Info("failed pending requests", "count", len(pending), "error", err)
	}
}

// Close закрывает соединение; ожидающие запросы получают ErrConnectionClosed.
func (c *CommandConn) Close() {
	c.t.close()
}

func (c *CommandConn) Done() <-chan struct{} {
	return c.t.Done()
}

func resultStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBrokerError):
		return "broker_error"
	case errors.Is(err, ErrRequestTimeout):
		return "timeout"
	case errors.Is(err, ErrConnectionClosed):
		return "closed"
	default:
		return "error"
	}
}
