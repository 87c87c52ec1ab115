package xapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const outboundQueueSize = 64

type outboundFrame struct {
	data   []byte
	result chan error
}

// transport владеет одним websocket соединением. Запись идёт только из
// writeLoop: отправители передают кадры через канал и никогда не пишут в
// сокет сами.
type transport struct {
	name   string
	conn   *websocket.Conn
	out    chan outboundFrame
	done   chan struct{}
	logger *slog.Logger

	readerDone chan struct{}
	closeOnce  sync.Once
	closing    atomic.Bool
	started    atomic.Bool
}

func dialTransport(ctx context.Context, name, rawURL string, cfg Config) (*transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	dialer := websocket.Dialer{
		Proxy:            nil,
		HandshakeTimeout: cfg.HandshakeTimeout,
		TLSClientConfig:  cfg.TLS,
	}

	logger := cfg.Logger.With(slog.String("connection", name))
	logger.Info("connecting to broker", slog.String("url", u.String()))

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s failed: %w", name, err)
	}

	logger.Info("connected to broker", "url", u.String())

	return &transport{
		name:       name,
		conn:       conn,
		out:        make(chan outboundFrame, outboundQueueSize),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
		logger:     logger,
	}, nil
}

// start запускает чтение и запись. onFrame вызывается в горутине чтения,
// onClose - один раз после её остановки.
func (t *transport) start(onFrame func(data []byte), onClose func()) {
	t.started.Store(true)

	go t.writeLoop()
	go t.readLoop(onFrame, onClose)
}

func (t *transport) readLoop(onFrame func(data []byte), onClose func()) {
	defer func() {
		t.shutdown()
		onClose()
		close(t.readerDone)
	}()

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if !t.closing.Load() && websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				t.logger.Error("read error", "error", err)
			} else {
				t.logger.Debug("reader stopped", "error", err)
			}

			return
		}

		onFrame(data)
	}
}

func (t *transport) writeLoop() {
	for {
		select {
		case f := <-t.out:
			err := t.conn.WriteMessage(websocket.TextMessage, f.data)
			if f.result != nil {
				f.result <- err
			}

			if err != nil {
				t.logger.Error("write error", "error", err)
				t.shutdown()

				return
			}

		case <-t.done:
			return
		}
	}
}

// write ждёт, пока кадр будет записан.
func (t *transport) write(ctx context.Context, data []byte) error {
	f := outboundFrame{data: data, result: make(chan error, 1)}

	select {
	case t.out <- f:
	case <-t.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-f.result:
		if err != nil {
			return fmt.Errorf("failed to write frame: %w", err)
		}

		return nil

	case <-t.done:
		select {
		case err := <-f.result:
			if err == nil {
				return nil
			}
		default:
		}

		return ErrConnectionClosed

	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue не ждёт записи.
func (t *transport) enqueue(ctx context.Context, data []byte) error {
	select {
	case <-t.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case t.out <- outboundFrame{data: data}:
		return nil
	case <-t.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *transport) shutdown() {
	t.closeOnce.Do(func() {
		close(t.done)
		_ = t.conn.Close()
	})
}

// close отправляет close frame и ждёт, пока горутина чтения выполнит onClose.
func (t *transport) close() {
	if t.closing.Swap(true) {
		if t.started.Load() {
			<-t.readerDone
		}

		return
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing")
	_ = t.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))

	t.shutdown()

	if t.started.Load() {
		<-t.readerDone
	}

	t.logger.Info("connection closed")
}

func (t *transport) Done() <-chan struct{} {
	return t.done
}
