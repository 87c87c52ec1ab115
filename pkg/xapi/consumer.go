package xapi

import (
	"context"
	"io"
	"sync"
)

// MessageStream - один потребитель подписки. Кадры, прошедшие фильтр,
// попадают в ограниченный ящик; при переполнении выбрасывается самый старый,
// чтобы горутина чтения никогда не ждала потребителя.
type MessageStream struct {
	key    string
	id     uint64
	filter Filter
	owner  *StreamConn

	mu      sync.Mutex
	queue   []*StreamData
	limit   int
	notify  chan struct{}
	ended   bool
	err     error
	dropped uint64

	closeOnce sync.Once
	done      chan struct{}
}

func newMessageStream(owner *StreamConn, key string, id uint64, filter Filter, limit int) *MessageStream {
	return &MessageStream{
		key:    key,
		id:     id,
		filter: filter,
		owner:  owner,
		limit:  limit,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// deliver сообщает, пришлось ли вытеснить старый кадр.
func (s *MessageStream) deliver(msg *StreamData) (evicted bool) {
	s.mu.Lock()

	if s.ended {
		s.mu.Unlock()
		return false
	}

	if len(s.queue) >= s.limit {
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.dropped++
		evicted = true
	}

	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}

	return evicted
}

// Next возвращает следующий кадр. После завершения потока и опустошения
// ящика - io.EOF, причину возвращает Err.
func (s *MessageStream) Next(ctx context.Context) (*StreamData, error) {
	for {
		s.mu.Lock()

		if len(s.queue) > 0 {
			msg := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()

			return msg, nil
		}

		if s.ended {
			s.mu.Unlock()
			return nil, io.EOF
		}

		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-s.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Err: nil пока поток жив, ErrStreamClosed после Close, ErrConnectionClosed
// после потери соединения.
func (s *MessageStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

func (s *MessageStream) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dropped
}

func (s *MessageStream) Filter() Filter {
	return s.filter
}

func (s *MessageStream) Done() <-chan struct{} {
	return s.done
}

// Close снимает потребителя с подписки; повторный вызов ничего не делает.
// Unsubscribe уходит, когда закрывается последний потребитель.
func (s *MessageStream) Close() error {
	var err error

	s.closeOnce.Do(func() {
		s.end(ErrStreamClosed)
		err = s.owner.release(s.key, s.id)
	})

	return err
}

// end прекращает доставку, уже поставленные кадры остаются читаемыми.
func (s *MessageStream) end(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}

	s.ended = true
	s.err = cause
	close(s.done)
}
