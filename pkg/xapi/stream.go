package xapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// StreamCommand описывает поток брокера: команды подписки и отписки и
// команду, с которой приходят кадры данных.
type StreamCommand struct {
	Subscribe   string
	Unsubscribe string
	Data        string

	// UnsubscribeKeys - аргументы подписки, которые повторяются в кадре
	// отписки (stopTickPrices принимает только "symbol"). Брокер различает
	// подписки только по ним, поэтому и ключ подписки строится по ним:
	// потребители с тем же символом и другими параметрами разделяют одну
	// физическую подписку, параметры берутся у первого.
	UnsubscribeKeys []string
}

type subscriptionEntry struct {
	key         string
	cmd         StreamCommand
	unsubscribe []byte
	refs        int
	consumers   map[uint64]*MessageStream
}

// StreamConn ведёт учёт подписок потокового соединения: одна физическая
// подписка на ключ (команда, аргументы) и сколько угодно потребителей.
type StreamConn struct {
	t           *transport
	sessionID   string
	mailboxSize int
	logger      *slog.Logger
	metrics     *metrics

	mu      sync.Mutex
	entries map[string]*subscriptionEntry
	nextID  uint64
	closed  bool

	// кадры subscribe/unsubscribe в порядке переходов счётчика; в сокет их
	// передаёт controlLoop уже без мьютекса
	control      [][]byte
	controlReady chan struct{}
}

func newStreamConn(t *transport, sessionID string, cfg Config, m *metrics) *StreamConn {
	return &StreamConn{
		t:           t,
		sessionID:   sessionID,
		mailboxSize: cfg.MailboxSize,
		logger:      t.logger,
		metrics:     m,
		entries:     make(map[string]*subscriptionEntry),

		controlReady: make(chan struct{}, 1),
	}
}

func (s *StreamConn) start(onClose func()) {
	go s.controlLoop()

	s.t.start(s.dispatch, func() {
		s.closeAll(ErrConnectionClosed)

		if onClose != nil {
			onClose()
		}
	})
}

// Subscribe регистрирует потребителя для (cmd.Subscribe, args). Кадр
// subscribe отправляется только для первого потребителя ключа.
func (s *StreamConn) Subscribe(_ context.Context, cmd StreamCommand, args any, filter Filter) (*MessageStream, error) {
	if cmd.Subscribe == "" || cmd.Data == "" {
		return nil, fmt.Errorf("%w: stream command needs subscribe and data names", ErrInvalidArguments)
	}

	raw, err := encodeArguments(args)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe %s: %w", cmd.Subscribe, err)
	}

	key, err := subscriptionKey(cmd, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe %s: %w", cmd.Subscribe, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrConnectionClosed
	}

	select {
	case <-s.t.Done():
		return nil, ErrConnectionClosed
	default:
	}

	entry, ok := s.entries[key]
	if !ok {
		entry, err = s.newEntry(key, cmd, raw)
		if err != nil {
			return nil, err
		}

		subscribe, err := streamFrame(cmd.Subscribe, s.sessionID, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to subscribe %s: %w", cmd.Subscribe, err)
		}

		s.queueControl(subscribe)

		s.entries[key] = entry
		s.metrics.subscriptionAdded()
		s.logger.Info("subscribed", "command", cmd.Subscribe, "arguments", string(raw))
	}

	s.nextID++
	consumer := newMessageStream(s, key, s.nextID, filter, s.mailboxSize)

	entry.consumers[consumer.id] = consumer
	entry.refs++

	s.logger.Debug("consumer added", "command", cmd.Subscribe, "consumer", consumer.id, "refs", entry.refs)

	return consumer, nil
}

func (s *StreamConn) newEntry(key string, cmd StreamCommand, raw json.RawMessage) (*subscriptionEntry, error) {
	entry := &subscriptionEntry{
		key:       key,
		cmd:       cmd,
		consumers: make(map[uint64]*MessageStream),
	}

	if cmd.Unsubscribe == "" {
		return entry, nil
	}

	stopArgs, err := pickArguments(raw, cmd.UnsubscribeKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe %s: %w", cmd.Subscribe, err)
	}

	entry.unsubscribe, err = streamFrame(cmd.Unsubscribe, "", stopArgs)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe %s: %w", cmd.Subscribe, err)
	}

	return entry, nil
}

// release снимает одного потребителя; после последнего уходит unsubscribe.
func (s *StreamConn) release(key string, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil
	}

	if _, ok := entry.consumers[id]; !ok {
		return nil
	}

	delete(entry.consumers, id)
	entry.refs--

	s.logger.Debug("consumer removed", "command", entry.cmd.Subscribe, "consumer", id, "refs", entry.refs)

	if entry.refs > 0 {
		return nil
	}

	delete(s.entries, key)
	s.metrics.subscriptionRemoved()

	if s.closed || entry.unsubscribe == nil {
		return nil
	}

	s.logger.Info("unsubscribed", "command", entry.cmd.Unsubscribe)
	s.queueControl(entry.unsubscribe)

	return nil
}

// queueControl вызывается под s.mu и никогда не блокируется.
func (s *StreamConn) queueControl(frame []byte) {
	s.control = append(s.control, frame)

	select {
	case s.controlReady <- struct{}{}:
	default:
	}
}

// controlLoop передаёт кадры подписок писателю в порядке постановки. Пока
// писатель занят, ждёт только эта горутина: чтение и dispatch не стоят.
func (s *StreamConn) controlLoop() {
	for {
		select {
		case <-s.controlReady:
		case <-s.t.Done():
			return
		}

		for {
			s.mu.Lock()

			if len(s.control) == 0 {
				s.mu.Unlock()
				break
			}

			frame := s.control[0]
			s.control[0] = nil
			s.control = s.control[1:]

			s.mu.Unlock()

			if err := s.t.enqueue(context.Background(), frame); err != nil {
				if !errors.Is(err, ErrConnectionClosed) {
					s.logger.Error("failed to send subscription frame", "error", err)
				}

				return
			}
		}
	}
}

// dispatch раздаёт кадр потребителям всех подписок с той же командой данных.
// Подписки с общей командой данных различаются только фильтрами.
func (s *StreamConn) dispatch(data []byte) {
	msg, err := decodeStreamData(data)
	if err != nil {
		s.logger.Warn("dropping inbound frame", "error", err)
		s.metrics.discarded("stream", "malformed")

		return
	}

	s.metrics.streamMessage(msg.Command)

	s.mu.Lock()

	var targets []*MessageStream
	for _, entry := range s.entries {
		if entry.cmd.Data != msg.Command {
			continue
		}

		for _, c := range entry.consumers {
			targets = append(targets, c)
		}
	}

	s.mu.Unlock()

	if len(targets) == 0 {
		s.logger.Debug("no subscription for stream frame", "command", msg.Command)
		s.metrics.discarded("stream", "unrouted")

		return
	}

	for _, c := range targets {
		ok, err := c.filter.match(msg)
		if err != nil {
			s.logger.Warn("filter failed", "command", msg.Command, "consumer", c.id, "error", err)
		}

		if !ok {
			continue
		}

		if c.deliver(msg) {
			s.logger.Debug("mailbox full, dropped oldest frame", "command", msg.Command, "consumer", c.id)
			s.metrics.dropped(msg.Command)
		}
	}
}

// ping - keepalive потокового соединения.
func (s *StreamConn) ping(ctx context.Context) error {
	frame, err := streamFrame("ping", s.sessionID, nil)
	if err != nil {
		return err
	}

	return s.t.enqueue(ctx, frame)
}

// closeAll завершает всех потребителей с причиной cause.
func (s *StreamConn) closeAll(cause error) {
	s.mu.Lock()

	s.closed = true
	entries := s.entries
	s.entries = make(map[string]*subscriptionEntry)

	s.mu.Unlock()

	consumers := 0

	for _, entry := range entries {
		for _, c := range entry.consumers {
			c.end(cause)
			consumers++
		}

		s.metrics.subscriptionRemoved()
	}

	if consumers > 0 {
		s.logger.Info("ended stream consumers", "count", consumers, "error", cause)
	}
}

// Subscriptions возвращает число физических подписок.
func (s *StreamConn) Subscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Consumers возвращает число потребителей подписки (cmd, args).
func (s *StreamConn) Consumers(cmd StreamCommand, args any) int {
	raw, err := encodeArguments(args)
	if err != nil {
		return 0
	}

	key, err := subscriptionKey(cmd, raw)
	if err != nil {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok {
		return entry.refs
	}

	return 0
}

func (s *StreamConn) Close() {
	s.t.close()
}

func (s *StreamConn) Done() <-chan struct{} {
	return s.t.Done()
}

func subscriptionKey(cmd StreamCommand, raw json.RawMessage) (string, error) {
	if cmd.Unsubscribe != "" && len(cmd.UnsubscribeKeys) > 0 {
		picked, err := pickArguments(raw, cmd.UnsubscribeKeys)
		if err != nil {
			return "", err
		}

		raw = picked
	}

	canon, err := canonicalArguments(raw)
	if err != nil {
		return "", err
	}

	return cmd.Subscribe + " " + canon, nil
}

// pickArguments возвращает объект из перечисленных ключей raw.
func pickArguments(raw json.RawMessage, keys []string) (json.RawMessage, error) {
	if len(raw) == 0 || len(keys) == 0 {
		return nil, nil
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("failed to decode arguments: %w", err)
	}

	picked := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := all[k]; ok {
			picked[k] = v
		}
	}

	return json.Marshal(picked)
}
