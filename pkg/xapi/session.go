package xapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateActive
	StateClosingDown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateClosingDown:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type loginArguments struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
	AppID    string `json:"appId,omitempty"`
	AppName  string `json:"appName,omitempty"`
}

// Session владеет командным и потоковым соединениями одного входа в систему.
// Dial возвращает сессию только в состоянии Active; Close отправляет logout
// и закрывает оба соединения.
type Session struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics

	cmd    *CommandConn
	stream *StreamConn

	state     atomic.Int32
	stop      context.CancelFunc
	keepalive *errgroup.Group

	closeOnce sync.Once
	done      chan struct{}
	errMu     sync.Mutex
	err       error
}

// Dial подключается, выполняет login и открывает потоковое соединение с
// полученным streamSessionId. При любой ошибке всё открытое закрывается.
func Dial(ctx context.Context, cfg Config, creds Credentials) (*Session, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	m, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	s := &Session{
		cfg:     cfg,
		logger:  cfg.Logger,
		metrics: m,
		done:    make(chan struct{}),
	}

	s.setState(StateConnecting)

	ct, err := dialTransport(ctx, "command", cfg.CommandURL, cfg)
	if err != nil {
		s.setState(StateClosed)
		return nil, err
	}

	s.cmd = newCommandConn(ct, cfg, m)
	s.cmd.start(s.connectionLost("command"))

	s.setState(StateAuthenticating)

	sessionID, err := s.login(ctx, creds)
	if err != nil {
		s.cmd.Close()
		s.setState(StateClosed)

		return nil, err
	}

	st, err := dialTransport(ctx, "stream", cfg.StreamURL, cfg)
	if err != nil {
		s.logout(ctx)
		s.cmd.Close()
		s.setState(StateClosed)

		return nil, err
	}

	s.stream = newStreamConn(st, sessionID, cfg, m)
	s.stream.start(s.connectionLost("stream"))

	kctx, stop := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(kctx)

	g.Go(func() error {
		return s.keepaliveLoop(gctx, "command", s.pingCommand)
	})
	g.Go(func() error {
		return s.keepaliveLoop(gctx, "stream", s.stream.ping)
	})

	s.stop = stop
	s.keepalive = g

	if beforeActivate != nil {
		beforeActivate(s)
	}

	s.setState(StateActive)

	// соединение, закрывшееся до Active, не прошло CAS в connectionLost
	if name, lost := s.lostConnection(); lost {
		s.connectionLost(name)()
		<-s.done

		return nil, fmt.Errorf("%s connection: %w", name, ErrConnectionClosed)
	}

	s.logger.Info("session active", "user", creds.UserID)

	return s, nil
}

// beforeActivate вызывается в Dial перед переходом в Active; задаётся в тестах.
var beforeActivate func(*Session)

func (s *Session) lostConnection() (string, bool) {
	select {
	case <-s.cmd.Done():
		return "command", true
	case <-s.stream.Done():
		return "stream", true
	default:
		return "", false
	}
}

func (s *Session) login(ctx context.Context, creds Credentials) (string, error) {
	args := loginArguments{
		UserID:   creds.UserID,
		Password: creds.Password,
		AppID:    s.cfg.AppID,
		AppName:  s.cfg.AppName,
	}

	resp, err := s.cmd.Request(ctx, "login", args)
	if err != nil {
		s.logger.Error("login failed", "user", creds.UserID, "error", err)
		return "", fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	if resp.StreamSessionID == "" {
		return "", fmt.Errorf("%w: response has no streamSessionId", ErrLoginFailed)
	}

	return resp.StreamSessionID, nil
}

func (s *Session) logout(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LogoutTimeout)
	defer cancel()

	if _, err := s.cmd.Request(ctx, "logout", nil); err != nil {
		s.logger.Warn("logout failed", "error", err)
		return
	}

	s.logger.Debug("logged out")
}

func (s *Session) pingCommand(ctx context.Context) error {
	_, err := s.cmd.Request(ctx, "ping", nil)
	return err
}

// keepaliveLoop: неудачный ping логируется и повторяется на следующем тике.
func (s *Session) keepaliveLoop(ctx context.Context, name string, ping func(context.Context) error) error {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := ping(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			s.logger.Warn("keepalive failed", "connection", name, "error", err)
			s.metrics.keepaliveFailed(name)

			continue
		}

		s.logger.Debug("keepalive sent", "connection", name)
	}
}

// connectionLost - хук onClose соединения. Потеря любого из двух соединений
// завершает активную сессию.
func (s *Session) connectionLost(name string) func() {
	return func() {
		if !s.state.CompareAndSwap(int32(StateActive), int32(StateClosingDown)) {
			return
		}

		s.logger.Error("connection lost, closing session", "connection", name)

		// хук выполняется в горутине чтения, которая сама ждёт закрытия
		go s.shutdown(context.Background(), ErrConnectionClosed, false)
	}
}

// Close отправляет logout (без гарантий, не дольше ctx и LogoutTimeout),
// останавливает keepalive и закрывает оба соединения. Потребители видят
// конец потока, ожидающие запросы получают ErrConnectionClosed.
func (s *Session) Close(ctx context.Context) error {
	s.shutdown(ctx, nil, true)
	return nil
}

func (s *Session) shutdown(ctx context.Context, cause error, logout bool) {
	s.closeOnce.Do(func() {
		s.setState(StateClosingDown)

		if logout {
			s.logout(ctx)
		}

		s.stop()
		if err := s.keepalive.Wait(); err != nil {
			s.logger.Warn("keepalive stopped with error", "error", err)
		}

		s.stream.Close()
		s.cmd.Close()

		s.errMu.Lock()
		s.err = cause
		s.errMu.Unlock()

		s.setState(StateClosed)
		close(s.done)

		s.logger.Info("session closed")
	})
}

func (s *Session) setState(st State) {
	old := State(s.state.Swap(int32(st)))
	if old != st {
		s.logger.Debug("session state changed", "from", old.String(), "to", st.String())
	}
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Done закрывается после Close или потери соединения.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err равен ErrConnectionClosed, если сессия закончилась потерей соединения.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()

	return s.err
}

func (s *Session) StreamSessionID() string {
	return s.stream.sessionID
}

func (s *Session) Commands() *CommandConn {
	return s.cmd
}

func (s *Session) Streams() *StreamConn {
	return s.stream
}

func (s *Session) SendCommand(ctx context.Context, name string, args any) (*PendingResult, error) {
	return s.cmd.SendCommand(ctx, name, args)
}

func (s *Session) Request(ctx context.Context, name string, args any) (*Response, error) {
	return s.cmd.Request(ctx, name, args)
}

func (s *Session) RequestTyped(ctx context.Context, name string, args any, out any) error {
	return s.cmd.RequestTyped(ctx, name, args, out)
}

func (s *Session) Subscribe(ctx context.Context, cmd StreamCommand, args any, filter Filter) (*MessageStream, error) {
	if st := s.State(); st != StateActive {
		return nil, fmt.Errorf("%w: session is %s", ErrConnectionClosed, st)
	}

	return s.stream.Subscribe(ctx, cmd, args, filter)
}
