// Package xapitest - брокер в памяти процесса с командным и потоковым
// эндпоинтами для тестов клиентов xapi.
package xapitest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/LLIEPJIOK/xapi/pkg/xapi"
)

const (
	UserID          = "1000001"
	Password        = "secret"
	StreamSessionID = "8469308861804289383"
)

// Handler отвечает на одну команду. *xapi.BrokerError превращается в ответ
// status=false с его кодом, любая другая ошибка - в EX000.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

type peer struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (p *peer) write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ws.WriteMessage(websocket.TextMessage, data)
}

// Broker записывает все полученные кадры, чтобы тесты могли проверять, что
// именно клиент отправил на провод.
type Broker struct {
	upgrader websocket.Upgrader
	srv      *httptest.Server
	logger   *slog.Logger

	handlers map[string]Handler
	mu       sync.RWMutex

	peersMu       sync.Mutex
	commandPeers  map[*peer]struct{}
	streamPeers   map[*peer]struct{}
	commands      []xapi.Command
	streamFrames  []map[string]any
	streamConnect int
}

func NewBroker() *Broker {
	b := &Broker{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:       slog.Default().With(slog.String("component", "xapitest")),
		handlers:     make(map[string]Handler),
		commandPeers: make(map[*peer]struct{}),
		streamPeers:  make(map[*peer]struct{}),
	}

	b.Handle("login", b.login)
	b.Handle("logout", func(context.Context, json.RawMessage) (any, error) { return nil, nil })
	b.Handle("ping", func(context.Context, json.RawMessage) (any, error) { return nil, nil })

	mux := http.NewServeMux()
	mux.HandleFunc("/command", b.serveCommand)
	mux.HandleFunc("/stream", b.serveStream)

	b.srv = httptest.NewServer(mux)

	return b
}

func (b *Broker) Handle(command string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[command] = handler
}

func (b *Broker) getHandler(command string) (Handler, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h, ok := b.handlers[command]
	return h, ok
}

func (b *Broker) CommandURL() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http") + "/command"
}

func (b *Broker) StreamURL() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http") + "/stream"
}

// Config - конфигурация клиента по умолчанию, направленная на этот брокер.
func (b *Broker) Config() xapi.Config {
	return xapi.DefaultConfig(b.CommandURL(), b.StreamURL())
}

func (b *Broker) Credentials() xapi.Credentials {
	return xapi.Credentials{UserID: UserID, Password: Password}
}

func (b *Broker) login(_ context.Context, args json.RawMessage) (any, error) {
	var creds struct {
		UserID   string `json:"userId"`
		Password string `json:"password"`
	}

	if err := json.Unmarshal(args, &creds); err != nil {
		return nil, &xapi.BrokerError{Code: "BE118", Description: "invalid login arguments"}
	}

	if creds.UserID != UserID || creds.Password != Password {
		return nil, &xapi.BrokerError{Code: "BE005", Description: "userPasswordCheck: Invalid login or password"}
	}

	return nil, nil
}

func (b *Broker) serveCommand(w http.ResponseWriter, r *http.Request) {
	p, ok := b.accept(w, r, b.commandPeers)
	if !ok {
		return
	}
	defer b.forget(p, b.commandPeers)

	for {
		_, data, err := p.ws.ReadMessage()
		if err != nil {
			return
		}

		var cmd xapi.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			b.logger.Error("failed to unmarshal command", "error", err)
			continue
		}

		b.peersMu.Lock()
		b.commands = append(b.commands, cmd)
		b.peersMu.Unlock()

		go b.process(r.Context(), p, cmd)
	}
}

func (b *Broker) process(ctx context.Context, p *peer, cmd xapi.Command) {
	resp := xapi.Response{CustomTag: cmd.CustomTag}

	handler, ok := b.getHandler(cmd.Command)
	if !ok {
		resp.ErrorCode = "EX000"
		resp.ErrorDescr = "unknown command " + cmd.Command
		b.send(p, resp)

		return
	}

	result, err := handler(ctx, cmd.Arguments)
	if err != nil {
		var be *xapi.BrokerError
		if errors.As(err, &be) {
			resp.ErrorCode, resp.ErrorDescr = be.Code, be.Description
		} else {
			resp.ErrorCode, resp.ErrorDescr = "EX000", err.Error()
		}

		b.send(p, resp)

		return
	}

	resp.Status = true

	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			resp.Status = false
			resp.ErrorCode, resp.ErrorDescr = "EX000", err.Error()
		}
		resp.ReturnData = data
	}

	if cmd.Command == "login" && resp.Status {
		resp.StreamSessionID = StreamSessionID
	}

	b.send(p, resp)
}

func (b *Broker) send(p *peer, resp xapi.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		b.logger.Error("failed to marshal response", "error", err)
		return
	}

	if err := p.write(data); err != nil {
		b.logger.Debug("failed to write response", "error", err)
	}
}

func (b *Broker) serveStream(w http.ResponseWriter, r *http.Request) {
	p, ok := b.accept(w, r, b.streamPeers)
	if !ok {
		return
	}
	defer b.forget(p, b.streamPeers)

	for {
		_, data, err := p.ws.ReadMessage()
		if err != nil {
			return
		}

		var frame map[string]any
		if err := json.Unmarshal(data, &frame); err != nil {
			b.logger.Error("failed to unmarshal stream frame", "error", err)
			continue
		}

		b.peersMu.Lock()
		b.streamFrames = append(b.streamFrames, frame)
		b.peersMu.Unlock()
	}
}

func (b *Broker) accept(w http.ResponseWriter, r *http.Request, peers map[*peer]struct{}) (*peer, bool) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("failed to upgrade connection", "error", err)
		return nil, false
	}

	p := &peer{ws: ws}

	b.peersMu.Lock()
	peers[p] = struct{}{}
	if r.URL.Path == "/stream" {
		b.streamConnect++
	}
	b.peersMu.Unlock()

	return p, true
}

func (b *Broker) forget(p *peer, peers map[*peer]struct{}) {
	b.peersMu.Lock()
	delete(peers, p)
	b.peersMu.Unlock()

	_ = p.ws.Close()
}

// Push отправляет {"command": command, "data": data} во все потоковые соединения.
func (b *Broker) Push(command string, data any) error {
	frame, err := json.Marshal(map[string]any{"command": command, "data": data})
	if err != nil {
		return err
	}

	return b.PushRaw(frame)
}

// PushRaw пишет data как есть во все потоковые соединения.
func (b *Broker) PushRaw(data []byte) error {
	return b.broadcast(b.streamPeers, data)
}

// SendRaw пишет data как есть во все командные соединения.
func (b *Broker) SendRaw(data []byte) error {
	return b.broadcast(b.commandPeers, data)
}

func (b *Broker) broadcast(peers map[*peer]struct{}, data []byte) error {
	b.peersMu.Lock()
	targets := make([]*peer, 0, len(peers))
	for p := range peers {
		targets = append(targets, p)
	}
	b.peersMu.Unlock()

	var errs []error
	for _, p := range targets {
		if err := p.write(data); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// DropCommand рвёт командные соединения без close handshake.
func (b *Broker) DropCommand() {
	b.drop(b.commandPeers)
}

// DropStream рвёт потоковые соединения без close handshake.
func (b *Broker) DropStream() {
	b.drop(b.streamPeers)
}

func (b *Broker) drop(peers map[*peer]struct{}) {
	b.peersMu.Lock()
	defer b.peersMu.Unlock()

	for p := range peers {
		_ = p.ws.UnderlyingConn().Close()
	}
}

// Commands возвращает полученные команды в порядке прихода.
func (b *Broker) Commands(name string) []xapi.Command {
	b.peersMu.Lock()
	defer b.peersMu.Unlock()

	var out []xapi.Command
	for _, c := range b.commands {
		if name == "" || c.Command == name {
			out = append(out, c)
		}
	}

	return out
}

// StreamFrames возвращает полученные кадры с командой name, при пустом name - все.
func (b *Broker) StreamFrames(name string) []map[string]any {
	b.peersMu.Lock()
	defer b.peersMu.Unlock()

	var out []map[string]any
	for _, f := range b.streamFrames {
		if name == "" || f["command"] == name {
			out = append(out, f)
		}
	}

	return out
}

func (b *Broker) StreamConnections() int {
	b.peersMu.Lock()
	defer b.peersMu.Unlock()

	return len(b.streamPeers)
}

// StreamDials считает принятые потоковые соединения, включая закрытые.
func (b *Broker) StreamDials() int {
	b.peersMu.Lock()
	defer b.peersMu.Unlock()

	return b.streamConnect
}

func (b *Broker) Close() {
	b.DropCommand()
	b.DropStream()
	b.srv.Close()
}
