package xapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LLIEPJIOK/xapi/pkg/xapi"
	"github.com/LLIEPJIOK/xapi/pkg/xapi/xapitest"
)

const waitFor = 2 * time.Second

func dial(t *testing.T, b *xapitest.Broker, mutate ...func(*xapi.Config)) *xapi.Session {
	t.Helper()

	cfg := b.Config()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, fn := range mutate {
		fn(&cfg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()

	session, err := xapi.Dial(ctx, cfg, b.Credentials())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close(context.Background())
	})

	return session
}

func TestDial_Login(t *testing.T) {
	broker := xapitest.NewBroker()
	defer broker.Close()

	session := dial(t, broker, func(c *xapi.Config) {
		c.AppID = "app-1"
		c.AppName = "tests"
	})

	assert.Equal(t, xapi.StateActive, session.State())
	assert.Equal(t, xapitest.StreamSessionID, session.StreamSessionID())

	logins := broker.Commands("login")
	require.Len(t, logins, 1)
	assert.JSONEq(t, `{"userId":"1000001","password":"secret","appId":"app-1","appName":"tests"}`, string(logins[0].Arguments))

	require.Eventually(t, func() bool { return broker.StreamConnections() == 1 }, waitFor, 10*time.Millisecond)
}

func TestDial_LoginFailed(t *testing.T) {
	broker := xapitest.NewBroker()
	defer broker.Close()

	cfg := broker.Config()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	session, err := xapi.Dial(context.Background(), cfg, xapi.Credentials{UserID: "1", Password: "wrong"})
	require.Error(t, err)
	assert.Nil(t, session)

	assert.ErrorIs(t, err, xapi.ErrLoginFailed)
	assert.ErrorIs(t, err, xapi.ErrBrokerError)

	be, ok := xapi.IsBrokerError(err)
	require.True(t, ok)
	assert.Equal(t, "BE005", be.Code)

	// потоковое соединение не открывается без успешного login
	assert.Equal(t, 0, broker.StreamDials())
}

func TestDial_Unreachable(t *testing.T) {
	cfg := xapi.DefaultConfig("ws://127.0.0.1:1/command", "ws://127.0.0.1:1/stream")
	cfg.HandshakeTimeout = 200 * time.Millisecond

	_, err := xapi.Dial(context.Background(), cfg, xapi.Credentials{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, xapi.ErrLoginFailed)
}

func TestDial_InvalidConfig(t *testing.T) {
	_, err := xapi.Dial(context.Background(), xapi.Config{}, xapi.Credentials{})
	require.Error(t, err)
}

func TestSession_Keepalive(t *testing.T) {
	broker := xapitest.NewBroker()
	defer broker.Close()

	dial(t, broker, func(c *xapi.Config) {
		c.PingInterval = 20 * time.Millisecond
	})

	require.Eventually(t, func() bool {
		return len(broker.Commands("ping")) >= 2 && len(broker.StreamFrames("ping")) >= 2
	}, waitFor, 10*time.Millisecond)

	for _, f := range broker.StreamFrames("ping") {
		assert.Equal(t, xapitest.StreamSessionID, f["streamSessionId"])
	}
}

func TestSession_KeepaliveFailureIsNotFatal(t *testing.T) {
	broker := xapitest.NewBroker()
	defer broker.Close()

	broker.Handle("ping", func(context.Context, json.RawMessage) (any, error) {
		return nil, &xapi.BrokerError{Code: "EX000", Description: "no pings today"}
	})

	session := dial(t, broker, func(c *xapi.Config) {
		c.PingInterval = 20 * time.Millisecond
	})

	require.Eventually(t, func() bool { return len(broker.Commands("ping")) >= 3 }, waitFor, 10*time.Millisecond)
	assert.Equal(t, xapi.StateActive, session.State())
}

func TestSession_CloseLogsOut(t *testing.T) {
	broker := xapitest.NewBroker()
	defer broker.Close()

	session := dial(t, broker)

	require.NoError(t, session.Close(context.Background()))
	assert.Equal(t, xapi.StateClosed, session.State())
	assert.Len(t, broker.Commands("logout"), 1)
	assert.NoError(t, session.Err())

	select {
	case <-session.Done():
	default:
		t.Fatal("done channel is not closed")
	}

	// повторный Close ничего не делает
	require.NoError(t, session.Close(context.Background()))
	assert.Len(t, broker.Commands("logout"), 1)

	_, err := session.Request(context.Background(), "getVersion", nil)
	assert.ErrorIs(t, err, xapi.ErrConnectionClosed)

	_, err = session.Subscribe(context.Background(), keepAlive, nil, xapi.All())
	assert.ErrorIs(t, err, xapi.ErrConnectionClosed)
}

func TestSession_CloseWithUnresponsiveLogout(t *testing.T) {
	broker := xapitest.NewBroker()
	defer broker.Close()

	release := make(chan struct{})
	defer close(release)

	broker.Handle("logout", func(context.Context, json.RawMessage) (any, error) {
		<-release
		return nil, nil
	})

	session := dial(t, broker, func(c *xapi.Config) {
		c.LogoutTimeout = 50 * time.Millisecond
	})

	start := time.Now()
	require.NoError(t, session.Close(context.Background()))

	assert.Less(t, time.Since(start), waitFor)
	assert.Equal(t, xapi.StateClosed, session.State())
}

func TestSession_ConnectionLost(t *testing.T) {
	broker := xapitest.NewBroker()
	defer broker.Close()

	release := make(chan struct{})
	defer close(release)

	broker.Handle("slow", func(context.Context, json.RawMessage) (any, error) {
		<-release
		return nil, nil
	})

	session := dial(t, broker)
	ctx := context.Background()

	const pendingCount = 3

	pending := make([]*xapi.PendingResult, 0, pendingCount)
	for i := 0; i < pendingCount; i++ {
		pr, err := session.SendCommand(ctx, "slow", nil)
		require.NoError(t, err)
		pending = append(pending, pr)
	}

	consumers := []*xapi.MessageStream{}
	for i := 0; i < 2; i++ {
		ms, err := session.Subscribe(ctx, keepAlive, nil, xapi.All())
		require.NoError(t, err)
		consumers = append(consumers, ms)
	}

	require.Eventually(t, func() bool { return len(broker.Commands("slow")) == pendingCount }, waitFor, 10*time.Millisecond)

	broker.DropCommand()

	waitCtx, cancel := context.WithTimeout(ctx, waitFor)
	defer cancel()

	for _, pr := range pending {
		_, err := pr.Await(waitCtx)
		assert.ErrorIs(t, err, xapi.ErrConnectionClosed)
	}

	for _, ms := range consumers {
		_, err := ms.Next(waitCtx)
		assert.ErrorIs(t, err, io.EOF)
		assert.ErrorIs(t, ms.Err(), xapi.ErrConnectionClosed)
	}

	select {
	case <-session.Done():
	case <-waitCtx.Done():
		t.Fatal("session did not close")
	}

	assert.Equal(t, xapi.StateClosed, session.State())
	assert.ErrorIs(t, session.Err(), xapi.ErrConnectionClosed)

	// logout не отправляется после потери соединения
	assert.Empty(t, broker.Commands("logout"))
}

func TestSession_StreamLost(t *testing.T) {
	broker := xapitest.NewBroker()
	defer broker.Close()

	session := dial(t, broker)

	require.Eventually(t, func() bool { return broker.StreamConnections() == 1 }, waitFor, 10*time.Millisecond)
	broker.DropStream()

	select {
	case <-session.Done():
	case <-time.After(waitFor):
		t.Fatal("session did not close")
	}

	assert.True(t, errors.Is(session.Err(), xapi.ErrConnectionClosed))

	_, err := session.Request(context.Background(), "ping", nil)
	assert.ErrorIs(t, err, xapi.ErrConnectionClosed)
}

func TestDial_StreamLostBeforeActive(t *testing.T) {
	broker := xapitest.NewBroker()
	defer broker.Close()

	var lost *xapi.Session

	xapi.SetBeforeActivate(t, func(s *xapi.Session) {
		lost = s

		require.Eventually(t, func() bool {
			broker.DropStream()

			select {
			case <-s.Streams().Done():
				return true
			default:
				return false
			}
		}, waitFor, 10*time.Millisecond)
	})

	cfg := broker.Config()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()

	session, err := xapi.Dial(ctx, cfg, broker.Credentials())
	require.ErrorIs(t, err, xapi.ErrConnectionClosed)
	assert.Nil(t, session)

	require.NotNil(t, lost)
	assert.Equal(t, xapi.StateClosed, lost.State())
	assert.ErrorIs(t, lost.Err(), xapi.ErrConnectionClosed)

	select {
	case <-lost.Done():
	default:
		t.Fatal("session left open")
	}

	select {
	case <-lost.Commands().Done():
	case <-time.After(waitFor):
		t.Fatal("command connection left open")
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "active", xapi.StateActive.String())
	assert.Equal(t, "closed", xapi.StateClosed.String())
	assert.Equal(t, "State(42)", xapi.State(42).String())
}
