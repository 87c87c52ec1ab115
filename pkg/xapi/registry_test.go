package xapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// idleTransport не пишет в сокет: всё, что уходит в out, ждёт читателя теста.
func idleTransport() *transport {
	return &transport{
		name:       "stream",
		out:        make(chan outboundFrame),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestStreamConn_BusyWriterDoesNotBlockRegistry(t *testing.T) {
	tr := idleTransport()
	defer close(tr.done)

	s := newStreamConn(tr, "sid", Config{MailboxSize: 4}, nil)
	go s.controlLoop()

	keepAlive := StreamCommand{Subscribe: "getKeepAlive", Unsubscribe: "stopKeepAlive", Data: "keepAlive"}

	finished := make(chan *MessageStream, 1)

	go func() {
		first, err := s.Subscribe(context.Background(), keepAlive, nil, All())
		if err != nil {
			finished <- nil
			return
		}

		second, err := s.Subscribe(context.Background(), keepAlive, nil, All())
		if err != nil {
			finished <- nil
			return
		}

		s.dispatch([]byte(`{"command":"keepAlive","data":{"timestamp":1}}`))

		_ = first.Close()
		finished <- second
	}()

	var second *MessageStream

	select {
	case second = <-finished:
		require.NotNil(t, second)
	case <-time.After(2 * time.Second):
		t.Fatal("registry blocked on the writer")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msg, err := second.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "keepAlive", msg.Command)

	require.NoError(t, second.Close())

	var frames []string

	for i := 0; i < 2; i++ {
		select {
		case f := <-tr.out:
			var frame map[string]any
			require.NoError(t, json.Unmarshal(f.data, &frame))
			frames = append(frames, frame["command"].(string))
		case <-time.After(2 * time.Second):
			t.Fatal("subscription frame was not handed to the writer")
		}
	}

	assert.Equal(t, []string{"getKeepAlive", "stopKeepAlive"}, frames)
}

func TestSubscriptionKey_UnsubscribeKeys(t *testing.T) {
	ticks := StreamCommand{
		Subscribe:       "getTickPrices",
		Unsubscribe:     "stopTickPrices",
		Data:            "tickPrices",
		UnsubscribeKeys: []string{"symbol"},
	}

	a, err := subscriptionKey(ticks, json.RawMessage(`{"symbol":"EURUSD","minArrivalTime":1}`))
	require.NoError(t, err)

	b, err := subscriptionKey(ticks, json.RawMessage(`{"maxLevel":2,"symbol":"EURUSD"}`))
	require.NoError(t, err)

	c, err := subscriptionKey(ticks, json.RawMessage(`{"symbol":"GBPUSD"}`))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	candles := StreamCommand{Subscribe: "getCandles", Unsubscribe: "stopCandles", Data: "candle"}

	d, err := subscriptionKey(candles, json.RawMessage(`{"symbol":"EURUSD","x":1}`))
	require.NoError(t, err)

	e, err := subscriptionKey(candles, json.RawMessage(`{"symbol":"EURUSD","x":2}`))
	require.NoError(t, err)

	assert.NotEqual(t, d, e)
}
