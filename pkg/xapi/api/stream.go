package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/LLIEPJIOK/xapi/pkg/xapi"
)

// DataStream декодирует data каждого кадра MessageStream в T.
type DataStream[T any] struct {
	*xapi.MessageStream
}

func NewDataStream[T any](ms *xapi.MessageStream) *DataStream[T] {
	return &DataStream[T]{MessageStream: ms}
}

// Next: кадр, который не декодируется, даёт ошибку с ErrDecode, поток при
// этом остаётся рабочим.
func (d *DataStream[T]) Next(ctx context.Context) (T, error) {
	var v T

	msg, err := d.MessageStream.Next(ctx)
	if err != nil {
		return v, err
	}

	if err := json.Unmarshal(msg.Data, &v); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %s: %w", ErrDecode, msg.Command, err)
	}

	return v, nil
}

// Subscribe открывает типизированный поток; filters добавляются к фильтру по
// команде данных.
func Subscribe[T any](
	ctx context.Context,
	s Subscriber,
	cmd xapi.StreamCommand,
	args any,
	filters ...xapi.Filter,
) (*DataStream[T], error) {
	filter := xapi.AllOf(append([]xapi.Filter{xapi.ByCommand(cmd.Data)}, filters...)...)

	ms, err := s.Subscribe(ctx, cmd, args, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Subscribe, err)
	}

	return NewDataStream[T](ms), nil
}

func (c *Client) SubscribeKeepAlive(ctx context.Context) (*DataStream[KeepAliveData], error) {
	return Subscribe[KeepAliveData](ctx, c, StreamKeepAlive, nil)
}

func (c *Client) SubscribeBalance(ctx context.Context) (*DataStream[BalanceData], error) {
	return Subscribe[BalanceData](ctx, c, StreamBalance, nil)
}

func (c *Client) SubscribeNews(ctx context.Context) (*DataStream[NewsData], error) {
	return Subscribe[NewsData](ctx, c, StreamNews, nil)
}

func (c *Client) SubscribeTrades(ctx context.Context) (*DataStream[TradeData], error) {
	return Subscribe[TradeData](ctx, c, StreamTrades, nil)
}

func (c *Client) SubscribeProfits(ctx context.Context) (*DataStream[ProfitData], error) {
	return Subscribe[ProfitData](ctx, c, StreamProfits, nil)
}

// SubscribeTradeStatus присылает итоги заявок, отправленных TradeTransaction.
func (c *Client) SubscribeTradeStatus(ctx context.Context, filters ...xapi.Filter) (*DataStream[TradeStatusData], error) {
	return Subscribe[TradeStatusData](ctx, c, StreamTradeStatus, nil, filters...)
}

// SubscribeTickPrices: кадры всех символов приходят с командой tickPrices,
// поэтому символ отбирается фильтром. Подписки на один символ разделяют одну
// физическую подписку, MinArrivalTime и MaxLevel берутся у первой.
func (c *Client) SubscribeTickPrices(
	ctx context.Context,
	req TickPricesSubscribe,
	filters ...xapi.Filter,
) (*DataStream[TickPricesData], error) {
	filters = append([]xapi.Filter{xapi.ByField("symbol", req.Symbol)}, filters...)

	return Subscribe[TickPricesData](ctx, c, StreamTickPrices, req, filters...)
}

func (c *Client) SubscribeCandles(ctx context.Context, symbol string, filters ...xapi.Filter) (*DataStream[CandleData], error) {
	filters = append([]xapi.Filter{xapi.ByField("symbol", symbol)}, filters...)

	return Subscribe[CandleData](ctx, c, StreamCandles, SymbolRequest{Symbol: symbol}, filters...)
}
