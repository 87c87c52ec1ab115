package api

import (
	"context"
	"fmt"

	"github.com/LLIEPJIOK/xapi/pkg/xapi"
)

// Requester - командная сторона сессии.
type Requester interface {
	RequestTyped(ctx context.Context, name string, args any, out any) error
}

// Subscriber - потоковая сторона сессии.
type Subscriber interface {
	Subscribe(ctx context.Context, cmd xapi.StreamCommand, args any, filter xapi.Filter) (*xapi.MessageStream, error)
}

// Client даёт типизированные методы поверх сессии.
type Client struct {
	*xapi.Session
}

func New(session *xapi.Session) *Client {
	return &Client{Session: session}
}

func Dial(ctx context.Context, cfg xapi.Config, creds xapi.Credentials) (*Client, error) {
	session, err := xapi.Dial(ctx, cfg, creds)
	if err != nil {
		return nil, err
	}

	return New(session), nil
}

// Call отправляет command и декодирует returnData в Resp.
func Call[Resp any](ctx context.Context, r Requester, command string, args any) (Resp, error) {
	var resp Resp

	if err := r.RequestTyped(ctx, command, args, &resp); err != nil {
		var zero Resp
		return zero, fmt.Errorf("%s: %w", command, err)
	}

	return resp, nil
}

func callRef[Resp any](ctx context.Context, r Requester, command string, args any) (*Resp, error) {
	resp, err := Call[Resp](ctx, r, command, args)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *Client) GetVersion(ctx context.Context) (*VersionResponse, error) {
	return callRef[VersionResponse](ctx, c, CommandGetVersion, nil)
}

func (c *Client) GetServerTime(ctx context.Context) (*ServerTimeResponse, error) {
	return callRef[ServerTimeResponse](ctx, c, CommandGetServerTime, nil)
}

func (c *Client) GetSymbol(ctx context.Context, symbol string) (*SymbolRecord, error) {
	return callRef[SymbolRecord](ctx, c, CommandGetSymbol, SymbolRequest{Symbol: symbol})
}

func (c *Client) GetAllSymbols(ctx context.Context) ([]SymbolRecord, error) {
	return Call[[]SymbolRecord](ctx, c, CommandGetAllSymbols, nil)
}

func (c *Client) GetCurrentUserData(ctx context.Context) (*UserDataResponse, error) {
	return callRef[UserDataResponse](ctx, c, CommandGetCurrentUserData, nil)
}

func (c *Client) GetMarginLevel(ctx context.Context) (*MarginLevelResponse, error) {
	return callRef[MarginLevelResponse](ctx, c, CommandGetMarginLevel, nil)
}

func (c *Client) GetTickPrices(ctx context.Context, req TickPricesRequest) ([]TickRecord, error) {
	resp, err := Call[TickPricesResponse](ctx, c, CommandGetTickPrices, req)
	if err != nil {
		return nil, err
	}

	return resp.Quotations, nil
}

func (c *Client) GetCalendar(ctx context.Context) ([]CalendarRecord, error) {
	return Call[[]CalendarRecord](ctx, c, CommandGetCalendar, nil)
}

// GetChartLastRequest возвращает свечи от info.Start до текущего момента.
func (c *Client) GetChartLastRequest(ctx context.Context, info ChartLastInfoRecord) (*ChartResponse, error) {
	return callRef[ChartResponse](ctx, c, CommandGetChartLastRequest, chartRequest[ChartLastInfoRecord]{Info: info})
}

func (c *Client) GetChartRangeRequest(ctx context.Context, info ChartRangeInfoRecord) (*ChartResponse, error) {
	return callRef[ChartResponse](ctx, c, CommandGetChartRangeRequest, chartRequest[ChartRangeInfoRecord]{Info: info})
}

func (c *Client) GetCommissionDef(ctx context.Context, symbol string, volume float64) (*CommissionDefResponse, error) {
	return callRef[CommissionDefResponse](ctx, c, CommandGetCommissionDef, SymbolVolumeRequest{Symbol: symbol, Volume: volume})
}

func (c *Client) GetIbsHistory(ctx context.Context, start, end int64) ([]IBRecord, error) {
	return Call[[]IBRecord](ctx, c, CommandGetIbsHistory, TimeRangeRequest{Start: start, End: end})
}

func (c *Client) GetMarginTrade(ctx context.Context, symbol string, volume float64) (*MarginTradeResponse, error) {
	return callRef[MarginTradeResponse](ctx, c, CommandGetMarginTrade, SymbolVolumeRequest{Symbol: symbol, Volume: volume})
}

func (c *Client) GetNews(ctx context.Context, start, end int64) ([]NewsBodyRecord, error) {
	return Call[[]NewsBodyRecord](ctx, c, CommandGetNews, TimeRangeRequest{Start: start, End: end})
}

func (c *Client) GetProfitCalculation(ctx context.Context, req ProfitCalculationRequest) (*ProfitCalculationResponse, error) {
	return callRef[ProfitCalculationResponse](ctx, c, CommandGetProfitCalculation, req)
}

func (c *Client) GetStepRules(ctx context.Context) ([]StepRuleRecord, error) {
	return Call[[]StepRuleRecord](ctx, c, CommandGetStepRules, nil)
}

func (c *Client) GetTradeRecords(ctx context.Context, orders ...int) ([]TradeRecord, error) {
	return Call[[]TradeRecord](ctx, c, CommandGetTradeRecords, TradeRecordsRequest{Orders: orders})
}

func (c *Client) GetTrades(ctx context.Context, openedOnly bool) ([]TradeRecord, error) {
	return Call[[]TradeRecord](ctx, c, CommandGetTrades, TradesRequest{OpenedOnly: openedOnly})
}

// GetTradesHistory: end == 0 означает текущий момент.
func (c *Client) GetTradesHistory(ctx context.Context, start, end int64) ([]TradeRecord, error) {
	return Call[[]TradeRecord](ctx, c, CommandGetTradesHistory, TimeRangeRequest{Start: start, End: end})
}

func (c *Client) GetTradingHours(ctx context.Context, symbols ...string) ([]TradingHoursRecord, error) {
	return Call[[]TradingHoursRecord](ctx, c, CommandGetTradingHours, TradingHoursRequest{Symbols: symbols})
}

// TradeTransaction возвращает номер заявки; её итог приходит в
// TradeTransactionStatus или в потоке tradeStatus.
func (c *Client) TradeTransaction(ctx context.Context, info TradeTransInfo) (*TradeTransactionResponse, error) {
	return callRef[TradeTransactionResponse](ctx, c, CommandTradeTransaction, TradeTransactionRequest{TradeTransInfo: info})
}

func (c *Client) TradeTransactionStatus(ctx context.Context, order int) (*TradeTransactionStatusResponse, error) {
	return callRef[TradeTransactionStatusResponse](
		ctx, c, CommandTradeTransactionStatus, TradeTransactionStatusRequest{Order: order},
	)
}
