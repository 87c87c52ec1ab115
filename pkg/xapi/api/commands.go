package api

import "github.com/LLIEPJIOK/xapi/pkg/xapi"

// Команды командного соединения.
const (
	CommandLogin                  = "login"
	CommandLogout                 = "logout"
	CommandPing                   = "ping"
	CommandGetAllSymbols          = "getAllSymbols"
	CommandGetCalendar            = "getCalendar"
	CommandGetChartLastRequest    = "getChartLastRequest"
	CommandGetChartRangeRequest   = "getChartRangeRequest"
	CommandGetCommissionDef       = "getCommissionDef"
	CommandGetCurrentUserData     = "getCurrentUserData"
	CommandGetIbsHistory          = "getIbsHistory"
	CommandGetMarginLevel         = "getMarginLevel"
	CommandGetMarginTrade         = "getMarginTrade"
	CommandGetNews                = "getNews"
	CommandGetProfitCalculation   = "getProfitCalculation"
	CommandGetServerTime          = "getServerTime"
	CommandGetStepRules           = "getStepRules"
	CommandGetSymbol              = "getSymbol"
	CommandGetTickPrices          = "getTickPrices"
	CommandGetTradeRecords        = "getTradeRecords"
	CommandGetTrades              = "getTrades"
	CommandGetTradesHistory       = "getTradesHistory"
	CommandGetTradingHours        = "getTradingHours"
	CommandGetVersion             = "getVersion"
	CommandTradeTransaction       = "tradeTransaction"
	CommandTradeTransactionStatus = "tradeTransactionStatus"
)

// Потоки. Имя команды в кадрах данных не выводится из имени подписки
// (getCandles -> candle), поэтому задаётся явно.
var (
	StreamBalance = xapi.StreamCommand{
		Subscribe:   "getBalance",
		Unsubscribe: "stopBalance",
		Data:        "balance",
	}

	StreamCandles = xapi.StreamCommand{
		Subscribe:       "getCandles",
		Unsubscribe:     "stopCandles",
		Data:            "candle",
		UnsubscribeKeys: []string{"symbol"},
	}

	StreamKeepAlive = xapi.StreamCommand{
		Subscribe:   "getKeepAlive",
		Unsubscribe: "stopKeepAlive",
		Data:        "keepAlive",
	}

	StreamNews = xapi.StreamCommand{
		Subscribe:   "getNews",
		Unsubscribe: "stopNews",
		Data:        "news",
	}

	StreamProfits = xapi.StreamCommand{
		Subscribe:   "getProfits",
		Unsubscribe: "stopProfits",
		Data:        "profit",
	}

	StreamTickPrices = xapi.StreamCommand{
		Subscribe:       "getTickPrices",
		Unsubscribe:     "stopTickPrices",
		Data:            "tickPrices",
		UnsubscribeKeys: []string{"symbol"},
	}

	StreamTrades = xapi.StreamCommand{
		Subscribe:   "getTrades",
		Unsubscribe: "stopTrades",
		Data:        "trade",
	}

	StreamTradeStatus = xapi.StreamCommand{
		Subscribe:   "getTradeStatus",
		Unsubscribe: "stopTradeStatus",
		Data:        "tradeStatus",
	}
)
