package api

type QuoteID int

const (
	QuoteFixed QuoteID = 1
	QuoteFloat QuoteID = 2
	QuoteDepth QuoteID = 3
	QuoteCross QuoteID = 4
)

type TradingCommand int

const (
	Buy TradingCommand = iota
	Sell
	BuyLimit
	SellLimit
	BuyStop
	SellStop
	Balance
	Credit
)

func (c TradingCommand) String() string {
	switch c {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	case BuyLimit:
		return "BUY_LIMIT"
	case SellLimit:
		return "SELL_LIMIT"
	case BuyStop:
		return "BUY_STOP"
	case SellStop:
		return "SELL_STOP"
	case Balance:
		return "BALANCE"
	case Credit:
		return "CREDIT"
	default:
		return "UNKNOWN"
	}
}

type TransactionStatus int

const (
	StatusError    TransactionStatus = 0
	StatusPending  TransactionStatus = 1
	StatusAccepted TransactionStatus = 3
	StatusRejected TransactionStatus = 4
)

func (s TransactionStatus) String() string {
	switch s {
	case StatusError:
		return "error"
	case StatusPending:
		return "pending"
	case StatusAccepted:
		return "accepted"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

type TradingAction int

const (
	ActionBuy  TradingAction = 0
	ActionSell TradingAction = 1
)

type TransactionType int

const (
	TransactionOpen    TransactionType = 0
	TransactionPending TransactionType = 1
	TransactionClose   TransactionType = 2
	TransactionModify  TransactionType = 3
	TransactionDelete  TransactionType = 4
)

// ImpactLevel приходит строкой: "1", "2" или "3".
type ImpactLevel string

const (
	ImpactLow    ImpactLevel = "1"
	ImpactMedium ImpactLevel = "2"
	ImpactHigh   ImpactLevel = "3"
)

// TimePeriod - период свечи в минутах.
type TimePeriod int

const (
	PeriodM1  TimePeriod = 1
	PeriodM5  TimePeriod = 5
	PeriodM15 TimePeriod = 15
	PeriodM30 TimePeriod = 30
	PeriodH1  TimePeriod = 60
	PeriodH4  TimePeriod = 240
	PeriodD1  TimePeriod = 1440
	PeriodW1  TimePeriod = 10080
	PeriodMN1 TimePeriod = 43200
)

type VersionResponse struct {
	Version string `json:"version"`
}

type ServerTimeResponse struct {
	Time       int64  `json:"time"`
	TimeString string `json:"timeString"`
}

type SymbolRequest struct {
	Symbol string `json:"symbol"`
}

type SymbolRecord struct {
	Ask                float64  `json:"ask"`
	Bid                float64  `json:"bid"`
	CategoryName       string   `json:"categoryName"`
	ContractSize       int64    `json:"contractSize"`
	Currency           string   `json:"currency"`
	CurrencyPair       bool     `json:"currencyPair"`
	CurrencyProfit     string   `json:"currencyProfit"`
	Description        string   `json:"description"`
	Expiration         *int64   `json:"expiration"`
	GroupName          string   `json:"groupName"`
	High               float64  `json:"high"`
	InitialMargin      int64    `json:"initialMargin"`
	InstantMaxVolume   int64    `json:"instantMaxVolume"`
	Leverage           float64  `json:"leverage"`
	LongOnly           bool     `json:"longOnly"`
	LotMax             float64  `json:"lotMax"`
	LotMin             float64  `json:"lotMin"`
	LotStep            float64  `json:"lotStep"`
	Low                float64  `json:"low"`
	MarginHedged       int64    `json:"marginHedged"`
	MarginHedgedStrong bool     `json:"marginHedgedStrong"`
	MarginMaintenance  *int64   `json:"marginMaintenance"`
	MarginMode         int      `json:"marginMode"`
	Percentage         float64  `json:"percentage"`
	PipsPrecision      int      `json:"pipsPrecision"`
	Precision          int      `json:"precision"`
	ProfitMode         int      `json:"profitMode"`
	QuoteID            QuoteID  `json:"quoteId"`
	ShortSelling       bool     `json:"shortSelling"`
	SpreadRaw          float64  `json:"spreadRaw"`
	SpreadTable        float64  `json:"spreadTable"`
	Starting           *int64   `json:"starting"`
	StepRuleID         int      `json:"stepRuleId"`
	StopsLevel         int      `json:"stopsLevel"`
	SwapEnable         bool     `json:"swapEnable"`
	SwapLong           float64  `json:"swapLong"`
	SwapShort          float64  `json:"swapShort"`
	SwapType           int      `json:"swapType"`
	Symbol             string   `json:"symbol"`
	TickSize           *float64 `json:"tickSize"`
	TickValue          *float64 `json:"tickValue"`
	Time               int64    `json:"time"`
	TimeString         string   `json:"timeString"`
	TrailingEnabled    bool     `json:"trailingEnabled"`
	Type               int      `json:"type"`
}

type UserDataResponse struct {
	CompanyUnit        int     `json:"companyUnit"`
	Currency           string  `json:"currency"`
	Group              string  `json:"group"`
	IBAccount          bool    `json:"ibAccount"`
	Leverage           int     `json:"leverage"`
	LeverageMultiplier float64 `json:"leverageMultiplier"`
	SpreadType         *string `json:"spreadType"`
	TrailingStop       bool    `json:"trailingStop"`
}

type MarginLevelResponse struct {
	Balance     float64 `json:"balance"`
	Credit      float64 `json:"credit"`
	Currency    string  `json:"currency"`
	Equity      float64 `json:"equity"`
	Margin      float64 `json:"margin"`
	MarginFree  float64 `json:"margin_free"`
	MarginLevel float64 `json:"margin_level"`
}

type TickPricesRequest struct {
	Level     int      `json:"level"`
	Symbols   []string `json:"symbols"`
	Timestamp int64    `json:"timestamp"`
}

type TickRecord struct {
	Ask         float64 `json:"ask"`
	AskVolume   *int    `json:"askVolume"`
	Bid         float64 `json:"bid"`
	BidVolume   *int    `json:"bidVolume"`
	High        float64 `json:"high"`
	Level       int     `json:"level"`
	Low         float64 `json:"low"`
	SpreadRaw   float64 `json:"spreadRaw"`
	SpreadTable float64 `json:"spreadTable"`
	Symbol      string  `json:"symbol"`
	Timestamp   int64   `json:"timestamp"`
}

type TickPricesResponse struct {
	Quotations []TickRecord `json:"quotations"`
}

type TradeTransactionStatusRequest struct {
	Order int `json:"order"`
}

type TradeTransactionStatusResponse struct {
	Ask           float64           `json:"ask"`
	Bid           float64           `json:"bid"`
	CustomComment string            `json:"customComment"`
	Message       *string           `json:"message"`
	Order         int               `json:"order"`
	RequestStatus TransactionStatus `json:"requestStatus"`
}

type TimeRangeRequest struct {
	End   int64 `json:"end"`
	Start int64 `json:"start"`
}

type CalendarRecord struct {
	Country  string      `json:"country"`
	Current  string      `json:"current"`
	Forecast string      `json:"forecast"`
	Impact   ImpactLevel `json:"impact"`
	Period   string      `json:"period"`
	Previous string      `json:"previous"`
	Time     int64       `json:"time"`
	Title    string      `json:"title"`
}

type ChartLastInfoRecord struct {
	Period TimePeriod `json:"period"`
	Start  int64      `json:"start"`
	Symbol string     `json:"symbol"`
}

type ChartRangeInfoRecord struct {
	End    int64      `json:"end"`
	Period TimePeriod `json:"period"`
	Start  int64      `json:"start"`
	Symbol string     `json:"symbol"`
	Ticks  *int       `json:"ticks,omitempty"`
}

type chartRequest[T any] struct {
	Info T `json:"info"`
}

type RateInfoRecord struct {
	Close     float64 `json:"close"`
	Ctm       int64   `json:"ctm"`
	CtmString string  `json:"ctmString"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Open      float64 `json:"open"`
	Vol       float64 `json:"vol"`
}

// ChartResponse: цены в RateInfos заданы в пунктах, Digits - число знаков.
type ChartResponse struct {
	Digits    int              `json:"digits"`
	RateInfos []RateInfoRecord `json:"rateInfos"`
}

type SymbolVolumeRequest struct {
	Symbol string  `json:"symbol"`
	Volume float64 `json:"volume"`
}

type CommissionDefResponse struct {
	Commission     *float64 `json:"commission"`
	RateOfExchange *float64 `json:"rateOfExchange"`
}

type IBRecord struct {
	ClosePrice *float64       `json:"closePrice"`
	Login      *string        `json:"login"`
	Nominal    *float64       `json:"nominal"`
	OpenPrice  *float64       `json:"openPrice"`
	Side       *TradingAction `json:"side"`
	Surname    *string        `json:"surname"`
	Symbol     *string        `json:"symbol"`
	Timestamp  *int64         `json:"timestamp"`
	Volume     *float64       `json:"volume"`
}

type MarginTradeResponse struct {
	Margin float64 `json:"margin"`
}

type NewsBodyRecord struct {
	Body       string `json:"body"`
	BodyLen    int    `json:"bodylen"`
	Key        string `json:"key"`
	Time       int64  `json:"time"`
	TimeString string `json:"timeString"`
	Title      string `json:"title"`
}

type ProfitCalculationRequest struct {
	ClosePrice float64        `json:"closePrice"`
	Cmd        TradingCommand `json:"cmd"`
	OpenPrice  float64        `json:"openPrice"`
	Symbol     string         `json:"symbol"`
	Volume     float64        `json:"volume"`
}

type ProfitCalculationResponse struct {
	Profit float64 `json:"profit"`
}

type StepRecord struct {
	FromValue float64 `json:"fromValue"`
	Step      float64 `json:"step"`
}

type StepRuleRecord struct {
	ID    int          `json:"id"`
	Name  string       `json:"name"`
	Steps []StepRecord `json:"steps"`
}

type TradeRecordsRequest struct {
	Orders []int `json:"orders"`
}

type TradesRequest struct {
	OpenedOnly bool `json:"openedOnly"`
}

type TradeRecord struct {
	ClosePrice       float64        `json:"close_price"`
	CloseTime        *int64         `json:"close_time"`
	CloseTimeString  *string        `json:"close_timeString"`
	Closed           bool           `json:"closed"`
	Cmd              TradingCommand `json:"cmd"`
	Comment          string         `json:"comment"`
	Commission       *float64       `json:"commission"`
	CustomComment    string         `json:"customComment"`
	Digits           int            `json:"digits"`
	Expiration       *int64         `json:"expiration"`
	ExpirationString *string        `json:"expirationString"`
	MarginRate       float64        `json:"margin_rate"`
	Offset           int            `json:"offset"`
	OpenPrice        float64        `json:"open_price"`
	OpenTime         int64          `json:"open_time"`
	OpenTimeString   string         `json:"open_timeString"`
	Order            int            `json:"order"`
	Order2           int            `json:"order2"`
	Position         int            `json:"position"`
	Profit           *float64       `json:"profit"`
	SL               float64        `json:"sl"`
	Storage          float64        `json:"storage"`
	Symbol           *string        `json:"symbol"`
	Timestamp        int64          `json:"timestamp"`
	TP               float64        `json:"tp"`
	Volume           float64        `json:"volume"`
}

type TradingHoursRequest struct {
	Symbols []string `json:"symbols"`
}

// HoursRecord: Day 1 - понедельник, FromT и ToT - миллисекунды от полуночи.
type HoursRecord struct {
	Day   int   `json:"day"`
	FromT int64 `json:"fromT"`
	ToT   int64 `json:"toT"`
}

type TradingHoursRecord struct {
	Quotes  []HoursRecord `json:"quotes"`
	Symbol  string        `json:"symbol"`
	Trading []HoursRecord `json:"trading"`
}

type TradeTransInfo struct {
	Cmd           TradingCommand  `json:"cmd"`
	CustomComment string          `json:"customComment"`
	Expiration    int64           `json:"expiration"`
	Offset        int             `json:"offset"`
	Order         int             `json:"order"`
	Price         float64         `json:"price"`
	SL            float64         `json:"sl"`
	Symbol        string          `json:"symbol"`
	TP            float64         `json:"tp"`
	Type          TransactionType `json:"type"`
	Volume        float64         `json:"volume"`
}

type TradeTransactionRequest struct {
	TradeTransInfo TradeTransInfo `json:"tradeTransInfo"`
}

type TradeTransactionResponse struct {
	Order int `json:"order"`
}

// Данные потоков.

type TickPricesSubscribe struct {
	Symbol         string `json:"symbol"`
	MinArrivalTime *int   `json:"minArrivalTime,omitempty"`
	MaxLevel       *int   `json:"maxLevel,omitempty"`
}

type TickPricesData struct {
	Ask         float64 `json:"ask"`
	AskVolume   *int    `json:"askVolume"`
	Bid         float64 `json:"bid"`
	BidVolume   *int    `json:"bidVolume"`
	High        float64 `json:"high"`
	Level       int     `json:"level"`
	Low         float64 `json:"low"`
	QuoteID     QuoteID `json:"quoteId"`
	SpreadRaw   float64 `json:"spreadRaw"`
	SpreadTable float64 `json:"spreadTable"`
	Symbol      string  `json:"symbol"`
	Timestamp   int64   `json:"timestamp"`
}

type CandleData struct {
	Close     float64 `json:"close"`
	Ctm       int64   `json:"ctm"`
	CtmString string  `json:"ctmString"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Open      float64 `json:"open"`
	QuoteID   QuoteID `json:"quoteId"`
	Symbol    string  `json:"symbol"`
	Vol       float64 `json:"vol"`
}

type KeepAliveData struct {
	Timestamp int64 `json:"timestamp"`
}

type BalanceData struct {
	Balance     float64 `json:"balance"`
	Credit      float64 `json:"credit"`
	Equity      float64 `json:"equity"`
	Margin      float64 `json:"margin"`
	MarginFree  float64 `json:"marginFree"`
	MarginLevel float64 `json:"marginLevel"`
}

type NewsData struct {
	Body  string `json:"body"`
	Key   string `json:"key"`
	Time  int64  `json:"time"`
	Title string `json:"title"`
}

type TradeData struct {
	ClosePrice    float64        `json:"close_price"`
	CloseTime     *int64         `json:"close_time"`
	Closed        bool           `json:"closed"`
	Cmd           TradingCommand `json:"cmd"`
	Comment       string         `json:"comment"`
	Commission    *float64       `json:"commission"`
	CustomComment string         `json:"customComment"`
	Digits        int            `json:"digits"`
	Expiration    *int64         `json:"expiration"`
	MarginRate    float64        `json:"margin_rate"`
	Offset        int            `json:"offset"`
	OpenPrice     float64        `json:"open_price"`
	OpenTime      int64          `json:"open_time"`
	Order         int            `json:"order"`
	Order2        int            `json:"order2"`
	Position      int            `json:"position"`
	Profit        *float64       `json:"profit"`
	SL            float64        `json:"sl"`
	State         string         `json:"state"`
	Storage       float64        `json:"storage"`
	Symbol        string         `json:"symbol"`
	TP            float64        `json:"tp"`
	Type          int            `json:"type"`
	Volume        float64        `json:"volume"`
}

type ProfitData struct {
	Order    int     `json:"order"`
	Order2   int     `json:"order2"`
	Position int     `json:"position"`
	Profit   float64 `json:"profit"`
}

type TradeStatusData struct {
	CustomComment string            `json:"customComment"`
	Message       *string           `json:"message"`
	Order         int               `json:"order"`
	Price         float64           `json:"price"`
	RequestStatus TransactionStatus `json:"requestStatus"`
}
