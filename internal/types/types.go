// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package types

type PerpetualSwapsRequest struct {
	Exchanges string `form:"exchanges,optional"`
	Symbols   string `form:"symbols,optional"`
}

type PerpetualSwap struct {
	Exchange        string   `json:"exchange"`
	Symbol          string   `json:"symbol"`
	MarkPrice       float64  `json:"markPrice"`
	IndexPrice      float64  `json:"indexPrice"`
	FundingRate     *float64 `json:"fundingRate"`
	NextFundingTime *string  `json:"nextFundingTime"`
	Volume24h       float64  `json:"volume24h"`
	OpenInterest    float64  `json:"openInterest"`
}

type PerpetualSwapsResponse struct {
	Data []PerpetualSwap `json:"data"`
}

type MarketsRequest struct {
	Exchange string `path:"exchange"`
}

type Market struct {
	ID     string  `json:"id"`
	Symbol string  `json:"symbol"`
	Base   string  `json:"base"`
	Quote  string  `json:"quote"`
	Settle string  `json:"settle"`
	Type   string  `json:"type"`
	Active bool    `json:"active"`
	Expiry *string `json:"expiry"`
}

type FuturesCurveRequest struct {
	Symbol   string `path:"symbol"`
	Exchange string `form:"exchange,default=deribit"`
}

type FuturesCurveEntry struct {
	Instrument    string  `json:"instrument"`
	Bid           float64 `json:"bid"`
	BidAmount     float64 `json:"bidAmount"`
	Mark          float64 `json:"mark"`
	Ask           float64 `json:"ask"`
	AskAmount     float64 `json:"askAmount"`
	Low24h        float64 `json:"low24h"`
	High24h       float64 `json:"high24h"`
	Change24h     string  `json:"change24h"`
	Volume24h     float64 `json:"volume24h"`
	OpenInterest  float64 `json:"openInterest"`
	Premium       string  `json:"premium"`
	PremiumAmount float64 `json:"premiumAmount"`
	Tenor         string  `json:"tenor"`
	APR           string  `json:"apr"`
}

type FundingRatesRequest struct {
	Symbol   string `path:"symbol"`
	Exchange string `form:"exchange,default=hyperliquid"`
	Days     int    `form:"days,default=30"`
}

type FundingRate struct {
	Symbol      string  `json:"symbol"`
	FundingRate float64 `json:"fundingRate"`
	Premium     float64 `json:"premium"`
	Timestamp   int64   `json:"timestamp"`
	Datetime    string  `json:"datetime"`
}

type IndicatorsRequest struct {
	Symbol   string `path:"symbol"`
	Exchange string `form:"exchange,default=hyperliquid"`
	Interval string `form:"interval,default=1h"`
	Limit    int    `form:"limit,default=100"`
}

type Indicators struct {
	SMA20 []*float64 `json:"sma_20"`
	SMA50 []*float64 `json:"sma_50"`
	RSI   []*float64 `json:"rsi"`
	EMA20 []*float64 `json:"ema_20"`
	MACD  []*float64 `json:"macd"`
}

type IndicatorsResponse struct {
	Indicators Indicators `json:"indicators"`
}

type DashboardComponent struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config,optional"`
}

type CreateDashboardRequest struct {
	Name       string               `json:"name"`
	Components []DashboardComponent `json:"components,optional"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type GetDashboardRequest struct {
	Name string `path:"name"`
}

type DashboardResponse struct {
	Name       string               `json:"name"`
	Components []DashboardComponent `json:"components"`
}

type ListDashboardsResponse struct {
	Dashboards []string `json:"dashboards"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatComponent struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Config map[string]any `json:"config"`
}

type ChatResponse struct {
	Message    string          `json:"message"`
	Components []ChatComponent `json:"components"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}
