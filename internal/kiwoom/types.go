package kiwoom

import (
	"strconv"
	"strings"
	"time"
)

// Token is the broker access token with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Balance is the normalized deposit summary (kt00001).
type Balance struct {
	AvailableCash int64
}

// AccountEvaluation is the normalized estimated-asset summary (kt00003).
type AccountEvaluation struct {
	TotalAsset int64
}

// Holding is one entry of the account holdings list (kt00018).
type Holding struct {
	Code     string
	Name     string
	Quantity int64
	AvgPrice int64
}

// Quote is the normalized current price snapshot (ka10001).
type Quote struct {
	Code          string
	Name          string
	Price         int64
	ChangePct     float64
	Volume        int64
	High          int64
	Low           int64
	Open          int64
	HighProximity float64 // cur/high × 100
	Strength      float64 // 체결강도, default 100
}

// OrderBookLevel is a single price level of the order book.
type OrderBookLevel struct {
	Price  int64
	Volume int64
}

// OrderBook is the normalized 5-level order book (ka10004).
type OrderBook struct {
	Bids []OrderBookLevel
	Asks []OrderBookLevel
}

// RankedStock is one normalized entry of a ranking list response.
type RankedStock struct {
	Code           string
	Name           string
	Price          int64
	PriceChangePct float64
	Volume         int64
	TradingValue   int64 // always KRW after unit normalization
	Status         string
}

// OrderResult is the normalized order acknowledgement.
type OrderResult struct {
	OrderNo string
}

// parseSignedInt parses a broker numeric string that may carry +/- sign
// prefixes, returning the absolute value. Empty strings parse to 0.
func parseSignedInt(s string) int64 {
	s = strings.ReplaceAll(strings.ReplaceAll(s, "+", ""), "-", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseSignedFloat is parseSignedInt for rate fields.
func parseSignedFloat(s string) float64 {
	s = strings.ReplaceAll(strings.ReplaceAll(s, "+", ""), "-", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
