package kiwoom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GetQuote returns the normalized current price snapshot (ka10001).
func (c *Client) GetQuote(ctx context.Context, code string) (*Quote, error) {
	body, err := c.Request(ctx, "ka10001", http.MethodPost, "/api/dostk/stkinfo", map[string]string{
		"stk_cd": code,
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Code      string `json:"stk_cd"`
		Name      string `json:"stk_nm"`
		Price     string `json:"cur_prc"`
		ChangePct string `json:"flu_rt"`
		Volume    string `json:"trde_qty"`
		High      string `json:"high_pric"`
		Low       string `json:"low_pric"`
		Open      string `json:"open_pric"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}

	price := parseSignedInt(result.Price)
	high := parseSignedInt(result.High)

	q := &Quote{
		Code:      result.Code,
		Name:      result.Name,
		Price:     price,
		ChangePct: parseSignedFloat(result.ChangePct),
		Volume:    parseSignedInt(result.Volume),
		High:      high,
		Low:       parseSignedInt(result.Low),
		Open:      parseSignedInt(result.Open),
		Strength:  100, // 체결강도 기본값
	}
	q.HighProximity = highProximity(price, high)

	return q, nil
}

// highProximity is current/high × 100, or 0 when there is no high yet.
func highProximity(current, high int64) float64 {
	if high == 0 {
		return 0
	}
	return float64(current) / float64(high) * 100
}

// GetOrderBook returns the normalized 5-level order book (ka10004).
func (c *Client) GetOrderBook(ctx context.Context, code string) (*OrderBook, error) {
	body, err := c.Request(ctx, "ka10004", http.MethodPost, "/api/dostk/mrkcond", map[string]string{
		"stk_cd": code,
	})
	if err != nil {
		return nil, err
	}

	var raw map[string]string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode orderbook response: %w", err)
	}

	return parseOrderBook(raw), nil
}

// parseOrderBook extracts the 1st-5th bid/ask levels. The first level uses
// a different key scheme than levels 2-5.
func parseOrderBook(raw map[string]string) *OrderBook {
	book := &OrderBook{}

	for i := 1; i <= 5; i++ {
		var bidPriceKey, bidVolKey, askPriceKey, askVolKey string
		if i == 1 {
			bidPriceKey, bidVolKey = "buy_fpr_bid", "buy_fpr_req"
			askPriceKey, askVolKey = "sel_fpr_bid", "sel_fpr_req"
		} else {
			bidPriceKey = fmt.Sprintf("buy_%dth_pre_bid", i)
			bidVolKey = fmt.Sprintf("buy_%dth_pre_req", i)
			askPriceKey = fmt.Sprintf("sel_%dth_pre_bid", i)
			askVolKey = fmt.Sprintf("sel_%dth_pre_req", i)
		}

		if price, vol := raw[bidPriceKey], raw[bidVolKey]; price != "" && vol != "" {
			book.Bids = append(book.Bids, OrderBookLevel{
				Price:  parseSignedInt(price),
				Volume: parseSignedInt(vol),
			})
		}
		if price, vol := raw[askPriceKey], raw[askVolKey]; price != "" && vol != "" {
			book.Asks = append(book.Asks, OrderBookLevel{
				Price:  parseSignedInt(price),
				Volume: parseSignedInt(vol),
			})
		}
	}

	return book
}
