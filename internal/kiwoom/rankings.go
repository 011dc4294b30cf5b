package kiwoom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// tradingValueMultiplier converts trde_prica (백만원 단위) into KRW.
const tradingValueMultiplier = 1_000_000

// GetVolumeSurge returns the volume-surge ranking (ka10023).
func (c *Client) GetVolumeSurge(ctx context.Context) ([]RankedStock, error) {
	body, err := c.Request(ctx, "ka10023", http.MethodPost, "/api/dostk/rkinfo", map[string]string{
		"mrkt_tp":      "000", // 전체
		"sort_tp":      "1",   // 급증량
		"tm_tp":        "1",   // 분
		"trde_qty_tp":  "5",   // 5천주이상
		"tm":           "10",  // 10분
		"stk_cnd":      "0",
		"pric_tp":      "0",
		"stex_tp":      "1", // KRX
	})
	if err != nil {
		return nil, err
	}
	return parseRanking(body, "trde_qty_sdnin")
}

// GetVolumeLeaders returns the volume-leaders ranking (ka10030).
func (c *Client) GetVolumeLeaders(ctx context.Context) ([]RankedStock, error) {
	body, err := c.Request(ctx, "ka10030", http.MethodPost, "/api/dostk/rkinfo", map[string]string{
		"mrkt_tp":        "000",
		"sort_tp":        "1", // 거래량
		"mang_stk_incls": "0",
		"crd_tp":         "0",
		"trde_qty_tp":    "0",
		"pric_tp":        "0",
		"trde_prica_tp":  "0",
		"mrkt_open_tp":   "0",
		"stex_tp":        "1",
	})
	if err != nil {
		return nil, err
	}
	return parseRanking(body, "tdy_trde_qty_upper")
}

// GetValueLeaders returns the traded-value ranking (ka10032).
func (c *Client) GetValueLeaders(ctx context.Context) ([]RankedStock, error) {
	body, err := c.Request(ctx, "ka10032", http.MethodPost, "/api/dostk/rkinfo", map[string]string{
		"mrkt_tp":        "000",
		"mang_stk_incls": "0",
		"stex_tp":        "1",
	})
	if err != nil {
		return nil, err
	}
	return parseRanking(body, "trde_prica_upper")
}

// GetPriceChangeLeaders returns the price-change ranking (ka10027).
func (c *Client) GetPriceChangeLeaders(ctx context.Context) ([]RankedStock, error) {
	body, err := c.Request(ctx, "ka10027", http.MethodPost, "/api/dostk/rkinfo", map[string]string{
		"mrkt_tp":        "000",
		"sort_tp":        "1", // 상승률
		"trde_qty_cnd":   "0000",
		"stk_cnd":        "0",
		"crd_cnd":        "0",
		"updown_incls":   "1",
		"pric_cnd":       "0",
		"trde_prica_cnd": "0",
		"stex_tp":        "1",
	})
	if err != nil {
		return nil, err
	}
	return parseRanking(body, "pred_pre_flu_rt_upper")
}

// parseRanking normalizes one ranking list response. The list key differs
// per api-id, and so does the traded-value encoding: trde_amt is already
// KRW while trde_prica is in millions of KRW and must be multiplied up.
func parseRanking(body []byte, listKey string) ([]RankedStock, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode ranking response: %w", err)
	}

	rawList, ok := envelope[listKey]
	if !ok {
		return nil, nil
	}

	var items []map[string]string
	if err := json.Unmarshal(rawList, &items); err != nil {
		return nil, fmt.Errorf("decode ranking list %s: %w", listKey, err)
	}

	parsed := make([]RankedStock, 0, len(items))
	for _, item := range items {
		volumeStr := item["trde_qty"]
		if volumeStr == "" {
			volumeStr = item["now_trde_qty"]
		}

		var tradingValue int64
		if prica, ok := item["trde_prica"]; ok {
			tradingValue = parseSignedInt(prica) * tradingValueMultiplier
		} else {
			tradingValue = parseSignedInt(item["trde_amt"])
		}

		parsed = append(parsed, RankedStock{
			Code:           item["stk_cd"],
			Name:           item["stk_nm"],
			Price:          parseSignedInt(item["cur_prc"]),
			PriceChangePct: parseSignedFloat(item["flu_rt"]),
			Volume:         parseSignedInt(volumeStr),
			TradingValue:   tradingValue,
		})
	}
	return parsed, nil
}
