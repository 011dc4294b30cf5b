package kiwoom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GetBalance returns the deposit summary (kt00001).
func (c *Client) GetBalance(ctx context.Context) (*Balance, error) {
	body, err := c.Request(ctx, "kt00001", http.MethodPost, "/api/dostk/acnt", map[string]string{
		"qry_tp": "2", // 일반조회
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Entr string `json:"entr"` // 예수금
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode balance response: %w", err)
	}

	return &Balance{AvailableCash: parseSignedInt(result.Entr)}, nil
}

// GetAccountEvaluation returns the estimated total asset value (kt00003).
func (c *Client) GetAccountEvaluation(ctx context.Context) (*AccountEvaluation, error) {
	body, err := c.Request(ctx, "kt00003", http.MethodPost, "/api/dostk/acnt", map[string]string{
		"qry_tp": "3", // 추정조회
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		EstimatedAsset string `json:"prsm_dpst_aset_amt"` // 추정예탁자산
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode account evaluation response: %w", err)
	}

	return &AccountEvaluation{TotalAsset: parseSignedInt(result.EstimatedAsset)}, nil
}

// GetHoldings returns the account holdings list (kt00018).
func (c *Client) GetHoldings(ctx context.Context) ([]Holding, error) {
	body, err := c.Request(ctx, "kt00018", http.MethodPost, "/api/dostk/acnt", map[string]string{
		"qry_tp":       "2",   // 개별
		"dmst_stex_tp": "KRX", // 한국거래소
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Items []struct {
			Code     string `json:"sht_cd"`
			Name     string `json:"pdno_hngl_nm"`
			Quantity string `json:"remn_qty"`
			AvgPrice string `json:"avg_unpr"`
		} `json:"acnt_evlt_remn_indv_tot"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode holdings response: %w", err)
	}

	holdings := make([]Holding, 0, len(result.Items))
	for _, item := range result.Items {
		holdings = append(holdings, Holding{
			Code:     item.Code,
			Name:     item.Name,
			Quantity: parseSignedInt(item.Quantity),
			AvgPrice: parseSignedInt(item.AvgPrice),
		})
	}
	return holdings, nil
}
