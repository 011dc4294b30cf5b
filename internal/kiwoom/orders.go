package kiwoom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type orderRequest struct {
	AccountNo string `json:"account_no"`
	StockCode string `json:"stock_code"`
	Quantity  int64  `json:"quantity"`
	Price     int64  `json:"price"`
	OrderType string `json:"order_type"`
}

type orderResponse struct {
	OrderNo string `json:"ord_no"`
}

// OrderBuy places a limit buy order (kt10000).
func (c *Client) OrderBuy(ctx context.Context, code string, quantity, price int64) (*OrderResult, error) {
	c.logger.WithFields(map[string]interface{}{
		"code":     code,
		"quantity": quantity,
		"price":    price,
	}).Info("매수 주문")

	return c.placeOrder(ctx, "kt10000", "/api/orders/buy", code, quantity, price)
}

// OrderSell places a limit sell order (kt10001).
func (c *Client) OrderSell(ctx context.Context, code string, quantity, price int64) (*OrderResult, error) {
	c.logger.WithFields(map[string]interface{}{
		"code":     code,
		"quantity": quantity,
		"price":    price,
	}).Info("매도 주문")

	return c.placeOrder(ctx, "kt10001", "/api/orders/sell", code, quantity, price)
}

func (c *Client) placeOrder(ctx context.Context, apiID, path, code string, quantity, price int64) (*OrderResult, error) {
	body, err := c.Request(ctx, apiID, http.MethodPost, path, orderRequest{
		AccountNo: c.cfg.AccountNo,
		StockCode: code,
		Quantity:  quantity,
		Price:     price,
		OrderType: "limit",
	})
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}

	return &OrderResult{OrderNo: resp.OrderNo}, nil
}

// CancelOrder cancels an open order (kt10003).
func (c *Client) CancelOrder(ctx context.Context, orderNo string) error {
	c.logger.WithField("order_no", orderNo).Info("주문 취소")

	_, err := c.Request(ctx, "kt10003", http.MethodDelete, "/api/orders/"+orderNo, nil)
	return err
}
