package kiwoom

import (
	"context"
	"net/http"
	"testing"
)

func TestGetQuote(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"stk_cd": "005930",
			"stk_nm": "삼성전자",
			"cur_prc": "+71000",
			"flu_rt": "+1.43",
			"trde_qty": "12345678",
			"high_pric": "+72000",
			"low_pric": "+70100",
			"open_pric": "+70500"
		}`))
	})

	q, err := c.GetQuote(context.Background(), "005930")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}

	if q.Price != 71000 || q.High != 72000 || q.Low != 70100 || q.Open != 70500 {
		t.Errorf("unexpected prices: %+v", q)
	}
	if q.Strength != 100 {
		t.Errorf("strength default = %f, want 100", q.Strength)
	}

	wantProximity := float64(71000) / float64(72000) * 100
	if q.HighProximity != wantProximity {
		t.Errorf("high proximity = %f, want %f", q.HighProximity, wantProximity)
	}
}

func TestHighProximityZeroHigh(t *testing.T) {
	if got := highProximity(1000, 0); got != 0 {
		t.Errorf("highProximity with zero high = %f, want 0", got)
	}
}

func TestParseOrderBook(t *testing.T) {
	raw := map[string]string{
		"buy_fpr_bid":     "+70900",
		"buy_fpr_req":     "1000",
		"sel_fpr_bid":     "+71000",
		"sel_fpr_req":     "800",
		"buy_2th_pre_bid": "+70800",
		"buy_2th_pre_req": "2000",
		"sel_2th_pre_bid": "+71100",
		"sel_2th_pre_req": "1500",
		"buy_3th_pre_bid": "+70700",
		"buy_3th_pre_req": "3000",
		"sel_3th_pre_bid": "+71200",
		"sel_3th_pre_req": "2500",
	}

	book := parseOrderBook(raw)

	if len(book.Bids) != 3 || len(book.Asks) != 3 {
		t.Fatalf("expected 3 bid/ask levels, got %d/%d", len(book.Bids), len(book.Asks))
	}
	if book.Bids[0].Price != 70900 || book.Bids[0].Volume != 1000 {
		t.Errorf("first bid level = %+v", book.Bids[0])
	}
	if book.Asks[1].Price != 71100 || book.Asks[1].Volume != 1500 {
		t.Errorf("second ask level = %+v", book.Asks[1])
	}
}

func TestParseOrderBookEmpty(t *testing.T) {
	book := parseOrderBook(map[string]string{})
	if len(book.Bids) != 0 || len(book.Asks) != 0 {
		t.Errorf("expected empty book, got %d/%d levels", len(book.Bids), len(book.Asks))
	}
}
