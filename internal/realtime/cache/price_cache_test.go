package cache

import (
	"testing"
	"time"

	"github.com/joonholab/argos/internal/realtime"
	"github.com/joonholab/argos/pkg/logger"
)

func TestUpdateRejectsOlderTick(t *testing.T) {
	c := NewPriceCache(time.Minute, logger.NewNop())
	now := time.Now()

	if !c.Update(&realtime.PriceTick{Code: "005930", Price: 71000, Timestamp: now}) {
		t.Fatal("first update should be accepted")
	}
	if c.Update(&realtime.PriceTick{Code: "005930", Price: 70000, Timestamp: now.Add(-time.Second)}) {
		t.Error("older tick should be rejected")
	}

	tick, ok := c.Get("005930")
	if !ok || tick.Price != 71000 {
		t.Errorf("cached price = %v, want 71000", tick)
	}
}

func TestCleanStale(t *testing.T) {
	c := NewPriceCache(time.Minute, logger.NewNop())
	now := time.Now()

	c.Update(&realtime.PriceTick{Code: "fresh", Timestamp: now})
	c.Update(&realtime.PriceTick{Code: "stale", Timestamp: now.Add(-2 * time.Minute)})

	if removed := c.CleanStale(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, ok := c.Get("stale"); ok {
		t.Error("stale entry survived the sweep")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestGetMany(t *testing.T) {
	c := NewPriceCache(time.Minute, logger.NewNop())
	now := time.Now()
	c.Update(&realtime.PriceTick{Code: "005930", Timestamp: now})
	c.Update(&realtime.PriceTick{Code: "000660", Timestamp: now})

	got := c.GetMany([]string{"005930", "missing"})
	if len(got) != 1 {
		t.Errorf("GetMany returned %d entries, want 1", len(got))
	}
	if _, ok := got["005930"]; !ok {
		t.Error("expected 005930 in result")
	}
}
