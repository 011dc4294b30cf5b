package realtime

import (
	"strconv"
	"strings"
)

// Realtime value FIDs used by the price topic.
const (
	fidCurrentPrice = "10"
	fidChangeRate   = "12"
	fidAccVolume    = "13"
)

// TickFromEvent converts a price-topic event into a cache tick. Returns
// false when the event carries no usable price.
func TickFromEvent(ev Event) (*PriceTick, bool) {
	if ev.Topic != TopicPrice {
		return nil, false
	}

	price := absInt(ev.Values[fidCurrentPrice])
	if price == 0 {
		return nil, false
	}

	return &PriceTick{
		Code:       ev.Code,
		Name:       ev.Name,
		Price:      price,
		ChangeRate: absFloat(ev.Values[fidChangeRate]),
		Volume:     absInt(ev.Values[fidAccVolume]),
		Timestamp:  ev.ReceivedAt,
	}, true
}

// absInt parses a possibly sign-prefixed numeric string to its absolute
// value.
func absInt(s string) int64 {
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

func absFloat(s string) float64 {
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
