package realtime

import "time"

// Topic is a realtime data-type code on the wire.
type Topic string

const (
	TopicExecution Topic = "00" // 주문체결
	TopicPrice     Topic = "01" // 주식체결
	TopicOrderBook Topic = "02" // 주식호가
	TopicBalance   Topic = "04" // 잔고
)

// CodeAll subscribes a topic for every stock; it maps to an empty wire item.
const CodeAll = "ALL"

// Event is one normalized realtime update.
// ⭐ SSOT: 실시간 이벤트 구조
type Event struct {
	Topic      Topic             `json:"topic"`
	Code       string            `json:"code"`
	Name       string            `json:"name"`
	Values     map[string]string `json:"values"`
	ReceivedAt time.Time         `json:"received_at"`
}

// PriceTick is the normalized current-price view kept in the cache.
type PriceTick struct {
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Price      int64     `json:"price"`       // 현재가
	ChangeRate float64   `json:"change_rate"` // 등락율
	Volume     int64     `json:"volume"`      // 누적거래량
	Timestamp  time.Time `json:"timestamp"`
}
