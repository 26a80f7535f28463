package payment

import "github.com/shopspring/decimal"

// Direction 支付方向：earn 为平台向用户发放，spend 为用户消费。
type Direction string

const (
	DirectionEarn  Direction = "earn"
	DirectionSpend Direction = "spend"
)

// Event 一次链上支付的最终结果。仅用于路由，不做持久化。
type Event struct {
	OrderID       string
	TransactionID string
	Amount        decimal.Decimal
	Direction     Direction
	Succeeded     bool
	FailureReason string
}

// IsEarn 是否为发放方向的支付。
func (e Event) IsEarn() bool { return e.Direction == DirectionEarn }
