package order

import (
	"github.com/shopspring/decimal"

	"marketplace-client-go/payment"
)

// Status represents order lifecycle. The lowercase tokens are wire values
// understood by the order service and must be preserved exactly.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the status can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Origin tags where an order came from; external orders are created through
// offer tokens by a host app, marketplace orders through the built-in store.
type Origin string

const (
	OriginMarketplace Origin = "marketplace"
	OriginExternal    Origin = "external"
)

// OfferType distinguishes reward (earn) orders from purchase (spend) orders.
type OfferType string

const (
	OfferTypeEarn  OfferType = "earn"
	OfferTypeSpend OfferType = "spend"
)

// ResultTypePaymentConfirmation is the result payload type carried by a
// completed external order.
const ResultTypePaymentConfirmation = "payment_confirmation"

// Result is the polymorphic result payload of a completed order.
type Result struct {
	Type string `json:"type"`
	JWT  string `json:"jwt,omitempty"`
}

// ErrorInfo is the error payload attached to failed orders and to
// change-order patch bodies.
type ErrorInfo struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Body is the patch payload for change-order calls.
type Body struct {
	Error *ErrorInfo `json:"error,omitempty"`
}

// Order is the server-tracked unit of work. Immutable once fetched except
// for status transitions produced by subsequent fetches.
type Order struct {
	OrderID   string     `json:"order_id"`
	OfferID   string     `json:"offer_id"`
	OfferType OfferType  `json:"offer_type,omitempty"`
	Origin    Origin     `json:"origin,omitempty"`
	Status    Status     `json:"status"`
	Title     string     `json:"title,omitempty"`
	Amount    int64      `json:"amount,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Result    *Result    `json:"result,omitempty"`
}

// OrderList is a page of order history.
type OrderList struct {
	Orders []Order `json:"orders"`
}

// Last returns the most recent order of the list, nil when empty.
func (l *OrderList) Last() *Order {
	if l == nil || len(l.Orders) == 0 {
		return nil
	}
	return &l.Orders[len(l.Orders)-1]
}

// OpenOrder is a handle to an order created remotely but not yet terminally
// resolved. The blockchain fields drive the spend transaction leg.
type OpenOrder struct {
	ID               string          `json:"id"`
	OfferID          string          `json:"offer_id"`
	OfferType        OfferType       `json:"offer_type,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	RecipientAddress string          `json:"recipient_address,omitempty"`
}

// ConfirmationStatus mirrors Status for the outward-facing confirmation.
type ConfirmationStatus string

const (
	ConfirmationPending   ConfirmationStatus = "pending"
	ConfirmationCompleted ConfirmationStatus = "completed"
	ConfirmationFailed    ConfirmationStatus = "failed"
)

// OrderConfirmation is the terminal outward-facing result of an external
// order: its status plus the signed confirmation token when completed.
type OrderConfirmation struct {
	Status          ConfirmationStatus `json:"status"`
	JWTConfirmation string             `json:"jwt_confirmation,omitempty"`
}

// confirmationStatusOf maps an order status onto the confirmation enum.
func confirmationStatusOf(s Status) ConfirmationStatus {
	switch s {
	case StatusCompleted:
		return ConfirmationCompleted
	case StatusFailed:
		return ConfirmationFailed
	default:
		return ConfirmationPending
	}
}

// directionOf maps an offer type onto the payment direction.
func directionOf(t OfferType) payment.Direction {
	if t == OfferTypeEarn {
		return payment.DirectionEarn
	}
	return payment.DirectionSpend
}
