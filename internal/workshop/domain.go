package workshop

import (
	"errors"
	"time"
)

// OrderStatus enumerates the service-order state machine.
type OrderStatus string

const (
	// StatusQuote is the pre-committal state; nothing has been consumed.
	StatusQuote OrderStatus = "QUOTE"
	// StatusScheduled means the customer accepted the quote.
	StatusScheduled OrderStatus = "SCHEDULED"
	// StatusInWorkshop means the vehicle is being worked on.
	StatusInWorkshop OrderStatus = "IN_WORKSHOP"
	// StatusDelivered is the terminal paid state. Reaching it consumes
	// supplies and moves cash.
	StatusDelivered OrderStatus = "DELIVERED"
	// StatusCancelled is the terminal abandoned state.
	StatusCancelled OrderStatus = "CANCELLED"
)

// PaymentMethod enumerates accepted tender types, matching point of sale.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "CASH"
	MethodCard     PaymentMethod = "CARD"
	MethodCardMSI  PaymentMethod = "CARD_MSI"
	MethodTransfer PaymentMethod = "TRANSFER"
)

// ServiceOrder is a workshop job from quote to delivery.
type ServiceOrder struct {
	ID            string
	Folio         int64
	CustomerName  string
	CustomerPhone string
	VehicleDesc   string
	VehiclePlate  string
	Status        OrderStatus
	Lines         []OrderLine
	PaymentLegs   []PaymentLeg
	Subtotal      float64
	Tax           float64
	Total         float64
	CancelReason  string
	DeliveredAt   *time.Time
	ViewVersion   int64
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderLine is one labour or supply line. Quantity on physical lines is the
// supply amount consumed at delivery.
type OrderLine struct {
	ItemID    string
	Name      string
	Quantity  float64
	UnitPrice float64
	Total     float64
	IsService bool
}

// PaymentLeg is one tender applied at delivery.
type PaymentLeg struct {
	Method    PaymentMethod
	Amount    float64
	Reference string
}

// PaymentDetails carries the settlement captured at delivery.
type PaymentDetails struct {
	Legs []PaymentLeg
	Note string
}

// CreateOrderInput opens a new quote.
type CreateOrderInput struct {
	CustomerName  string
	CustomerPhone string
	VehicleDesc   string
	VehiclePlate  string
	Lines         []LineInput
	ActorID       string
}

// LineInput is one requested order line. A zero UnitPrice falls back to the
// item's selling price.
type LineInput struct {
	ItemID    string
	Quantity  float64
	UnitPrice float64
}

// PublicOrderView is the denormalized, customer-facing projection of an
// order. External viewers read this copy; they never touch the authoritative
// record.
type PublicOrderView struct {
	OrderID      string    `json:"order_id"`
	Folio        int64     `json:"folio"`
	Status       string    `json:"status"`
	CustomerName string    `json:"customer_name"`
	VehicleDesc  string    `json:"vehicle_desc"`
	VehiclePlate string    `json:"vehicle_plate"`
	Total        float64   `json:"total"`
	DeliveredAt  string    `json:"delivered_at,omitempty"`
	Version      int64     `json:"version"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var (
	// ErrOrderNotFound indicates a missing order.
	ErrOrderNotFound = errors.New("workshop: order not found")
	// ErrInvalidTransition indicates a status change the machine forbids.
	ErrInvalidTransition = errors.New("workshop: invalid status transition")
	// ErrAlreadyDelivered indicates a repeated completion attempt.
	ErrAlreadyDelivered = errors.New("workshop: order already delivered")
	// ErrPaymentMismatch indicates legs that do not cover the order total.
	ErrPaymentMismatch = errors.New("workshop: payment legs do not sum to total")
	// ErrViewNotFound indicates a missing public projection.
	ErrViewNotFound = errors.New("workshop: public view not found")
)

// CanTransition reports whether the state machine allows moving from one
// status to another. Cancellation is open from every non-terminal state.
func CanTransition(from, to OrderStatus) bool {
	if to == StatusCancelled {
		return from != StatusDelivered && from != StatusCancelled
	}
	switch from {
	case StatusQuote:
		return to == StatusScheduled
	case StatusScheduled:
		return to == StatusInWorkshop
	case StatusInWorkshop:
		return to == StatusDelivered
	}
	return false
}
