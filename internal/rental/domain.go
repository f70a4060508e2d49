package rental

import (
	"errors"
	"time"
)

// PaymentMethod for rental payments. Only CASH touches the drawer.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "CASH"
	MethodTransfer PaymentMethod = "TRANSFER"
)

// RentalPayment is one payment a driver made against their running rent.
// DaysCovered is a display convenience derived at capture time; the debt
// engine never reads it.
type RentalPayment struct {
	ID           string
	DriverID     string
	VehiclePlate string
	PaidAt       time.Time
	Amount       float64
	Method       PaymentMethod
	Note         string
	DaysCovered  float64
	CreatedBy    string
}

// ManualDebtEntry is an ad-hoc charge added to a driver's account, e.g. a
// traffic fine or a repair billed to the driver.
type ManualDebtEntry struct {
	ID        string
	DriverID  string
	Amount    float64
	Reason    string
	CreatedBy string
	CreatedAt time.Time
}

// Balance is a driver's position, recomputed from full history on every
// request.
type Balance struct {
	DriverID     string    `json:"driver_id"`
	DriverName   string    `json:"driver_name"`
	VehiclePlate string    `json:"vehicle_plate"`
	DailyRate    float64   `json:"daily_rate"`
	ChargedDays  int       `json:"charged_days"`
	RentCharged  float64   `json:"rent_charged"`
	ManualDebt   float64   `json:"manual_debt"`
	TotalPaid    float64   `json:"total_paid"`
	Balance      float64   `json:"balance"`
	AsOf         time.Time `json:"as_of"`
}

// Statement is a driver's balance plus the history it was computed from.
type Statement struct {
	Balance     Balance           `json:"balance"`
	Payments    []RentalPayment   `json:"payments"`
	ManualDebts []ManualDebtEntry `json:"manual_debts"`
}

// PaymentInput captures a rental payment.
type PaymentInput struct {
	DriverID string
	Amount   float64
	Method   PaymentMethod
	PaidAt   time.Time
	Note     string
	ActorID  string
}

// ManualDebtInput captures an ad-hoc charge.
type ManualDebtInput struct {
	DriverID string
	Amount   float64
	Reason   string
	ActorID  string
}

var (
	ErrInvalidAmount = errors.New("rental: amount must be positive")
	ErrReasonNeeded  = errors.New("rental: manual debt needs a reason")
)
