package sales

import (
	"errors"
	"math"
	"time"
)

// SaleStatus enumerates the sale lifecycle.
type SaleStatus string

const (
	// StatusCompleted is the state every registered sale starts in.
	StatusCompleted SaleStatus = "COMPLETED"
	// StatusCancelled marks a compensated sale. Cancelled sales keep their
	// rows; only the explicit hard delete removes them.
	StatusCancelled SaleStatus = "CANCELLED"
)

// PaymentMethod enumerates accepted tender types.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "CASH"
	MethodCard     PaymentMethod = "CARD"
	MethodCardMSI  PaymentMethod = "CARD_MSI"
	MethodTransfer PaymentMethod = "TRANSFER"
)

// VATRate is the fixed value-added tax rate extracted from tax-inclusive
// totals. Not configurable.
const VATRate = 0.16

// moneyEpsilon is the tolerance used when comparing currency amounts.
const moneyEpsilon = 0.01

// Sale is a completed point-of-sale checkout.
type Sale struct {
	ID           string
	Folio        int64
	Lines        []SaleLine
	PaymentLegs  []PaymentLeg
	Subtotal     float64
	Tax          float64
	Total        float64
	Status       SaleStatus
	CancelReason string
	CreatedBy    string
	CreatedAt    time.Time
	CancelledAt  *time.Time
}

// SaleLine is one cart line. Totals are tax inclusive.
type SaleLine struct {
	ItemID    string
	Name      string
	Quantity  float64
	UnitPrice float64
	Total     float64
	IsService bool
}

// PaymentLeg is one tender applied to the sale. Only cash legs reach the
// drawer ledger.
type PaymentLeg struct {
	Method    PaymentMethod
	Amount    float64
	Reference string
}

// RegisterSaleInput describes a checkout request.
type RegisterSaleInput struct {
	SaleID      string
	Lines       []LineInput
	PaymentLegs []LegInput
	ActorID     string
}

// LineInput is one requested cart line. A zero UnitPrice falls back to the
// item's selling price.
type LineInput struct {
	ItemID    string
	Quantity  float64
	UnitPrice float64
}

// LegInput is one requested payment leg.
type LegInput struct {
	Method    PaymentMethod
	Amount    float64
	Reference string
}

// ListFilter narrows sale listings.
type ListFilter struct {
	Status SaleStatus
	From   time.Time
	To     time.Time
	Limit  int
}

var (
	// ErrEmptyCart indicates a checkout without lines.
	ErrEmptyCart = errors.New("sales: cart has no lines")
	// ErrSaleNotFound indicates a missing sale.
	ErrSaleNotFound = errors.New("sales: sale not found")
	// ErrDuplicateSale indicates a replayed sale id.
	ErrDuplicateSale = errors.New("sales: sale already registered")
	// ErrPaymentMismatch indicates legs that do not cover the total.
	ErrPaymentMismatch = errors.New("sales: payment legs do not sum to total")
	// ErrSaleCancelled indicates an operation not allowed on a cancelled sale.
	ErrSaleCancelled = errors.New("sales: sale is cancelled")
)

// ExtractVAT splits a tax-inclusive total into subtotal and tax at the fixed
// rate: subtotal = total / 1.16, tax = total - subtotal.
func ExtractVAT(total float64) (subtotal, tax float64) {
	subtotal = total / (1 + VATRate)
	tax = total - subtotal
	return subtotal, tax
}

// ValidMethod reports whether the tender type is accepted.
func ValidMethod(m PaymentMethod) bool {
	switch m {
	case MethodCash, MethodCard, MethodCardMSI, MethodTransfer:
		return true
	}
	return false
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= moneyEpsilon
}
