package payables

import (
	"errors"
	"time"
)

// AccountStatus tracks how much of a supplier invoice has been settled.
type AccountStatus string

const (
	StatusPending AccountStatus = "PENDING"
	StatusPartial AccountStatus = "PARTIAL"
	StatusPaid    AccountStatus = "PAID"
)

// PurchaseTerms distinguishes invoices paid on the spot from credit lines.
type PurchaseTerms string

const (
	TermsCredit    PurchaseTerms = "CREDIT"
	TermsImmediate PurchaseTerms = "IMMEDIATE"
)

// PaymentMethod for settlements. Only CASH touches the drawer.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "CASH"
	MethodCard     PaymentMethod = "CARD"
	MethodTransfer PaymentMethod = "TRANSFER"
)

// settleEpsilon is the tolerance for deciding an account is fully paid and
// for rejecting over-payment. Amounts are pesos with centavo precision.
const settleEpsilon = 0.01

// Supplier is a creditor. DebtAmount is maintained incrementally inside the
// same transaction as every payable mutation; the scheduled integrity scan
// reports drift against the sum of open account balances.
type Supplier struct {
	ID         string
	Name       string
	Phone      string
	DebtAmount float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PayableAccount is one supplier invoice bought on credit.
type PayableAccount struct {
	ID          string
	SupplierID  string
	InvoiceRef  string
	TotalAmount float64
	PaidAmount  float64
	DueDate     time.Time
	Status      AccountStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Remaining is the unsettled portion of the invoice.
func (a PayableAccount) Remaining() float64 {
	return a.TotalAmount - a.PaidAmount
}

// PurchaseLineInput is one received line of a supplier purchase.
type PurchaseLineInput struct {
	ItemID   string
	Quantity float64
	UnitCost float64
}

// PurchaseInput describes a supplier purchase. Credit terms open a payable
// account; immediate terms pay out of the drawer on the spot.
type PurchaseInput struct {
	SupplierID string
	InvoiceRef string
	Terms      PurchaseTerms
	DueDate    time.Time
	Lines      []PurchaseLineInput
	ActorID    string
}

// CreateSupplierInput carries the fields for a new supplier.
type CreateSupplierInput struct {
	Name    string
	Phone   string
	ActorID string
}

var (
	ErrSupplierNotFound = errors.New("payables: supplier not found")
	ErrAccountNotFound  = errors.New("payables: account not found")
	ErrOverPayment      = errors.New("payables: payment exceeds remaining balance")
	ErrInvalidAmount    = errors.New("payables: amount must be positive")
	ErrEmptyPurchase    = errors.New("payables: purchase needs at least one line")
)
