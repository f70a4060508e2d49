package cashbox

import (
	"errors"
	"time"
)

// Direction marks which way cash moved through the drawer.
type Direction string

const (
	// DirectionIn represents cash entering the drawer.
	DirectionIn Direction = "IN"
	// DirectionOut represents cash leaving the drawer.
	DirectionOut Direction = "OUT"
)

// Entry is one movement of physical cash. The ledger is append-only: rows are
// never edited, only added, or deleted as part of a compensating reversal of
// the originating transaction. Card and transfer payment legs never reach
// this ledger.
type Entry struct {
	ID          string
	OccurredAt  time.Time
	Direction   Direction
	Amount      float64
	Concept     string
	RelatedType string
	RelatedID   string
	ActorID     string
}

// Summary aggregates drawer movement over a window.
type Summary struct {
	TotalIn  float64
	TotalOut float64
	Net      float64
}

// ListFilter narrows entry listings.
type ListFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

// ErrInvalidAmount indicates a non-positive entry amount.
var ErrInvalidAmount = errors.New("cashbox: amount must be positive")
