package fleet

import (
	"errors"
	"time"
)

// Driver rents a fleet vehicle. AccrualStart is the first calendar day that
// bills rent; the debt engine reads it and never writes it.
type Driver struct {
	ID                string
	Name              string
	Phone             string
	AssignedVehicleID string
	AccrualStart      time.Time
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Vehicle is a rentable unit with a fixed daily rate.
type Vehicle struct {
	ID              string
	Plate           string
	Description     string
	DailyRentalCost float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateDriverInput carries the fields for a new driver.
type CreateDriverInput struct {
	Name              string
	Phone             string
	AssignedVehicleID string
	AccrualStart      time.Time
	ActorID           string
}

// CreateVehicleInput carries the fields for a new vehicle.
type CreateVehicleInput struct {
	Plate           string
	Description     string
	DailyRentalCost float64
	ActorID         string
}

var (
	ErrDriverNotFound  = errors.New("fleet: driver not found")
	ErrVehicleNotFound = errors.New("fleet: vehicle not found")
	ErrNoVehicle       = errors.New("fleet: driver has no assigned vehicle")
)
