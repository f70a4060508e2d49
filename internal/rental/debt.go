package rental

import (
	"time"

	"github.com/motriz-erp/motriz-erp/internal/fleet"
)

// ChargedDays counts the calendar days a driver owes rent for: every day from
// the accrual start inclusive up to the current day exclusive. The start day
// itself bills at the following midnight, so a driver who started today owes
// zero days. Only date parts matter; clock time never shifts a charge.
func ChargedDays(accrualStart, now time.Time) int {
	start := dateOnly(accrualStart)
	today := dateOnly(now)
	if !today.After(start) {
		return 0
	}
	return int(today.Sub(start).Hours() / 24)
}

// CalculateDriverDebt recomputes a driver's position from full history. The
// computation is a plain sum, so the result is independent of the order
// payments and charges are supplied in. Payments' DaysCovered is display
// metadata and is deliberately ignored here.
//
//	balance = Σ payments − chargedDays × dailyRate − Σ manual debts
//
// A negative balance means the driver owes the workshop.
func CalculateDriverDebt(driver fleet.Driver, vehicle fleet.Vehicle, payments []RentalPayment, manualDebts []ManualDebtEntry, now time.Time) Balance {
	days := ChargedDays(driver.AccrualStart, now)
	rent := float64(days) * vehicle.DailyRentalCost

	var paid float64
	for _, p := range payments {
		paid += p.Amount
	}
	var manual float64
	for _, m := range manualDebts {
		manual += m.Amount
	}

	return Balance{
		DriverID:     driver.ID,
		DriverName:   driver.Name,
		VehiclePlate: vehicle.Plate,
		DailyRate:    vehicle.DailyRentalCost,
		ChargedDays:  days,
		RentCharged:  rent,
		ManualDebt:   manual,
		TotalPaid:    paid,
		Balance:      paid - rent - manual,
		AsOf:         now,
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
