package rental

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/motriz-erp/motriz-erp/internal/fleet"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestChargedDaysPolicy(t *testing.T) {
	start := day(2026, 3, 1)

	// the start day itself bills at the next midnight
	require.Equal(t, 0, ChargedDays(start, day(2026, 3, 1)))
	require.Equal(t, 0, ChargedDays(start, start.Add(23*time.Hour)))
	require.Equal(t, 1, ChargedDays(start, day(2026, 3, 2)))

	// clock time on the current day never adds a charge
	require.Equal(t, 1, ChargedDays(start, day(2026, 3, 2).Add(18*time.Hour)))

	// ten elapsed days charge ten days
	require.Equal(t, 10, ChargedDays(start, day(2026, 3, 11)))

	// a start timestamp late in the day counts the same as midnight
	require.Equal(t, 10, ChargedDays(start.Add(22*time.Hour), day(2026, 3, 11)))

	// accrual start in the future charges nothing
	require.Equal(t, 0, ChargedDays(day(2026, 3, 5), day(2026, 3, 1)))
}

func TestCalculateDriverDebtScenario(t *testing.T) {
	driver := fleet.Driver{ID: "drv-1", Name: "Pedro Salas", AccrualStart: day(2026, 3, 1)}
	vehicle := fleet.Vehicle{ID: "veh-1", Plate: "XYZ-987-A", DailyRentalCost: 200}

	payments := []RentalPayment{
		{Amount: 800, PaidAt: day(2026, 3, 4)},
		{Amount: 700, PaidAt: day(2026, 3, 9)},
	}
	manual := []ManualDebtEntry{
		{Amount: 100, Reason: "multa de tránsito"},
	}

	// 1500 paid − 10×200 rent − 100 manual = −600
	balance := CalculateDriverDebt(driver, vehicle, payments, manual, day(2026, 3, 11))
	require.Equal(t, 10, balance.ChargedDays)
	require.InDelta(t, 2000.0, balance.RentCharged, 0.001)
	require.InDelta(t, 1500.0, balance.TotalPaid, 0.001)
	require.InDelta(t, 100.0, balance.ManualDebt, 0.001)
	require.InDelta(t, -600.0, balance.Balance, 0.001)
}

func TestCalculateDriverDebtIgnoresDaysCovered(t *testing.T) {
	driver := fleet.Driver{ID: "drv-1", AccrualStart: day(2026, 3, 1)}
	vehicle := fleet.Vehicle{Plate: "XYZ-987-A", DailyRentalCost: 200}

	// wildly wrong DaysCovered must not move the balance
	payments := []RentalPayment{{Amount: 400, DaysCovered: 900}}
	balance := CalculateDriverDebt(driver, vehicle, payments, nil, day(2026, 3, 3))
	require.InDelta(t, 0.0, balance.Balance, 0.001)
}

func TestCalculateDriverDebtOrderIndependent(t *testing.T) {
	driver := fleet.Driver{ID: "drv-1", AccrualStart: day(2026, 3, 1)}
	vehicle := fleet.Vehicle{Plate: "XYZ-987-A", DailyRentalCost: 150}
	now := day(2026, 3, 20)

	payments := []RentalPayment{
		{Amount: 450}, {Amount: 300}, {Amount: 600}, {Amount: 150}, {Amount: 75.5},
	}
	manual := []ManualDebtEntry{
		{Amount: 120, Reason: "a"}, {Amount: 80, Reason: "b"}, {Amount: 40.25, Reason: "c"},
	}
	want := CalculateDriverDebt(driver, vehicle, payments, manual, now).Balance

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		rng.Shuffle(len(payments), func(a, b int) { payments[a], payments[b] = payments[b], payments[a] })
		rng.Shuffle(len(manual), func(a, b int) { manual[a], manual[b] = manual[b], manual[a] })
		got := CalculateDriverDebt(driver, vehicle, payments, manual, now).Balance
		require.InDelta(t, want, got, 0.0001)
	}
}

func TestCalculateDriverDebtNoHistory(t *testing.T) {
	driver := fleet.Driver{ID: "drv-2", AccrualStart: day(2026, 3, 1)}
	vehicle := fleet.Vehicle{Plate: "AAA-111-B", DailyRentalCost: 250}

	balance := CalculateDriverDebt(driver, vehicle, nil, nil, day(2026, 3, 5))
	require.Equal(t, 4, balance.ChargedDays)
	require.InDelta(t, -1000.0, balance.Balance, 0.001)
}
