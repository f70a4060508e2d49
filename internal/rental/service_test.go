package rental

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/motriz-erp/motriz-erp/internal/cashbox"
	"github.com/motriz-erp/motriz-erp/internal/fleet"
)

type memoryRepo struct {
	payments map[string][]RentalPayment
	debts    map[string][]ManualDebtEntry
	cash     []cashbox.Entry
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		payments: make(map[string][]RentalPayment),
		debts:    make(map[string][]ManualDebtEntry),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) ListPayments(ctx context.Context, driverID string) ([]RentalPayment, error) {
	return r.payments[driverID], nil
}

func (r *memoryRepo) ListManualDebts(ctx context.Context, driverID string) ([]ManualDebtEntry, error) {
	return r.debts[driverID], nil
}

func (r *memoryRepo) InsertPayment(ctx context.Context, p RentalPayment) error {
	r.payments[p.DriverID] = append(r.payments[p.DriverID], p)
	return nil
}

func (r *memoryRepo) InsertManualDebt(ctx context.Context, m ManualDebtEntry) error {
	r.debts[m.DriverID] = append(r.debts[m.DriverID], m)
	return nil
}

func (r *memoryRepo) InsertCashEntry(ctx context.Context, entry cashbox.Entry) error {
	r.cash = append(r.cash, entry)
	return nil
}

type memoryFleet struct {
	drivers  map[string]fleet.Driver
	vehicles map[string]fleet.Vehicle
}

func (f *memoryFleet) GetDriver(ctx context.Context, id string) (fleet.Driver, error) {
	driver, ok := f.drivers[id]
	if !ok {
		return fleet.Driver{}, fleet.ErrDriverNotFound
	}
	return driver, nil
}

func (f *memoryFleet) GetVehicle(ctx context.Context, id string) (fleet.Vehicle, error) {
	vehicle, ok := f.vehicles[id]
	if !ok {
		return fleet.Vehicle{}, fleet.ErrVehicleNotFound
	}
	return vehicle, nil
}

func fixture() (*memoryRepo, *memoryFleet, *Service) {
	repo := newMemoryRepo()
	fleetData := &memoryFleet{
		drivers: map[string]fleet.Driver{
			"drv-1": {ID: "drv-1", Name: "Pedro Salas", AssignedVehicleID: "veh-1", AccrualStart: day(2026, 3, 1)},
			"drv-2": {ID: "drv-2", Name: "Sin Unidad"},
		},
		vehicles: map[string]fleet.Vehicle{
			"veh-1": {ID: "veh-1", Plate: "XYZ-987-A", DailyRentalCost: 200},
		},
	}
	svc := NewService(repo, fleetData, nil).WithClock(func() time.Time { return day(2026, 3, 11) })
	return repo, fleetData, svc
}

func TestAddRentalPaymentSnapshotsPlateAndDaysCovered(t *testing.T) {
	repo, _, svc := fixture()

	payment, err := svc.AddRentalPayment(context.Background(), PaymentInput{
		DriverID: "drv-1",
		Amount:   500,
		Method:   MethodCash,
		ActorID:  "cashier-1",
	})
	require.NoError(t, err)
	require.Equal(t, "XYZ-987-A", payment.VehiclePlate)
	require.InDelta(t, 2.5, payment.DaysCovered, 0.001)

	require.Len(t, repo.cash, 1)
	require.Equal(t, cashbox.DirectionIn, repo.cash[0].Direction)
	require.InDelta(t, 500.0, repo.cash[0].Amount, 0.001)
	require.Equal(t, payment.ID, repo.cash[0].RelatedID)
}

func TestAddRentalPaymentTransferSkipsDrawer(t *testing.T) {
	repo, _, svc := fixture()

	_, err := svc.AddRentalPayment(context.Background(), PaymentInput{
		DriverID: "drv-1",
		Amount:   800,
		Method:   MethodTransfer,
	})
	require.NoError(t, err)
	require.Empty(t, repo.cash)
	require.Len(t, repo.payments["drv-1"], 1)
}

func TestAddRentalPaymentValidation(t *testing.T) {
	_, _, svc := fixture()
	ctx := context.Background()

	_, err := svc.AddRentalPayment(ctx, PaymentInput{DriverID: "drv-1", Amount: 0, Method: MethodCash})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.AddRentalPayment(ctx, PaymentInput{DriverID: "missing", Amount: 100, Method: MethodCash})
	require.ErrorIs(t, err, fleet.ErrDriverNotFound)

	_, err = svc.AddRentalPayment(ctx, PaymentInput{DriverID: "drv-2", Amount: 100, Method: MethodCash})
	require.ErrorIs(t, err, fleet.ErrNoVehicle)
}

func TestAddManualDebtNeedsReason(t *testing.T) {
	_, _, svc := fixture()

	_, err := svc.AddManualDebt(context.Background(), ManualDebtInput{DriverID: "drv-1", Amount: 100})
	require.ErrorIs(t, err, ErrReasonNeeded)
}

func TestDriverStatementRecomputesFromHistory(t *testing.T) {
	_, _, svc := fixture()
	ctx := context.Background()

	_, err := svc.AddRentalPayment(ctx, PaymentInput{DriverID: "drv-1", Amount: 800, Method: MethodCash})
	require.NoError(t, err)
	_, err = svc.AddRentalPayment(ctx, PaymentInput{DriverID: "drv-1", Amount: 700, Method: MethodTransfer})
	require.NoError(t, err)
	_, err = svc.AddManualDebt(ctx, ManualDebtInput{DriverID: "drv-1", Amount: 100, Reason: "multa"})
	require.NoError(t, err)

	statement, err := svc.DriverStatement(ctx, "drv-1")
	require.NoError(t, err)
	require.Equal(t, 10, statement.Balance.ChargedDays)
	require.InDelta(t, -600.0, statement.Balance.Balance, 0.001)
	require.Len(t, statement.Payments, 2)
	require.Len(t, statement.ManualDebts, 1)
}
