package fleet

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists fleet master data in PostgreSQL. Drivers and vehicles
// are read-mostly; writes happen outside the money paths.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const driverSelect = `SELECT id, name, COALESCE(phone, ''), COALESCE(assigned_vehicle_id, ''), accrual_start, active, created_at, updated_at FROM drivers`

const vehicleSelect = `SELECT id, plate, COALESCE(description, ''), daily_rental_cost, created_at, updated_at FROM vehicles`

// GetDriver loads one driver.
func (r *Repository) GetDriver(ctx context.Context, id string) (Driver, error) {
	return scanDriver(r.pool.QueryRow(ctx, driverSelect+` WHERE id = $1`, id))
}

// ListDrivers returns drivers ordered by name. Inactive drivers are included
// so statements stay reachable after a driver leaves.
func (r *Repository) ListDrivers(ctx context.Context) ([]Driver, error) {
	rows, err := r.pool.Query(ctx, driverSelect+` ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var drivers []Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

// GetVehicle loads one vehicle.
func (r *Repository) GetVehicle(ctx context.Context, id string) (Vehicle, error) {
	return scanVehicle(r.pool.QueryRow(ctx, vehicleSelect+` WHERE id = $1`, id))
}

// ListVehicles returns vehicles ordered by plate.
func (r *Repository) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	rows, err := r.pool.Query(ctx, vehicleSelect+` ORDER BY plate ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var vehicles []Vehicle
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, vehicle)
	}
	return vehicles, rows.Err()
}

// InsertDriver stores a new driver.
func (r *Repository) InsertDriver(ctx context.Context, d Driver) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO drivers (id, name, phone, assigned_vehicle_id, accrual_start, active, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)`,
		d.ID, d.Name, d.Phone, d.AssignedVehicleID, d.AccrualStart, d.Active, d.CreatedAt, d.UpdatedAt)
	return err
}

// InsertVehicle stores a new vehicle.
func (r *Repository) InsertVehicle(ctx context.Context, v Vehicle) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO vehicles (id, plate, description, daily_rental_cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ID, v.Plate, v.Description, v.DailyRentalCost, v.CreatedAt, v.UpdatedAt)
	return err
}

func scanDriver(row pgx.Row) (Driver, error) {
	var d Driver
	err := row.Scan(&d.ID, &d.Name, &d.Phone, &d.AssignedVehicleID, &d.AccrualStart, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Driver{}, ErrDriverNotFound
	}
	return d, err
}

func scanVehicle(row pgx.Row) (Vehicle, error) {
	var v Vehicle
	err := row.Scan(&v.ID, &v.Plate, &v.Description, &v.DailyRentalCost, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Vehicle{}, ErrVehicleNotFound
	}
	return v, err
}
