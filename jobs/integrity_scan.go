package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IntegrityScanJob is a read-only detector. It never repairs anything; it
// reports where a running balance has drifted from the records it summarizes
// so an operator can investigate the originating transaction.
type IntegrityScanJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewIntegrityScanJob initialises the integrity scan handler.
func NewIntegrityScanJob(pool *pgxpool.Pool, logger *slog.Logger) *IntegrityScanJob {
	return &IntegrityScanJob{
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type debtDrift struct {
	SupplierID   string
	SupplierName string
	Running      float64
	Derived      float64
}

// Handle executes the integrity scan logic.
func (j *IntegrityScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("integrity scan: handler not configured")
	}
	var payload IntegrityScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.DebtTolerance <= 0 {
		payload.DebtTolerance = 0.01
	}

	start := j.now()
	logger := j.logger().With(slog.Float64("debt_tolerance", payload.DebtTolerance))
	logger.Info("starting integrity scan")

	drifts, err := j.scanSupplierDebt(ctx, payload.DebtTolerance)
	if err != nil {
		logger.Error("supplier debt scan failed", slog.Any("error", err))
		return err
	}
	for _, d := range drifts {
		logger.Warn("supplier debt drift detected",
			slog.String("supplier_id", d.SupplierID),
			slog.String("supplier", d.SupplierName),
			slog.Float64("running", d.Running),
			slog.Float64("derived", d.Derived),
			slog.Float64("delta", d.Running-d.Derived),
		)
	}

	negatives, err := j.scanNegativeStock(ctx)
	if err != nil {
		logger.Error("negative stock scan failed", slog.Any("error", err))
		return err
	}
	for _, id := range negatives {
		logger.Warn("negative physical stock detected", slog.String("item_id", id))
	}

	logger.Info("completed integrity scan",
		slog.Int("debt_drifts", len(drifts)),
		slog.Int("negative_stock_items", len(negatives)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// scanSupplierDebt compares each supplier's running debt against the sum of
// its open payable balances.
func (j *IntegrityScanJob) scanSupplierDebt(ctx context.Context, tolerance float64) ([]debtDrift, error) {
	rows, err := j.Pool.Query(ctx, `SELECT s.id, s.name, s.debt_amount,
			COALESCE(SUM(a.total_amount - a.paid_amount) FILTER (WHERE a.status <> 'PAID'), 0) AS derived
		FROM suppliers s
		LEFT JOIN payable_accounts a ON a.supplier_id = s.id
		GROUP BY s.id, s.name, s.debt_amount`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drifts []debtDrift
	for rows.Next() {
		var d debtDrift
		if err := rows.Scan(&d.SupplierID, &d.SupplierName, &d.Running, &d.Derived); err != nil {
			return nil, err
		}
		if math.Abs(d.Running-d.Derived) > tolerance {
			drifts = append(drifts, d)
		}
	}
	return drifts, rows.Err()
}

func (j *IntegrityScanJob) scanNegativeStock(ctx context.Context) ([]string, error) {
	rows, err := j.Pool.Query(ctx, `SELECT id FROM stock_items WHERE is_service = FALSE AND quantity < 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (j *IntegrityScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *IntegrityScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
