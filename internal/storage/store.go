package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"sentinelwatch/internal/ledger"
	"sentinelwatch/internal/model"
)

// ErrNotConfigured indicates the storage pool was not initialised.
var ErrNotConfigured = errors.New("storage: pool not configured")

const (
	insertActivitySQL = `INSERT INTO activities (
        id, monitor_id, price, fee_paid, settlement_ms, proof_id,
        instrument, triggered, status, error, created_at
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`

	trimActivitiesSQL = `DELETE FROM activities
    WHERE id IN (
        SELECT id FROM activities ORDER BY created_at DESC OFFSET $1
    );`

	listRecentActivitiesSQL = `SELECT
        id, monitor_id, price, fee_paid, settlement_ms, proof_id,
        instrument, triggered, status, error, created_at
    FROM activities
    WHERE monitor_id = $1
    ORDER BY created_at DESC
    LIMIT $2;`

	activityStatsSQL = `SELECT
        COUNT(*),
        COUNT(*) FILTER (WHERE status <> 'failed'),
        COUNT(*) FILTER (WHERE status = 'failed'),
        COUNT(*) FILTER (WHERE status = 'alert'),
        COALESCE(SUM(fee_paid), 0),
        COALESCE(MAX(created_at), 'epoch'::timestamptz)
    FROM activities
    WHERE ($1 = '' OR monitor_id = $1);`

	upsertMonitorSQL = `INSERT INTO monitors (
        id, user_id, wallet, threshold, direction, instrument,
        network, active, created_at
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    ON CONFLICT (id) DO UPDATE
    SET user_id    = EXCLUDED.user_id,
        wallet     = EXCLUDED.wallet,
        threshold  = EXCLUDED.threshold,
        direction  = EXCLUDED.direction,
        instrument = EXCLUDED.instrument,
        active     = EXCLUDED.active;`

	getMonitorSQL = `SELECT id, user_id, wallet, threshold, direction,
        instrument, network, active, created_at
    FROM monitors WHERE id = $1;`

	listMonitorsSQL = `SELECT id, user_id, wallet, threshold, direction,
        instrument, network, active, created_at
    FROM monitors ORDER BY created_at, id;`

	deleteMonitorSQL          = `DELETE FROM monitors WHERE id = $1;`
	setMonitorActiveSQL       = `UPDATE monitors SET active = $2 WHERE id = $1;`
	updateMonitorThresholdSQL = `UPDATE monitors SET threshold = $2 WHERE id = $1;`
)

// Store mirrors the in-memory ledger and monitor registry in Postgres.
// The network column is deliberately absent from the upsert's update
// set: a monitor's network binding cannot be rewritten.
type Store struct {
	pool *pgxpool.Pool
	cap  int
}

// NewStore wires a pgx pool into a Store. cap bounds the trailing
// activity window kept in the table.
func NewStore(pool *pgxpool.Pool, cap int) *Store {
	if cap <= 0 {
		cap = ledger.DefaultCap
	}
	return &Store{pool: pool, cap: cap}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// Append persists one activity and trims the window past the cap.
func (s *Store) Append(ctx context.Context, activity model.Activity) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var errMsg interface{}
	if activity.Error != "" {
		errMsg = activity.Error
	}

	if _, execErr := pool.Exec(ctx, insertActivitySQL,
		activity.ID,
		activity.MonitorID,
		activity.Price.String(),
		activity.FeePaid.String(),
		activity.Settlement.Milliseconds(),
		activity.ProofID,
		string(activity.Instrument),
		activity.Triggered,
		string(activity.Status),
		errMsg,
		activity.Timestamp,
	); execErr != nil {
		return fmt.Errorf("insert activity: %w", execErr)
	}

	if _, execErr := pool.Exec(ctx, trimActivitiesSQL, s.cap); execErr != nil {
		return fmt.Errorf("trim activities: %w", execErr)
	}
	return nil
}

// RecentFor lists up to n activities for a monitor, newest first.
func (s *Store) RecentFor(ctx context.Context, monitorID string, n int) ([]model.Activity, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = s.cap
	}

	rows, queryErr := pool.Query(ctx, listRecentActivitiesSQL, monitorID, n)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent activities: %w", queryErr)
	}
	defer rows.Close()

	activities := make([]model.Activity, 0, n)
	for rows.Next() {
		activity, scanErr := scanActivity(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		activities = append(activities, activity)
	}
	return activities, rows.Err()
}

// Stats aggregates activity outcomes; empty monitorID covers all.
func (s *Store) Stats(ctx context.Context, monitorID string) (ledger.Stats, error) {
	pool, err := s.getPool()
	if err != nil {
		return ledger.Stats{}, err
	}

	var stats ledger.Stats
	var fees string
	if scanErr := pool.QueryRow(ctx, activityStatsSQL, monitorID).Scan(
		&stats.Total,
		&stats.Success,
		&stats.Failed,
		&stats.Alerts,
		&fees,
		&stats.LastCheck,
	); scanErr != nil {
		return ledger.Stats{}, fmt.Errorf("activity stats: %w", scanErr)
	}

	parsed, convErr := decimal.NewFromString(fees)
	if convErr != nil {
		return ledger.Stats{}, fmt.Errorf("parse fees: %w", convErr)
	}
	stats.FeesPaid = parsed
	return stats, nil
}

// Put inserts or updates a monitor; the stored network wins on update.
func (s *Store) Put(ctx context.Context, monitor *model.Monitor) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, execErr := pool.Exec(ctx, upsertMonitorSQL,
		monitor.ID,
		monitor.UserID,
		monitor.Wallet,
		monitor.Threshold.String(),
		string(monitor.Direction),
		string(monitor.Instrument),
		string(monitor.Network),
		monitor.Active,
		monitor.CreatedAt,
	); execErr != nil {
		return fmt.Errorf("upsert monitor: %w", execErr)
	}
	return nil
}

// Get loads one monitor.
func (s *Store) Get(ctx context.Context, id string) (*model.Monitor, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, getMonitorSQL, id)
	if queryErr != nil {
		return nil, fmt.Errorf("get monitor: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return nil, rows.Err()
		}
		return nil, ledger.ErrMonitorNotFound
	}
	monitor, scanErr := scanMonitor(rows)
	if scanErr != nil {
		return nil, scanErr
	}
	return &monitor, nil
}

// List loads all monitors ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*model.Monitor, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listMonitorsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list monitors: %w", queryErr)
	}
	defer rows.Close()

	monitors := make([]*model.Monitor, 0)
	for rows.Next() {
		monitor, scanErr := scanMonitor(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		copied := monitor
		monitors = append(monitors, &copied)
	}
	return monitors, rows.Err()
}

// Delete removes a monitor; activities are kept until trimmed.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.execOnMonitor(ctx, deleteMonitorSQL, id)
}

// SetActive pauses or resumes a monitor.
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	return s.execOnMonitor(ctx, setMonitorActiveSQL, id, active)
}

// UpdateThreshold changes the alert threshold.
func (s *Store) UpdateThreshold(ctx context.Context, id string, threshold decimal.Decimal) error {
	return s.execOnMonitor(ctx, updateMonitorThresholdSQL, id, threshold.String())
}

func (s *Store) execOnMonitor(ctx context.Context, query string, id string, args ...interface{}) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, query, append([]interface{}{id}, args...)...)
	if execErr != nil {
		return fmt.Errorf("monitor update: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return ledger.ErrMonitorNotFound
	}
	return nil
}

func scanActivity(rows pgx.Rows) (model.Activity, error) {
	var (
		activity     model.Activity
		priceStr     string
		feeStr       string
		settlementMS int64
		instrument   string
		status       string
		errMsg       sql.NullString
	)

	if err := rows.Scan(
		&activity.ID,
		&activity.MonitorID,
		&priceStr,
		&feeStr,
		&settlementMS,
		&activity.ProofID,
		&instrument,
		&activity.Triggered,
		&status,
		&errMsg,
		&activity.Timestamp,
	); err != nil {
		return model.Activity{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return model.Activity{}, fmt.Errorf("parse price: %w", err)
	}
	fee, err := decimal.NewFromString(feeStr)
	if err != nil {
		return model.Activity{}, fmt.Errorf("parse fee: %w", err)
	}

	activity.Price = price
	activity.FeePaid = fee
	activity.Settlement = time.Duration(settlementMS) * time.Millisecond
	activity.Instrument = model.Instrument(instrument)
	activity.Status = model.ActivityStatus(status)
	if errMsg.Valid {
		activity.Error = errMsg.String
	}
	return activity, nil
}

func scanMonitor(rows pgx.Rows) (model.Monitor, error) {
	var (
		monitor      model.Monitor
		thresholdStr string
		direction    string
		instrument   string
		network      string
	)

	if err := rows.Scan(
		&monitor.ID,
		&monitor.UserID,
		&monitor.Wallet,
		&thresholdStr,
		&direction,
		&instrument,
		&network,
		&monitor.Active,
		&monitor.CreatedAt,
	); err != nil {
		return model.Monitor{}, err
	}

	threshold, err := decimal.NewFromString(thresholdStr)
	if err != nil {
		return model.Monitor{}, fmt.Errorf("parse threshold: %w", err)
	}

	monitor.Threshold = threshold
	monitor.Direction = model.Direction(direction)
	monitor.Instrument = model.Instrument(instrument)
	monitor.Network = model.Network(network)
	return monitor, nil
}

var (
	_ ledger.ActivityLedger = (*Store)(nil)
	_ ledger.MonitorStore   = (*Store)(nil)
)
