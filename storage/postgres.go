package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"kosoku-tracker/models"
)

// PostgresRepository stores subscriptions, tracking state and the station
// name cache in PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository opens a connection to PostgreSQL, runs schema
// migrations, and returns a ready-to-use repository.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	r := &PostgresRepository{db: db}
	if err := r.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return r, nil
}

func (r *PostgresRepository) migrate() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS subscriptions (
			id                        SERIAL PRIMARY KEY,
			user_name                 TEXT        NOT NULL,
			webhook_url               TEXT        NOT NULL,
			area_id                   VARCHAR(20) NOT NULL,
			route_id                  VARCHAR(20) NOT NULL,
			on_station_cd             VARCHAR(20) NOT NULL,
			off_station_cd            VARCHAR(20) NOT NULL,
			date_start                VARCHAR(10) NOT NULL,
			date_end                  VARCHAR(10) NOT NULL,
			departure_from            VARCHAR(5),
			departure_until           VARCHAR(5),
			adult_male                INT NOT NULL DEFAULT 0,
			adult_female              INT NOT NULL DEFAULT 0,
			child_male                INT NOT NULL DEFAULT 0,
			child_female              INT NOT NULL DEFAULT 0,
			handicapped_adult_male    INT NOT NULL DEFAULT 0,
			handicapped_adult_female  INT NOT NULL DEFAULT 0,
			handicapped_child_male    INT NOT NULL DEFAULT 0,
			handicapped_child_female  INT NOT NULL DEFAULT 0,
			interval_seconds          INT NOT NULL DEFAULT 300,
			notify_on_change_only     BOOLEAN NOT NULL DEFAULT TRUE,
			enabled                   BOOLEAN NOT NULL DEFAULT TRUE
		);

		CREATE TABLE IF NOT EXISTS tracking_state (
			subscription_id INT PRIMARY KEY REFERENCES subscriptions(id) ON DELETE CASCADE,
			last_seen_hash  TEXT        NOT NULL DEFAULT '',
			last_check      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			total_checks    BIGINT      NOT NULL DEFAULT 0,
			total_alerts    BIGINT      NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS stations (
			id   VARCHAR(20) PRIMARY KEY,
			name TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_subscriptions_enabled ON subscriptions(enabled);
	`)
	return err
}

// ActiveSubscriptions returns every enabled subscription in id order.
func (r *PostgresRepository) ActiveSubscriptions(ctx context.Context) ([]*models.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_name, webhook_url, area_id, route_id,
		       on_station_cd, off_station_cd, date_start, date_end,
		       departure_from, departure_until,
		       adult_male, adult_female, child_male, child_female,
		       handicapped_adult_male, handicapped_adult_female,
		       handicapped_child_male, handicapped_child_female,
		       interval_seconds, notify_on_change_only, enabled
		FROM subscriptions
		WHERE enabled
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: active subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		s := &models.Subscription{}
		var from, until sql.NullString
		if err := rows.Scan(
			&s.ID, &s.UserName, &s.WebhookURL, &s.AreaID, &s.RouteID,
			&s.DepartureStationID, &s.ArrivalStationID, &s.Window.Start, &s.Window.End,
			&from, &until,
			&s.Passengers.AdultMale, &s.Passengers.AdultFemale,
			&s.Passengers.ChildMale, &s.Passengers.ChildFemale,
			&s.Passengers.HandicappedAdultMale, &s.Passengers.HandicappedAdultFemale,
			&s.Passengers.HandicappedChildMale, &s.Passengers.HandicappedChildFemale,
			&s.IntervalSeconds, &s.NotifyOnChangeOnly, &s.Enabled,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan subscription: %w", err)
		}
		if from.Valid || until.Valid {
			s.Departure = &models.DepartureWindow{From: from.String, Until: until.String}
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// TrackingState returns the subscription's baseline or ErrNotFound.
func (r *PostgresRepository) TrackingState(ctx context.Context, subscriptionID int64) (*models.TrackingState, error) {
	st := &models.TrackingState{SubscriptionID: subscriptionID}
	err := r.db.QueryRowContext(ctx, `
		SELECT last_seen_hash, last_check, total_checks, total_alerts
		FROM tracking_state
		WHERE subscription_id = $1
	`, subscriptionID).Scan(&st.LastSeenHash, &st.LastCheck, &st.TotalChecks, &st.TotalAlerts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: tracking state %d: %w", subscriptionID, err)
	}
	return st, nil
}

// SaveTrackingState upserts the full baseline row.
func (r *PostgresRepository) SaveTrackingState(ctx context.Context, state *models.TrackingState) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tracking_state (subscription_id, last_seen_hash, last_check, total_checks, total_alerts)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subscription_id) DO UPDATE SET
			last_seen_hash = EXCLUDED.last_seen_hash,
			last_check     = EXCLUDED.last_check,
			total_checks   = EXCLUDED.total_checks,
			total_alerts   = EXCLUDED.total_alerts
	`, state.SubscriptionID, state.LastSeenHash, state.LastCheck, state.TotalChecks, state.TotalAlerts)
	if err != nil {
		return fmt.Errorf("postgres: save tracking state %d: %w", state.SubscriptionID, err)
	}
	return nil
}

// RecordCheck bumps the check counter and timestamp, leaving the stored
// fingerprint untouched.
func (r *PostgresRepository) RecordCheck(ctx context.Context, subscriptionID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tracking_state (subscription_id, last_check, total_checks)
		VALUES ($1, $2, 1)
		ON CONFLICT (subscription_id) DO UPDATE SET
			last_check   = EXCLUDED.last_check,
			total_checks = tracking_state.total_checks + 1
	`, subscriptionID, at)
	if err != nil {
		return fmt.Errorf("postgres: record check %d: %w", subscriptionID, err)
	}
	return nil
}

// StationName resolves a station id from the local cache.
func (r *PostgresRepository) StationName(ctx context.Context, stationID string) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx,
		`SELECT name FROM stations WHERE id = $1`, stationID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres: station name %q: %w", stationID, err)
	}
	return name, nil
}

// SaveStations refreshes the station name cache from a catalog fetch.
func (r *PostgresRepository) SaveStations(ctx context.Context, stations []models.StationDescriptor) error {
	for _, s := range stations {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO stations (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		`, s.ID, s.Name)
		if err != nil {
			return fmt.Errorf("postgres: save station %q: %w", s.ID, err)
		}
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
