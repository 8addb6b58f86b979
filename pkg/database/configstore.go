package database

import (
	"context"
	"database/sql"
	"errors"

	"spend-reconcile/pkg/models"
)

// ConfigStore reads the project / currency / rate configuration tables in
// the MySQL store. Every query is read-only; "most recent by creation
// time" is the only ordering rule used to disambiguate corrections.
// Callers decide how a missing record degrades, so the store itself does
// no logging.
type ConfigStore struct {
	db *sql.DB
}

func NewConfigStore(db *sql.DB) *ConfigStore {
	return &ConfigStore{db: db}
}

// ProjectByPN returns the most recent enabled project record for pn, or
// nil when no record exists.
func (s *ConfigStore) ProjectByPN(ctx context.Context, pn string) (*models.ProjectConfig, error) {
	const q = `
		SELECT pn, extra_rate, enable, create_time
		FROM project
		WHERE pn = ? AND enable = 1
		ORDER BY create_time DESC
		LIMIT 1`

	var (
		p     models.ProjectConfig
		extra sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, q, pn).Scan(&p.PN, &extra, &p.Enabled, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.ExtraRate = 1.0
	if extra.Valid {
		p.ExtraRate = extra.Float64
	}
	return &p, nil
}

// CurrencyByPN returns the most recent currency assigned to pn, or ""
// when the project has no currency configuration.
func (s *ConfigStore) CurrencyByPN(ctx context.Context, pn string) (string, error) {
	const q = `
		SELECT currency
		FROM project_currency_config
		WHERE pn = ?
		ORDER BY created DESC
		LIMIT 1`

	var currency string
	err := s.db.QueryRowContext(ctx, q, pn).Scan(&currency)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return currency, nil
}

// RateFor returns the most recent rate for (dates, base, symbols), or nil
// when no rate row exists for that day and pair.
func (s *ConfigStore) RateFor(ctx context.Context, dates, base, symbols string) (*float64, error) {
	const q = `
		SELECT rate
		FROM rate
		WHERE dates = ? AND base = ? AND symbols = ?
		ORDER BY created DESC
		LIMIT 1`

	var rate sql.NullFloat64
	err := s.db.QueryRowContext(ctx, q, dates, base, symbols).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !rate.Valid {
		return nil, nil
	}
	return &rate.Float64, nil
}

// PNByChannel resolves a channel code to its project through the
// sub_channel → channel → project chain, or "" when unmapped.
func (s *ConfigStore) PNByChannel(ctx context.Context, channelCode string) (string, error) {
	const q = `
		SELECT p.pn
		FROM project p
		WHERE p.id = (
			SELECT c.project_id
			FROM channel c
			WHERE c.id = (
				SELECT sc.channel_id
				FROM sub_channel sc
				WHERE sc.channel_code = ?
			)
		)`

	var pn string
	err := s.db.QueryRowContext(ctx, q, channelCode).Scan(&pn)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return pn, nil
}
