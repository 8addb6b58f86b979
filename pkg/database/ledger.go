package database

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"
)

// Ledger sums spend rows in the adjust_cost_record table (Postgres).
// Every lookup degrades to 0.0 on failure: a cost lookup must never abort
// the reconciliation run for other channels or campaigns.
type Ledger struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

func NewLedger(db *sql.DB, log *zap.SugaredLogger) *Ledger {
	return &Ledger{db: db, log: log}
}

// SumCostByCampaign sums the ledger cost for one (date, campaign). An
// empty campaign id is an immediate zero without querying.
func (l *Ledger) SumCostByCampaign(ctx context.Context, dates, campaignID string) float64 {
	if strings.TrimSpace(campaignID) == "" {
		return 0
	}
	const q = `SELECT SUM(cost) FROM adjust_cost_record WHERE dates = $1 AND campaign_id = $2`
	return l.sum(ctx, q, []any{dates, campaignID}, "campaign_id", campaignID)
}

// SumCostByCampaignChannel sums the ledger cost for one
// (date, campaign, channel).
func (l *Ledger) SumCostByCampaignChannel(ctx context.Context, dates, campaignID, channel string) float64 {
	if strings.TrimSpace(campaignID) == "" {
		return 0
	}
	const q = `SELECT SUM(cost) FROM adjust_cost_record WHERE dates = $1 AND campaign_id = $2 AND channel = $3`
	return l.sum(ctx, q, []any{dates, campaignID, channel}, "campaign_id", campaignID)
}

// SumCostByChannel sums the whole channel's ledger cost for one date.
func (l *Ledger) SumCostByChannel(ctx context.Context, dates, channel string) float64 {
	if strings.TrimSpace(channel) == "" {
		return 0
	}
	const q = `SELECT SUM(cost) FROM adjust_cost_record WHERE dates = $1 AND channel = $2`
	return l.sum(ctx, q, []any{dates, channel}, "channel", channel)
}

// sum collapses "no rows" and "sum is NULL" to 0.0 and logs store errors
// instead of returning them.
func (l *Ledger) sum(ctx context.Context, q string, args []any, keyName, keyValue string) float64 {
	var cost sql.NullFloat64
	if err := l.db.QueryRowContext(ctx, q, args...).Scan(&cost); err != nil {
		l.log.Errorw("cost lookup failed", keyName, keyValue, "err", err)
		return 0
	}
	if !cost.Valid {
		return 0
	}
	return cost.Float64
}
