package database

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"spend-reconcile/pkg/models"
)

// DetailStore retrieves the cohort detail rows of both pipelines from the
// Postgres store. Rows outside the channel's offset threshold are
// filtered in SQL, with the DEFAULT_CHANNEL_PREFIX threshold as fallback
// for channels without a dedicated config row.
type DetailStore struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

func NewDetailStore(db *sql.DB, log *zap.SugaredLogger) *DetailStore {
	return &DetailStore{db: db, log: log}
}

const trendQuery = `
	SELECT
	  'history_active_cohort_cost_calculate_trend' AS table_name,
	  hact.dates,
	  hact.bdates,
	  hact.channel,
	  hact.source,
	  hact.campaign_id,
	  hact.active,
	  hact.history_active_offset_days,
	  hact.day_recharge,
	  COALESCE(hacfd.channel_threshold_value,
	    (SELECT channel_threshold_value FROM history_active_channel_config
	     WHERE channel_prefix = 'DEFAULT_CHANNEL_PREFIX')) AS threshold_value
	FROM history_active_cohort_cost_calculate_trend hact
	LEFT JOIN history_active_channel_config_detail hacfd ON hact.channel = hacfd.channel
	WHERE hact.channel = $1
	  AND hact.dates = $2
	  AND hact.dates <= hact.bdates
	  AND hact.cohort = 0
	  AND hact.history_active_offset_days > COALESCE(
	    hacfd.channel_threshold_value,
	    (SELECT channel_threshold_value FROM history_active_channel_config
	     WHERE channel_prefix = 'DEFAULT_CHANNEL_PREFIX')
	  )
	ORDER BY hact.dates, hact.channel, hact.source, hact.campaign_id, hact.active DESC`

const campaignQuery = `
	SELECT
	  'history_active_cohort_cost_calculate_trend_campaign' AS table_name,
	  hact.id,
	  hact.dates,
	  hact.bdates,
	  hact.channel,
	  hact.source,
	  hact.campaign_id,
	  hact.active,
	  hact.history_active_offset_days,
	  hact.day_recharge,
	  hact.pn,
	  COALESCE(hacfd.channel_threshold_value,
	    (SELECT channel_threshold_value FROM history_active_channel_config
	     WHERE channel_prefix = 'DEFAULT_CHANNEL_PREFIX')) AS threshold_value
	FROM ad_keywords_campaign a, history_active_cohort_cost_calculate_trend_campaign hact
	LEFT JOIN history_active_channel_config_detail hacfd ON hact.channel = hacfd.channel
	WHERE hact.channel = $1
	  AND hact.campaign_id = a.campaign_id
	  AND hact.dates = $2
	  AND hact.cohort = 0
	  AND hact.history_active_offset_days > COALESCE(
	    hacfd.channel_threshold_value,
	    (SELECT channel_threshold_value FROM history_active_channel_config
	     WHERE channel_prefix = 'DEFAULT_CHANNEL_PREFIX')
	  )
	ORDER BY hact.dates, hact.channel, hact.source, hact.campaign_id, hact.active DESC`

// TrendRows retrieves the attribution-pipeline detail rows for one
// channel and date.
func (s *DetailStore) TrendRows(ctx context.Context, channel, dates string) ([]models.DetailRow, error) {
	rows, err := s.db.QueryContext(ctx, trendQuery, channel, dates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DetailRow
	for rows.Next() {
		var (
			r         models.DetailRow
			recharge  sql.NullFloat64
			threshold sql.NullFloat64
		)
		if err := rows.Scan(&r.TableName, &r.Dates, &r.BDates, &r.Channel, &r.Source,
			&r.CampaignID, &r.Active, &r.OffsetDays, &recharge, &threshold); err != nil {
			return nil, err
		}
		if recharge.Valid {
			r.DayRecharge = recharge.Float64
		}
		if threshold.Valid {
			r.Threshold = threshold.Float64
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.log.Infow("trend detail rows retrieved", "channel", channel, "dates", dates, "rows", len(out))
	return out, nil
}

// CampaignRows retrieves the ads-backend detail rows for one channel and
// date, id and pn included. Deduplication happens downstream.
func (s *DetailStore) CampaignRows(ctx context.Context, channel, dates string) ([]models.RawCampaignRow, error) {
	rows, err := s.db.QueryContext(ctx, campaignQuery, channel, dates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RawCampaignRow
	for rows.Next() {
		var (
			r         models.RawCampaignRow
			recharge  sql.NullFloat64
			pn        sql.NullString
			threshold sql.NullFloat64
		)
		if err := rows.Scan(&r.Row.TableName, &r.ID, &r.Row.Dates, &r.Row.BDates, &r.Row.Channel,
			&r.Row.Source, &r.Row.CampaignID, &r.Row.Active, &r.Row.OffsetDays,
			&recharge, &pn, &threshold); err != nil {
			return nil, err
		}
		if recharge.Valid {
			r.Row.DayRecharge = recharge.Float64
		}
		if pn.Valid {
			r.Row.PN = pn.String
		}
		if threshold.Valid {
			r.Row.Threshold = threshold.Float64
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.log.Infow("campaign detail rows retrieved", "channel", channel, "dates", dates, "rows", len(out))
	return out, nil
}
