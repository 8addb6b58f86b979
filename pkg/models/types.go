package models

import (
	"time"
)

/*
LOAD → detail rows as read from the two pipeline queries.
*/

// DetailRow is one cohort detail row from either pipeline, after the
// ads-backend rows have been deduplicated and stripped of their row id.
// PN is only populated for ads-backend rows; the attribution pipeline
// resolves its project through the channel mapping instead.
type DetailRow struct {
	TableName   string
	Dates       string // report date, YYYY-MM-DD
	BDates      string // behavior date, YYYY-MM-DD
	Channel     string
	Source      string
	CampaignID  string
	Active      int64
	OffsetDays  int64
	DayRecharge float64
	Threshold   float64
	PN          string
}

// RawCampaignRow is an ads-backend row before deduplication. The id exists
// only to spot duplicates and is dropped from the downstream shape.
type RawCampaignRow struct {
	ID  int64
	Row DetailRow
}

// GroupKey identifies the rows that share one cost figure. The ledger
// aggregates spend at this granularity, so cost is computed once per key.
type GroupKey struct {
	Dates      string
	Channel    string
	CampaignID string
}

// Key builds the group key for a detail row.
func (r DetailRow) Key() GroupKey {
	return GroupKey{Dates: r.Dates, Channel: r.Channel, CampaignID: r.CampaignID}
}

/*
CONFIG → most-recent-wins configuration records from the config store.
*/

// ProjectConfig is the most recent enabled project record for a pn.
type ProjectConfig struct {
	PN        string
	ExtraRate float64
	Enabled   bool
	CreatedAt time.Time
}

// CurrencyConfig is the most recent currency assignment for a pn.
type CurrencyConfig struct {
	PN        string
	Currency  string
	CreatedAt time.Time
}

// RateRecord is one exchange-rate row; the newest by creation time wins
// when the same date/pair has corrections.
type RateRecord struct {
	Dates   string
	Base    string
	Symbols string
	Rate    float64
	Created time.Time
}

/*
COMPUTE → conversion and attribution output shapes.
*/

// CostInfo is the outcome of a cost lookup plus currency conversion.
// CostUSD is always a finite number; it is zero when no cost could be
// determined, in which case the metadata fields may still be populated
// for display consistency.
type CostInfo struct {
	CostUSD      float64
	OriginalCost float64
	Currency     *string
	Rate         *float64
	ExtraRate    *float64
}

// AnnotatedRow is a detail row rewritten by the attribution engine:
// identity columns, then the optional channel-level total, then the
// group-attributed cost (full on the group's first row, zeroed after),
// then the per-row recharge conversion.
type AnnotatedRow struct {
	TableName  string
	Dates      string
	BDates     string
	Channel    string
	Source     string
	CampaignID string
	Active     int64

	ChannelTotal *CostInfo // attribution pipeline only, merged in the workbook
	Cost         CostInfo
	AltCost      *CostInfo // ads pipeline only: channel-qualified comparison figure

	RechargeUSD      float64
	RechargeOriginal float64
}

// ChannelResult is one channel's reconciliation outcome. A side whose
// retrieval failed is an empty slice, never a missing record.
type ChannelResult struct {
	Channel      string
	Dates        string
	TrendRows    []AnnotatedRow
	CampaignRows []AnnotatedRow
}
