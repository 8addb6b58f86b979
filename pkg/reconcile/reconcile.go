package reconcile

import (
	"context"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"spend-reconcile/pkg/attribution"
	"spend-reconcile/pkg/models"
)

// DetailSource retrieves the raw detail rows of both pipelines.
type DetailSource interface {
	TrendRows(ctx context.Context, channel, dates string) ([]models.DetailRow, error)
	CampaignRows(ctx context.Context, channel, dates string) ([]models.RawCampaignRow, error)
}

// Attributor is the engine surface the orchestrator drives.
type Attributor interface {
	Attribute(ctx context.Context, rows []models.DetailRow) []models.AnnotatedRow
}

// Runner reconciles the fixed channel list for one date, one channel at a
// time. A channel whose retrieval fails on either side still yields a
// result record with an empty row set for that side; one channel's
// failure never aborts the batch.
type Runner struct {
	details  DetailSource
	trend    Attributor
	campaign Attributor
	log      *zap.SugaredLogger
}

func NewRunner(details DetailSource, trend, campaign Attributor, log *zap.SugaredLogger) *Runner {
	return &Runner{details: details, trend: trend, campaign: campaign, log: log}
}

// Run processes every channel sequentially and returns one result record
// per channel, in the configured order.
func (r *Runner) Run(ctx context.Context, dates string, channels []string) []models.ChannelResult {
	r.log.Infow("reconciliation starting", "dates", dates, "channels", len(channels))
	bar := progressbar.Default(int64(len(channels)))

	results := make([]models.ChannelResult, 0, len(channels))
	for _, ch := range channels {
		res := r.runChannel(ctx, ch, dates)
		results = append(results, res)
		_ = bar.Add(1)
		r.log.Infow("channel reconciled", "channel", ch,
			"trend_rows", len(res.TrendRows), "campaign_rows", len(res.CampaignRows))
	}
	return results
}

func (r *Runner) runChannel(ctx context.Context, channel, dates string) models.ChannelResult {
	res := models.ChannelResult{Channel: channel, Dates: dates}

	trendRaw, err := r.details.TrendRows(ctx, channel, dates)
	if err != nil {
		r.log.Errorw("trend detail query failed", "channel", channel, "err", err)
	} else {
		res.TrendRows = r.trend.Attribute(ctx, trendRaw)
	}

	campaignRaw, err := r.details.CampaignRows(ctx, channel, dates)
	if err != nil {
		r.log.Errorw("campaign detail query failed", "channel", channel, "err", err)
	} else {
		rows := attribution.Strip(attribution.Dedup(campaignRaw, r.log))
		res.CampaignRows = r.campaign.Attribute(ctx, rows)
	}
	return res
}
