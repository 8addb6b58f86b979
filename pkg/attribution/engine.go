package attribution

import (
	"context"

	"go.uber.org/zap"

	"spend-reconcile/pkg/models"
)

// Policy selects how a group's ledger cost is resolved.
type Policy int

const (
	// ByCampaign sums the ledger over (date, campaign) only.
	ByCampaign Policy = iota
	// ByCampaignChannel additionally qualifies the sum by channel.
	ByCampaignChannel
)

// CostLedger is the slice of the cost store the engine needs. All three
// lookups degrade to 0.0 instead of failing.
type CostLedger interface {
	SumCostByCampaign(ctx context.Context, dates, campaignID string) float64
	SumCostByCampaignChannel(ctx context.Context, dates, campaignID, channel string) float64
	SumCostByChannel(ctx context.Context, dates, channel string) float64
}

// ProjectResolver maps a channel code to its project (pn); "" when the
// channel is unmapped.
type ProjectResolver interface {
	PNByChannel(ctx context.Context, channel string) (string, error)
}

// Converter turns an amount in a project's currency into USD; it never
// fails, only degrades.
type Converter interface {
	Convert(ctx context.Context, dates string, amount float64, pn string) models.CostInfo
}

// Config fixes one pipeline's attribution behavior.
type Config struct {
	// Policies lists the cost-resolution strategies to run per group; the
	// first fills the primary cost columns, an optional second fills the
	// comparison columns.
	Policies []Policy
	// IncludeChannelTotal attaches the channel-level total spend to every
	// row (rendered as merged cells in the workbook).
	IncludeChannelTotal bool
	// RowPN resolves the project from each row's own pn field instead of
	// the channel mapping.
	RowPN bool
}

// Engine partitions detail rows by (dates, channel, campaign_id), resolves
// each group's cost exactly once, and rewrites the rows: the group's first
// row carries the full cost, later rows carry zero with the group's
// currency metadata. The per-row recharge figure converts independently
// and is never zeroed.
//
// The pn and channel-total caches live on the engine, so one engine
// instance covers exactly one run. Not safe for concurrent use.
type Engine struct {
	cfg      Config
	ledger   CostLedger
	projects ProjectResolver
	conv     Converter
	log      *zap.SugaredLogger

	pnCache    map[string]string
	totalCache map[string]models.CostInfo
}

func NewEngine(cfg Config, ledger CostLedger, projects ProjectResolver, conv Converter, log *zap.SugaredLogger) *Engine {
	if len(cfg.Policies) == 0 {
		cfg.Policies = []Policy{ByCampaignChannel}
	}
	return &Engine{
		cfg:        cfg,
		ledger:     ledger,
		projects:   projects,
		conv:       conv,
		log:        log,
		pnCache:    make(map[string]string),
		totalCache: make(map[string]models.CostInfo),
	}
}

// Attribute annotates rows with cost figures. Output order and count
// equal the input; attribution only annotates, it never reorders.
func (e *Engine) Attribute(ctx context.Context, rows []models.DetailRow) []models.AnnotatedRow {
	if len(rows) == 0 {
		return nil
	}

	type group struct {
		first     int // index of the group's first row, in input order
		primary   models.CostInfo
		secondary models.CostInfo
	}
	order := make([]models.GroupKey, 0, len(rows))
	groups := make(map[models.GroupKey]*group, len(rows))
	for i, r := range rows {
		k := r.Key()
		if _, ok := groups[k]; !ok {
			groups[k] = &group{first: i}
			order = append(order, k)
		}
	}
	e.log.Infow("cost allocation groups built", "groups", len(groups), "rows", len(rows))

	// One cost resolution per group, from the group's first row only.
	for _, k := range order {
		g := groups[k]
		base := rows[g.first]
		pn := e.resolvePN(ctx, base)
		g.primary = e.groupCost(ctx, base, pn, e.cfg.Policies[0])
		if len(e.cfg.Policies) > 1 {
			g.secondary = e.groupCost(ctx, base, pn, e.cfg.Policies[1])
		}
		e.log.Infow("group cost resolved", "dates", k.Dates, "channel", k.Channel,
			"campaign_id", k.CampaignID, "cost_usd", g.primary.CostUSD)
	}

	out := make([]models.AnnotatedRow, 0, len(rows))
	for i, r := range rows {
		g := groups[r.Key()]
		first := i == g.first

		cost := g.primary
		if !first {
			cost = zeroed(cost)
		}
		var alt *models.CostInfo
		if len(e.cfg.Policies) > 1 {
			a := g.secondary
			if !first {
				a = zeroed(a)
			}
			alt = &a
		}

		pn := e.resolvePN(ctx, r)
		var total *models.CostInfo
		if e.cfg.IncludeChannelTotal {
			t := e.channelTotal(ctx, r.Dates, r.Channel, pn)
			total = &t
		}

		// Recharge is a per-row fact, never zeroed for non-first rows.
		// A zero amount still resolves currency metadata for display.
		recharge := e.conv.Convert(ctx, r.Dates, r.DayRecharge, pn)

		out = append(out, models.AnnotatedRow{
			TableName:        r.TableName,
			Dates:            r.Dates,
			BDates:           r.BDates,
			Channel:          r.Channel,
			Source:           r.Source,
			CampaignID:       r.CampaignID,
			Active:           r.Active,
			ChannelTotal:     total,
			Cost:             cost,
			AltCost:          alt,
			RechargeUSD:      recharge.CostUSD,
			RechargeOriginal: r.DayRecharge,
		})
	}
	return out
}

// groupCost resolves one group's ledger cost under the given policy and
// converts it. A zero ledger sum short-circuits to an all-zero CostInfo.
func (e *Engine) groupCost(ctx context.Context, base models.DetailRow, pn string, p Policy) models.CostInfo {
	var sum float64
	switch p {
	case ByCampaignChannel:
		sum = e.ledger.SumCostByCampaignChannel(ctx, base.Dates, base.CampaignID, base.Channel)
	default:
		sum = e.ledger.SumCostByCampaign(ctx, base.Dates, base.CampaignID)
	}
	if sum == 0 {
		return models.CostInfo{}
	}
	return e.conv.Convert(ctx, base.Dates, sum, pn)
}

// channelTotal memoizes the channel-level total spend per channel. The
// run covers a single date, so the channel alone keys the cache.
func (e *Engine) channelTotal(ctx context.Context, dates, channel, pn string) models.CostInfo {
	if t, ok := e.totalCache[channel]; ok {
		return t
	}
	var t models.CostInfo
	if sum := e.ledger.SumCostByChannel(ctx, dates, channel); sum > 0 && pn != "" {
		t = e.conv.Convert(ctx, dates, sum, pn)
	}
	e.totalCache[channel] = t
	return t
}

func (e *Engine) resolvePN(ctx context.Context, r models.DetailRow) string {
	if e.cfg.RowPN {
		return r.PN
	}
	if pn, ok := e.pnCache[r.Channel]; ok {
		return pn
	}
	pn, err := e.projects.PNByChannel(ctx, r.Channel)
	if err != nil {
		e.log.Errorw("channel project lookup failed", "channel", r.Channel, "err", err)
		pn = ""
	} else if pn == "" {
		e.log.Warnw("no project mapped to channel", "channel", r.Channel)
	}
	e.pnCache[r.Channel] = pn
	return pn
}

// zeroed keeps a group's currency metadata but strips the amounts, so a
// reader sees what rate would apply without implying additional spend.
func zeroed(c models.CostInfo) models.CostInfo {
	return models.CostInfo{Currency: c.Currency, Rate: c.Rate, ExtraRate: c.ExtraRate}
}
