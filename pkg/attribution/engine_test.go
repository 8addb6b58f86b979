package attribution

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"spend-reconcile/pkg/models"
)

type fakeLedger struct {
	campaignCosts map[string]float64 // "dates|campaign"
	channelCosts  map[string]float64 // "dates|channel"

	campaignCalls map[string]int
	channelCalls  map[string]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		campaignCosts: map[string]float64{},
		channelCosts:  map[string]float64{},
		campaignCalls: map[string]int{},
		channelCalls:  map[string]int{},
	}
}

func (l *fakeLedger) SumCostByCampaign(_ context.Context, dates, campaignID string) float64 {
	l.campaignCalls[dates+"|"+campaignID]++
	return l.campaignCosts[dates+"|"+campaignID]
}

func (l *fakeLedger) SumCostByCampaignChannel(_ context.Context, dates, campaignID, _ string) float64 {
	l.campaignCalls[dates+"|"+campaignID]++
	return l.campaignCosts[dates+"|"+campaignID]
}

func (l *fakeLedger) SumCostByChannel(_ context.Context, dates, channel string) float64 {
	l.channelCalls[dates+"|"+channel]++
	return l.channelCosts[dates+"|"+channel]
}

type fakeResolver struct {
	pns   map[string]string
	calls int
}

func (r *fakeResolver) PNByChannel(_ context.Context, channel string) (string, error) {
	r.calls++
	return r.pns[channel], nil
}

// fakeConverter converts 1:1 and tags every result with INR metadata, so
// tests can tell a zeroed allocation from a failed conversion.
type fakeConverter struct{}

func (fakeConverter) Convert(_ context.Context, _ string, amount float64, pn string) models.CostInfo {
	if pn == "" {
		return models.CostInfo{OriginalCost: amount}
	}
	cur, rate, extra := "INR", 1.0, 1.0
	return models.CostInfo{
		CostUSD:      amount,
		OriginalCost: amount,
		Currency:     &cur,
		Rate:         &rate,
		ExtraRate:    &extra,
	}
}

func detailRow(campaign string, recharge float64) models.DetailRow {
	return models.DetailRow{
		TableName:   "trend",
		Dates:       "2025-11-01",
		BDates:      "2025-11-03",
		Channel:     "CH_A",
		Source:      "src",
		CampaignID:  campaign,
		Active:      5,
		DayRecharge: recharge,
	}
}

func newTestEngine(cfg Config, ledger *fakeLedger, resolver *fakeResolver) *Engine {
	return NewEngine(cfg, ledger, resolver, fakeConverter{}, zap.NewNop().Sugar())
}

func TestAttribute_GroupCostComputedOnce(t *testing.T) {
	ledger := newFakeLedger()
	ledger.campaignCosts["2025-11-01|c1"] = 800
	resolver := &fakeResolver{pns: map[string]string{"CH_A": "p1"}}
	e := newTestEngine(Config{Policies: []Policy{ByCampaignChannel}}, ledger, resolver)

	rows := []models.DetailRow{detailRow("c1", 10), detailRow("c1", 20), detailRow("c1", 30)}
	out := e.Attribute(context.Background(), rows)

	if got := ledger.campaignCalls["2025-11-01|c1"]; got != 1 {
		t.Fatalf("cost lookup invoked %d times for one group, want 1", got)
	}
	if len(out) != 3 {
		t.Fatalf("row count changed: got %d, want 3", len(out))
	}

	// exactly the first row carries the cost, later rows keep metadata only
	if out[0].Cost.CostUSD != 800 || out[0].Cost.OriginalCost != 800 {
		t.Fatalf("first row cost: %+v", out[0].Cost)
	}
	for i := 1; i < 3; i++ {
		if out[i].Cost.CostUSD != 0 || out[i].Cost.OriginalCost != 0 {
			t.Fatalf("row %d should carry zero cost: %+v", i, out[i].Cost)
		}
		if out[i].Cost.Currency == nil || *out[i].Cost.Currency != "INR" {
			t.Fatalf("row %d lost currency metadata: %+v", i, out[i].Cost)
		}
	}
}

func TestAttribute_RechargeConvertsPerRow(t *testing.T) {
	ledger := newFakeLedger()
	resolver := &fakeResolver{pns: map[string]string{"CH_A": "p1"}}
	e := newTestEngine(Config{Policies: []Policy{ByCampaignChannel}}, ledger, resolver)

	rows := []models.DetailRow{detailRow("c1", 10), detailRow("c1", 20)}
	out := e.Attribute(context.Background(), rows)

	if out[0].RechargeUSD != 10 || out[1].RechargeUSD != 20 {
		t.Fatalf("recharge must not be zeroed for non-first rows: %v, %v",
			out[0].RechargeUSD, out[1].RechargeUSD)
	}
	if out[0].RechargeOriginal != 10 || out[1].RechargeOriginal != 20 {
		t.Fatalf("original recharge lost: %v, %v", out[0].RechargeOriginal, out[1].RechargeOriginal)
	}
}

func TestAttribute_OrderAndCountPreserved(t *testing.T) {
	ledger := newFakeLedger()
	resolver := &fakeResolver{pns: map[string]string{"CH_A": "p1"}}
	e := newTestEngine(Config{Policies: []Policy{ByCampaign}}, ledger, resolver)

	rows := []models.DetailRow{
		detailRow("c2", 1), detailRow("c1", 2), detailRow("c2", 3), detailRow("c3", 4),
	}
	out := e.Attribute(context.Background(), rows)
	if len(out) != len(rows) {
		t.Fatalf("got %d rows, want %d", len(out), len(rows))
	}
	for i := range rows {
		if out[i].CampaignID != rows[i].CampaignID || out[i].RechargeOriginal != rows[i].DayRecharge {
			t.Fatalf("row %d reordered: got %s, want %s", i, out[i].CampaignID, rows[i].CampaignID)
		}
	}
}

func TestAttribute_SingleRowGroup(t *testing.T) {
	ledger := newFakeLedger()
	ledger.campaignCosts["2025-11-01|c1"] = 50
	resolver := &fakeResolver{pns: map[string]string{"CH_A": "p1"}}
	e := newTestEngine(Config{Policies: []Policy{ByCampaignChannel}}, ledger, resolver)

	out := e.Attribute(context.Background(), []models.DetailRow{detailRow("c1", 0)})
	if len(out) != 1 || out[0].Cost.CostUSD != 50 {
		t.Fatalf("single-row group mishandled: %+v", out)
	}
}

func TestAttribute_NoLedgerCost(t *testing.T) {
	ledger := newFakeLedger()
	resolver := &fakeResolver{pns: map[string]string{"CH_A": "p1"}}
	e := newTestEngine(Config{Policies: []Policy{ByCampaignChannel}}, ledger, resolver)

	out := e.Attribute(context.Background(), []models.DetailRow{detailRow("c1", 0)})
	c := out[0].Cost
	if c.CostUSD != 0 || c.OriginalCost != 0 || c.Currency != nil || c.Rate != nil {
		t.Fatalf("missing ledger cost should yield an all-zero CostInfo: %+v", c)
	}
}

func TestAttribute_ChannelTotalCachedAndAttached(t *testing.T) {
	ledger := newFakeLedger()
	ledger.channelCosts["2025-11-01|CH_A"] = 5000
	resolver := &fakeResolver{pns: map[string]string{"CH_A": "p1"}}
	e := newTestEngine(Config{Policies: []Policy{ByCampaignChannel}, IncludeChannelTotal: true},
		ledger, resolver)

	rows := []models.DetailRow{detailRow("c1", 0), detailRow("c2", 0), detailRow("c2", 0)}
	out := e.Attribute(context.Background(), rows)

	if got := ledger.channelCalls["2025-11-01|CH_A"]; got != 1 {
		t.Fatalf("channel total queried %d times, want 1", got)
	}
	for i, r := range out {
		if r.ChannelTotal == nil || r.ChannelTotal.CostUSD != 5000 {
			t.Fatalf("row %d missing channel total: %+v", i, r.ChannelTotal)
		}
	}
}

func TestAttribute_SecondaryPolicy(t *testing.T) {
	ledger := newFakeLedger()
	ledger.campaignCosts["2025-11-01|c1"] = 300
	resolver := &fakeResolver{}
	rows := []models.DetailRow{detailRow("c1", 0), detailRow("c1", 0)}
	for i := range rows {
		rows[i].PN = "p-row"
	}
	e := newTestEngine(Config{Policies: []Policy{ByCampaign, ByCampaignChannel}, RowPN: true},
		ledger, resolver)

	out := e.Attribute(context.Background(), rows)
	if out[0].AltCost == nil || out[0].AltCost.CostUSD != 300 {
		t.Fatalf("secondary policy cost missing: %+v", out[0].AltCost)
	}
	if out[1].AltCost == nil || out[1].AltCost.CostUSD != 0 {
		t.Fatalf("secondary cost should be zeroed after the first row: %+v", out[1].AltCost)
	}
	if resolver.calls != 0 {
		t.Fatalf("row-pn mode must not hit the channel mapping, got %d calls", resolver.calls)
	}
}

func TestAttribute_ChannelPNResolvedOnce(t *testing.T) {
	ledger := newFakeLedger()
	resolver := &fakeResolver{pns: map[string]string{"CH_A": "p1"}}
	e := newTestEngine(Config{Policies: []Policy{ByCampaignChannel}}, ledger, resolver)

	rows := []models.DetailRow{detailRow("c1", 1), detailRow("c2", 2), detailRow("c3", 3)}
	e.Attribute(context.Background(), rows)
	if resolver.calls != 1 {
		t.Fatalf("channel pn resolved %d times, want 1 (cached)", resolver.calls)
	}
}

func TestAttribute_Empty(t *testing.T) {
	e := newTestEngine(Config{}, newFakeLedger(), &fakeResolver{})
	if out := e.Attribute(context.Background(), nil); out != nil {
		t.Fatalf("empty input must yield empty output, got %d rows", len(out))
	}
}
