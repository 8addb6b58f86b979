package currency

import (
	"context"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"spend-reconcile/pkg/models"
)

const (
	// BaseCurrency is the reporting currency every amount converts to.
	BaseCurrency = "USD"

	// defaultINRRate is the documented fallback when no rate row exists
	// for an INR day.
	defaultINRRate = 78.5
)

// Source provides the configuration lookups conversion depends on. A nil
// project or rate and an empty currency mean "no record"; an error means
// the store itself failed.
type Source interface {
	ProjectByPN(ctx context.Context, pn string) (*models.ProjectConfig, error)
	CurrencyByPN(ctx context.Context, pn string) (string, error)
	RateFor(ctx context.Context, dates, base, symbols string) (*float64, error)
}

// Converter converts project-currency amounts to USD. It memoizes every
// project, currency and rate lookup for the duration of one run; the
// backing configuration is assumed static while the run lasts. Not safe
// for concurrent use.
type Converter struct {
	src Source
	log *zap.SugaredLogger

	projects   map[string]*models.ProjectConfig
	currencies map[string]string
	rates      map[string]*float64
}

func New(src Source, log *zap.SugaredLogger) *Converter {
	return &Converter{
		src:        src,
		log:        log,
		projects:   make(map[string]*models.ProjectConfig),
		currencies: make(map[string]string),
		rates:      make(map[string]*float64),
	}
}

// Convert turns amount (in the project's currency) into USD, rounded to
// two decimals half away from zero. It never returns an error: every
// failure path degrades to a CostInfo with CostUSD zero plus whatever
// metadata could still be determined. When the project's currency cannot
// be resolved the cost is zeroed rather than passed through unconverted,
// so a non-USD figure is never mislabeled as USD.
func (c *Converter) Convert(ctx context.Context, dates string, amount float64, pn string) models.CostInfo {
	info := models.CostInfo{OriginalCost: amount}
	if pn == "" {
		c.log.Warnw("conversion skipped, no project", "dates", dates, "amount", amount)
		return info
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		c.log.Errorw("conversion skipped, non-finite amount", "pn", pn, "amount", amount)
		info.OriginalCost = 0
		return info
	}

	extra := 1.0
	if p := c.project(ctx, pn); p != nil {
		extra = p.ExtraRate
	} else {
		c.log.Warnw("project config missing, extra_rate defaults to 1.0", "pn", pn)
	}
	info.ExtraRate = &extra
	adjusted := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(extra))

	cur := c.currency(ctx, pn)
	if cur == "" {
		c.log.Warnw("currency unresolved, cost zeroed", "pn", pn)
		return info
	}
	info.Currency = &cur

	rate := c.rate(ctx, dates, cur)
	if rate == nil {
		if strings.EqualFold(cur, "INR") {
			r := defaultINRRate
			rate = &r
			c.log.Warnw("rate missing, using INR default",
				"dates", dates, "symbols", cur, "rate", defaultINRRate)
		} else {
			c.log.Warnw("rate missing", "dates", dates, "base", BaseCurrency, "symbols", cur)
			return info
		}
	}
	info.Rate = rate
	if *rate == 0 {
		c.log.Warnw("rate is zero", "dates", dates, "symbols", cur)
		return info
	}

	usd := adjusted.Div(decimal.NewFromFloat(*rate)).Round(2)
	info.CostUSD, _ = usd.Float64()
	return info
}

func (c *Converter) project(ctx context.Context, pn string) *models.ProjectConfig {
	if p, ok := c.projects[pn]; ok {
		return p
	}
	p, err := c.src.ProjectByPN(ctx, pn)
	if err != nil {
		c.log.Errorw("project lookup failed", "pn", pn, "err", err)
		p = nil
	}
	c.projects[pn] = p
	return p
}

func (c *Converter) currency(ctx context.Context, pn string) string {
	if cur, ok := c.currencies[pn]; ok {
		return cur
	}
	cur, err := c.src.CurrencyByPN(ctx, pn)
	if err != nil {
		c.log.Errorw("currency lookup failed", "pn", pn, "err", err)
		cur = ""
	}
	c.currencies[pn] = cur
	return cur
}

func (c *Converter) rate(ctx context.Context, dates, symbols string) *float64 {
	key := dates + "|" + BaseCurrency + "|" + symbols
	if r, ok := c.rates[key]; ok {
		return r
	}
	r, err := c.src.RateFor(ctx, dates, BaseCurrency, symbols)
	if err != nil {
		c.log.Errorw("rate lookup failed", "dates", dates, "symbols", symbols, "err", err)
		r = nil
	}
	c.rates[key] = r
	return r
}
