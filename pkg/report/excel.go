package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"spend-reconcile/pkg/models"
)

const (
	// TrendSheet holds the attribution-pipeline rows, with the channel
	// total columns merged over each channel's row span.
	TrendSheet = "CDAP ROAS trend (cohort)"
	// CampaignSheet holds the ads-backend rows with both cost policies
	// side by side.
	CampaignSheet = "ADS cohort ROAS"
)

var trendHeaders = []string{
	"table_name", "dates", "bdates", "channel", "source", "campaign_id", "active",
	"channel_cost_usd", "channel_cost_original",
	"cost_usd", "cost_original",
	"day_recharge_usd", "day_recharge_original",
}

var campaignHeaders = []string{
	"table_name", "dates", "bdates", "channel", "source", "campaign_id", "active",
	"cost_usd", "cost_original",
	"cost_usd_by_channel", "cost_original_by_channel",
	"day_recharge_usd", "day_recharge_original",
}

// Write lays the reconciliation results out as a two-sheet workbook.
func Write(results []models.ChannelResult, path string, log *zap.SugaredLogger) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeTrendSheet(f, results); err != nil {
		return fmt.Errorf("trend sheet: %w", err)
	}
	if err := writeCampaignSheet(f, results); err != nil {
		return fmt.Errorf("campaign sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	log.Infow("report written", "path", path, "channels", len(results))
	return nil
}

func writeTrendSheet(f *excelize.File, results []models.ChannelResult) error {
	if _, err := f.NewSheet(TrendSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(TrendSheet, "A1", &trendHeaders); err != nil {
		return err
	}

	centered, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	rowNum := 2
	for _, res := range results {
		start := rowNum
		for _, r := range res.TrendRows {
			totalUSD, totalOrig := 0.0, 0.0
			if r.ChannelTotal != nil {
				totalUSD = r.ChannelTotal.CostUSD
				totalOrig = r.ChannelTotal.OriginalCost
			}
			vals := []interface{}{
				r.TableName, r.Dates, r.BDates, r.Channel, r.Source, r.CampaignID, r.Active,
				totalUSD, totalOrig,
				r.Cost.CostUSD, r.Cost.OriginalCost,
				r.RechargeUSD, r.RechargeOriginal,
			}
			cell, err := excelize.CoordinatesToCellName(1, rowNum)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(TrendSheet, cell, &vals); err != nil {
				return err
			}
			rowNum++
		}

		// Merge the channel-total columns over the channel's row span.
		end := rowNum - 1
		if end > start {
			if err := f.MergeCell(TrendSheet, fmt.Sprintf("H%d", start), fmt.Sprintf("H%d", end)); err != nil {
				return err
			}
			if err := f.MergeCell(TrendSheet, fmt.Sprintf("I%d", start), fmt.Sprintf("I%d", end)); err != nil {
				return err
			}
			if err := f.SetCellStyle(TrendSheet, fmt.Sprintf("H%d", start), fmt.Sprintf("I%d", end), centered); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeCampaignSheet(f *excelize.File, results []models.ChannelResult) error {
	if _, err := f.NewSheet(CampaignSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(CampaignSheet, "A1", &campaignHeaders); err != nil {
		return err
	}

	rowNum := 2
	for _, res := range results {
		for _, r := range res.CampaignRows {
			altUSD, altOrig := 0.0, 0.0
			if r.AltCost != nil {
				altUSD = r.AltCost.CostUSD
				altOrig = r.AltCost.OriginalCost
			}
			vals := []interface{}{
				r.TableName, r.Dates, r.BDates, r.Channel, r.Source, r.CampaignID, r.Active,
				r.Cost.CostUSD, r.Cost.OriginalCost,
				altUSD, altOrig,
				r.RechargeUSD, r.RechargeOriginal,
			}
			cell, err := excelize.CoordinatesToCellName(1, rowNum)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(CampaignSheet, cell, &vals); err != nil {
				return err
			}
			rowNum++
		}
	}
	return nil
}
