package attribution

import (
	"go.uber.org/zap"

	"spend-reconcile/pkg/models"
)

// Dedup keeps the first row seen per id, preserving input order, and
// warns once per discarded duplicate. Idempotent: running it on its own
// output removes nothing further.
func Dedup(rows []models.RawCampaignRow, log *zap.SugaredLogger) []models.RawCampaignRow {
	seen := make(map[int64]struct{}, len(rows))
	out := make([]models.RawCampaignRow, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.ID]; ok {
			log.Warnw("duplicate detail row discarded", "id", r.ID)
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Strip drops the row ids so the ads-backend rows match the shape of the
// other pipeline.
func Strip(rows []models.RawCampaignRow) []models.DetailRow {
	out := make([]models.DetailRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Row)
	}
	return out
}
