package build

import (
	"context"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/asayao-fp/keiba/models"
)

// Log a heartbeat this often; odds dumps run to millions of records.
const oddsLogInterval = 10000

// buildOdds streams O1 records and upserts one place-odds quote per
// runner. The feed re-delivers old snapshots freely, so the conflict
// clause only overwrites when the incoming announcement is not older
// than the stored one — a late-arriving stale quote must never regress
// a newer price.
func (r *Runner) buildOdds(ctx context.Context, tx bun.Tx, now string) (Counts, error) {
	var counts Counts

	cur := NewCursor(tx, WithPrefix("O1"), WithBatchSize(r.opts.BatchSize))
	for {
		raw, err := cur.Next(ctx)
		if err != nil {
			return counts, err
		}
		if raw == nil {
			break
		}

		rec, ok := r.catalog.Decode(raw.PayloadText)
		if !ok {
			counts.Unrecognized++
			continue
		}
		counts.Decoded++

		key, _, parts, ok := raceKeyFromRecord(rec)
		if !ok {
			counts.Skipped++
			continue
		}

		// The wire carries mmddHHMM; prepend the race year so quotes
		// order correctly across year boundaries.
		var announced *string
		if a, ok := rec.Fields.Str("announced"); ok {
			full := parts[0] + a
			announced = &full
		}

		for _, block := range rec.Blocks {
			horseNo, ok := block.Str("horse_no")
			if !ok || !isPositiveNumber(horseNo) {
				continue
			}
			quote := &models.PlaceOdds{
				RaceKey:     key,
				HorseNo:     horseNo,
				AnnouncedAt: announced,
				UpdatedAt:   now,
			}
			if v, ok := block.Float("place_odds_min"); ok {
				quote.PlaceOddsMin = &v
			}
			if v, ok := block.Float("place_odds_max"); ok {
				quote.PlaceOddsMax = &v
			}

			if _, err := tx.NewInsert().Model(quote).
				On(`CONFLICT (race_key, horse_no) DO UPDATE SET
					place_odds_min = EXCLUDED.place_odds_min,
					place_odds_max = EXCLUDED.place_odds_max,
					announced_at   = EXCLUDED.announced_at,
					updated_at     = EXCLUDED.updated_at
					WHERE po.announced_at IS NULL
					   OR (EXCLUDED.announced_at IS NOT NULL
					       AND EXCLUDED.announced_at >= po.announced_at)`).
				Exec(ctx); err != nil {
				return counts, err
			}
			counts.Upserted++
		}

		if counts.Decoded%oddsLogInterval == 0 {
			r.log.Info("odds progress", zap.Int("records", counts.Decoded))
		}
	}

	return counts, nil
}

func isPositiveNumber(s string) bool {
	if s == "" {
		return false
	}
	nonzero := false
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		if s[i] != '0' {
			nonzero = true
		}
	}
	return nonzero
}
