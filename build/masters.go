package build

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/asayao-fp/keiba/models"
)

// buildMasters scans master records across every feed category and
// refreshes the jockey and trainer rosters. Last write wins per code:
// the feed re-issues master rows on every change and the newest name
// simply replaces the stored one.
func (r *Runner) buildMasters(ctx context.Context, tx bun.Tx, now string) (Counts, error) {
	var counts Counts

	jockeys, err := r.scanMasters(ctx, tx, "KS", "jockey_code", "jockey_name",
		func(code string, name *string) any {
			return &models.Jockey{JockeyCode: code, JockeyName: name, UpdatedAt: now}
		})
	if err != nil {
		return counts, err
	}
	counts.add(jockeys)

	trainers, err := r.scanMasters(ctx, tx, "CH", "trainer_code", "trainer_name",
		func(code string, name *string) any {
			return &models.Trainer{TrainerCode: code, TrainerName: name, UpdatedAt: now}
		})
	if err != nil {
		return counts, err
	}
	counts.add(trainers)

	return counts, nil
}

func (r *Runner) scanMasters(
	ctx context.Context,
	tx bun.Tx,
	prefix, codeField, nameField string,
	newRow func(code string, name *string) any,
) (Counts, error) {
	var counts Counts

	cur := NewCursor(tx, WithPrefix(prefix), WithBatchSize(r.opts.BatchSize))
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

		code, ok := rec.Fields.Str(codeField)
		if !ok || code == "" {
			counts.Skipped++
			continue
		}
		var name *string
		if n, ok := rec.Fields.Str(nameField); ok {
			name = &n
		}

		if _, err := tx.NewInsert().Model(newRow(code, name)).
			On("CONFLICT ("+codeField+") DO UPDATE").
			Set(nameField + " = EXCLUDED." + nameField).
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return counts, err
		}
		counts.Upserted++
	}

	return counts, nil
}
