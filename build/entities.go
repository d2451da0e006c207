package build

import (
	"context"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/asayao-fp/keiba/jv"
	"github.com/asayao-fp/keiba/models"
)

// buildEntities streams the RACE category of the archive and upserts
// races (RA records) and entries (SE records). An existing row with the
// same key is fully overwritten by the latest decode, so re-running
// against an unchanged archive changes nothing.
func (r *Runner) buildEntities(ctx context.Context, tx bun.Tx, now string) (Counts, error) {
	var counts Counts

	cur := NewCursor(tx, WithDataSpec(r.opts.DataSpec), WithBatchSize(r.opts.BatchSize))
	for {
		raw, err := cur.Next(ctx)
		if err != nil {
			return counts, err
		}
		if raw == nil {
			break
		}
		if raw.PayloadText == "" {
			counts.Skipped++
			continue
		}

		rec, ok := r.catalog.Decode(raw.PayloadText)
		if !ok {
			counts.Unrecognized++
			continue
		}
		counts.Decoded++

		switch rec.Prefix {
		case "RA":
			race, ok := raceFromRecord(rec, now)
			if !ok {
				counts.Skipped++
				continue
			}
			if _, err := tx.NewInsert().Model(race).
				On("CONFLICT (race_key) DO UPDATE").
				Set("yyyymmdd = EXCLUDED.yyyymmdd").
				Set("course_code = EXCLUDED.course_code").
				Set("kai = EXCLUDED.kai").
				Set("day = EXCLUDED.day").
				Set("race_no = EXCLUDED.race_no").
				Set("grade_code = EXCLUDED.grade_code").
				Set("race_name_short = EXCLUDED.race_name_short").
				Set("distance_m = EXCLUDED.distance_m").
				Set("track_code = EXCLUDED.track_code").
				Set("surface = EXCLUDED.surface").
				Set("created_at = EXCLUDED.created_at").
				Exec(ctx); err != nil {
				return counts, err
			}
			counts.Upserted++
		case "SE":
			entry, ok := entryFromRecord(rec)
			if !ok {
				counts.Skipped++
				continue
			}
			if _, err := tx.NewInsert().Model(entry).
				On("CONFLICT (entry_key) DO UPDATE").
				Set("race_key = EXCLUDED.race_key").
				Set("horse_no = EXCLUDED.horse_no").
				Set("horse_id = EXCLUDED.horse_id").
				Set("finish_pos = EXCLUDED.finish_pos").
				Set("is_place = EXCLUDED.is_place").
				Set("jockey_code = EXCLUDED.jockey_code").
				Set("trainer_code = EXCLUDED.trainer_code").
				Set("body_weight = EXCLUDED.body_weight").
				Set("handicap_weight_x10 = EXCLUDED.handicap_weight_x10").
				Exec(ctx); err != nil {
				return counts, err
			}
			counts.Upserted++
		default:
			// Known layout but not an entity record (masters, odds).
			counts.Skipped++
		}
	}

	if r.opts.GradedOnly {
		if err := dropUngraded(ctx, tx, r.log); err != nil {
			return counts, err
		}
	}

	return counts, nil
}

// dropUngraded applies the graded-only mode as a post-filter on the
// already-built tables. Filtering after the build, not during decode,
// keeps the decode/skip counts meaningful for diagnostics.
func dropUngraded(ctx context.Context, tx bun.Tx, log *zap.Logger) error {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM entries WHERE race_key NOT IN
		   (SELECT race_key FROM races WHERE TRIM(grade_code) != '')`)
	if err != nil {
		return err
	}
	droppedEntries, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM races WHERE TRIM(grade_code) = ''`)
	if err != nil {
		return err
	}
	droppedRaces, _ := res.RowsAffected()

	log.Info("graded-only filter applied",
		zap.Int64("races_dropped", droppedRaces),
		zap.Int64("entries_dropped", droppedEntries))
	return nil
}

// raceKeyFromRecord assembles the composite race key. Every component
// must be present and non-blank; a record whose key cannot be fully
// decoded is skipped as a whole rather than written partially keyed.
func raceKeyFromRecord(rec *jv.Record) (key, yyyymmdd string, parts [6]string, ok bool) {
	names := [6]string{"year", "monthday", "course_code", "kai", "day", "race_no"}
	for i, name := range names {
		s, present := rec.Fields.Str(name)
		if !present || s == "" || s != trimRight(s) {
			return "", "", parts, false
		}
		parts[i] = s
	}
	yyyymmdd = parts[0] + parts[1]
	key = yyyymmdd + parts[2] + parts[3] + parts[4] + parts[5]
	return key, yyyymmdd, parts, true
}

func trimRight(s string) string {
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\x00') {
		s = s[:len(s)-1]
	}
	return s
}

func raceFromRecord(rec *jv.Record, now string) (*models.Race, bool) {
	key, yyyymmdd, parts, ok := raceKeyFromRecord(rec)
	if !ok {
		return nil, false
	}

	race := &models.Race{
		RaceKey:    key,
		YYYYMMDD:   yyyymmdd,
		CourseCode: parts[2],
		Kai:        parts[3],
		Day:        parts[4],
		RaceNo:     parts[5],
		CreatedAt:  now,
	}
	if s, ok := rec.Fields.Str("grade_code"); ok {
		race.GradeCode = s
	}
	if s, ok := rec.Fields.Str("race_name_short"); ok {
		race.RaceNameShort = s
	}
	if n, ok := rec.Fields.Int("distance_m"); ok {
		d := int(n)
		race.DistanceM = &d
	}
	if s, ok := rec.Fields.Str("track_code"); ok {
		race.TrackCode = &s
	}
	if s, ok := rec.Fields.Str("surface"); ok {
		race.Surface = &s
	}
	return race, true
}

func entryFromRecord(rec *jv.Record) (*models.Entry, bool) {
	key, _, _, ok := raceKeyFromRecord(rec)
	if !ok {
		return nil, false
	}
	horseNo, ok := rec.Fields.Str("horse_no")
	if !ok || trimRight(horseNo) != horseNo || horseNo == "" {
		return nil, false
	}

	entry := &models.Entry{
		EntryKey: key + horseNo,
		RaceKey:  key,
		HorseNo:  horseNo,
	}
	if s, ok := rec.Fields.Str("horse_id"); ok {
		entry.HorseID = s
	}
	if s, ok := rec.Fields.Str("jockey_code"); ok {
		entry.JockeyCode = &s
	}
	if s, ok := rec.Fields.Str("trainer_code"); ok {
		entry.TrainerCode = &s
	}
	if n, ok := rec.Fields.Int("body_weight"); ok {
		w := int(n)
		entry.BodyWeight = &w
	}
	if n, ok := rec.Fields.Int("handicap_weight_x10"); ok {
		w := int(n)
		entry.HandicapWeightX10 = &w
	}

	// Finish position 0 means "no official finish" in the feed; both it
	// and undecodable content leave the placed flag unknown.
	if n, ok := rec.Fields.Int("finish_pos"); ok && n > 0 {
		fp := int(n)
		placed := fp <= 3
		entry.FinishPos = &fp
		entry.IsPlace = &placed
	}

	return entry, true
}
