package build

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/uptrace/bun"

	kdb "github.com/asayao-fp/keiba/db"
)

func setupTables(t *testing.T, db *bun.DB) {
	t.Helper()
	if err := kdb.CreateTables(context.Background(), db); err != nil {
		t.Fatal(err)
	}
}

var testRace = raKey{date: "20240315", course: "05", kai: "03", day: "07", raceNo: "11"}

func TestRebuildEntities(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	setupTables(t, db)

	insertRaw(t, db, "RACE",
		makeRA(testRace, "A", "HANSIN", "1600", "17"),
		makeSE(testRace, "03", "2019105234", "01"),
		makeSE(testRace, "07", "2019105777", "12"),
	)

	report, err := newTestRunner(t, db, Options{}).Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Entities.Upserted != 3 {
		t.Errorf("upserted: got %d, want 3", report.Entities.Upserted)
	}

	races := allRaces(t, db)
	if len(races) != 1 {
		t.Fatalf("races: got %d", len(races))
	}
	r := races[0]
	if r.RaceKey != "2024031505030711" {
		t.Errorf("race key: got %q", r.RaceKey)
	}
	if r.YYYYMMDD != "20240315" || r.GradeCode != "A" || r.RaceNameShort != "HANSIN" {
		t.Errorf("race fields: %+v", r)
	}
	if r.DistanceM == nil || *r.DistanceM != 1600 {
		t.Errorf("distance: %v", r.DistanceM)
	}
	if r.Surface == nil || *r.Surface != "turf" {
		t.Errorf("surface: %v", r.Surface)
	}

	entries := allEntries(t, db)
	if len(entries) != 2 {
		t.Fatalf("entries: got %d", len(entries))
	}
	e := entries[0]
	if e.EntryKey != "202403150503071103" || e.RaceKey != r.RaceKey || e.HorseNo != "03" {
		t.Errorf("entry keys: %+v", e)
	}
	if e.HorseID != "2019105234" {
		t.Errorf("horse id: %q", e.HorseID)
	}
	if e.HandicapWeightX10 == nil || *e.HandicapWeightX10 != 550 {
		t.Errorf("handicap weight: %v", e.HandicapWeightX10)
	}
	if e.BodyWeight == nil || *e.BodyWeight != 478 {
		t.Errorf("body weight: %v", e.BodyWeight)
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	setupTables(t, db)

	insertRaw(t, db, "RACE",
		makeRA(testRace, "A", "HANSIN", "1600", "17"),
		makeSE(testRace, "03", "2019105234", "01"),
	)
	insertRaw(t, db, "ODDS",
		makeO1(testRace, "03151030", oddsBlock{"03", "0015", "0021"}),
	)
	insertRaw(t, db, "RACE", makeKS("01088", "TAKANASHI KEITA"))

	runner := newTestRunner(t, db, Options{})
	if _, err := runner.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	races1, entries1, odds1 := allRaces(t, db), allEntries(t, db), allOdds(t, db)

	report, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	races2, entries2, odds2 := allRaces(t, db), allEntries(t, db), allOdds(t, db)

	if !reflect.DeepEqual(races1, races2) {
		t.Errorf("races changed on rebuild:\n%+v\n%+v", races1, races2)
	}
	if !reflect.DeepEqual(entries1, entries2) {
		t.Errorf("entries changed on rebuild:\n%+v\n%+v", entries1, entries2)
	}
	if !reflect.DeepEqual(odds1, odds2) {
		t.Errorf("odds changed on rebuild:\n%+v\n%+v", odds1, odds2)
	}
	if report.Entities.Decoded == 0 {
		t.Error("second run must re-decode the archive")
	}
}

func TestPlacedFlag(t *testing.T) {
	cases := []struct {
		finish string
		want   *bool
		pos    *int
	}{
		{"03", boolPtr(true), intPtr(3)},
		{"04", boolPtr(false), intPtr(4)},
		{"  ", nil, nil},
		{"00", nil, nil},
		{"F*", nil, nil},
	}

	ctx := context.Background()
	db := newTestDB(t)
	setupTables(t, db)

	horseNos := []string{"01", "02", "03", "04", "05"}
	payloads := []string{makeRA(testRace, "A", "HANSIN", "1600", "17")}
	for i, c := range cases {
		payloads = append(payloads, makeSE(testRace, horseNos[i], "2019105234", c.finish))
	}
	insertRaw(t, db, "RACE", payloads...)

	if _, err := newTestRunner(t, db, Options{}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	entries := allEntries(t, db)
	if len(entries) != len(cases) {
		t.Fatalf("entries: got %d, want %d", len(entries), len(cases))
	}
	for i, c := range cases {
		e := entries[i]
		if !eqIntPtr(e.FinishPos, c.pos) {
			t.Errorf("finish %q: FinishPos got %v, want %v", c.finish, e.FinishPos, c.pos)
		}
		if !eqBoolPtr(e.IsPlace, c.want) {
			t.Errorf("finish %q: IsPlace got %v, want %v", c.finish, e.IsPlace, c.want)
		}
	}
}

func TestOddsMonotonicity(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	setupTables(t, db)

	// Newer quote arrives first; stale re-ingest follows in archive order.
	insertRaw(t, db, "ODDS",
		makeO1(testRace, "03151200", oddsBlock{"03", "0021", "0035"}),
		makeO1(testRace, "03151030", oddsBlock{"03", "0015", "0021"}),
	)

	if _, err := newTestRunner(t, db, Options{}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	odds := allOdds(t, db)
	if len(odds) != 1 {
		t.Fatalf("odds rows: got %d", len(odds))
	}
	q := odds[0]
	if q.AnnouncedAt == nil || *q.AnnouncedAt != "202403151200" {
		t.Errorf("announced: %v, want 202403151200", q.AnnouncedAt)
	}
	if q.PlaceOddsMin == nil || *q.PlaceOddsMin != 2.1 {
		t.Errorf("stale quote overwrote newer: min=%v", q.PlaceOddsMin)
	}

	// The newer quote in the right order still wins.
	insertRaw(t, db, "ODDS",
		makeO1(testRace, "03151500", oddsBlock{"03", "0030", "0041"}),
	)
	if _, err := newTestRunner(t, db, Options{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	q = allOdds(t, db)[0]
	if q.AnnouncedAt == nil || *q.AnnouncedAt != "202403151500" {
		t.Errorf("newer quote not applied: %v", q.AnnouncedAt)
	}
	if q.PlaceOddsMin == nil || *q.PlaceOddsMin != 3.0 {
		t.Errorf("newer quote values not applied: min=%v", q.PlaceOddsMin)
	}
}

func TestGradedOnlyFilter(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	setupTables(t, db)

	plain := raKey{date: "20240316", course: "06", kai: "01", day: "02", raceNo: "05"}
	insertRaw(t, db, "RACE",
		makeRA(testRace, "A", "HANSIN", "1600", "17"),
		makeSE(testRace, "03", "2019105234", "01"),
		makeRA(plain, " ", "MAIDEN", "1200", "23"),
		makeSE(plain, "01", "2020100001", "02"),
	)

	report, err := newTestRunner(t, db, Options{GradedOnly: true}).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}

	races := allRaces(t, db)
	if len(races) != 1 || races[0].GradeCode != "A" {
		t.Fatalf("graded filter: races=%+v", races)
	}
	entries := allEntries(t, db)
	if len(entries) != 1 || entries[0].RaceKey != races[0].RaceKey {
		t.Fatalf("graded filter: entries=%+v", entries)
	}

	// Decode counts reflect what was scanned, not what survived the filter.
	if report.Entities.Decoded != 4 || report.Entities.Upserted != 4 {
		t.Errorf("counts affected by filter: %+v", report.Entities)
	}
}

func TestUnrecognizedAndShortRecords(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	setupTables(t, db)

	insertRaw(t, db, "RACE",
		makeRA(testRace, "A", "HANSIN", "1600", "17"),
		fixed(100, map[int]string{0: "ZZ"}),  // unknown prefix
		fixed(100, map[int]string{0: "RA"}),  // truncated RA
		fixed(555, map[int]string{0: "SE"}),  // SE with blank key fields
	)

	report, err := newTestRunner(t, db, Options{}).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Entities.Upserted != 1 {
		t.Errorf("upserted: got %d, want 1", report.Entities.Upserted)
	}
	if report.Entities.Unrecognized != 2 {
		t.Errorf("unrecognized: got %d, want 2", report.Entities.Unrecognized)
	}
	if report.Entities.Skipped != 1 {
		t.Errorf("skipped: got %d, want 1", report.Entities.Skipped)
	}
}

func TestMastersLastWriteWins(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	setupTables(t, db)

	insertRaw(t, db, "DIFF",
		makeKS("01088", "OLD NAME"),
		makeKS("01088", "NEW NAME"),
		makeCH("00432", "STABLE ONE"),
	)

	report, err := newTestRunner(t, db, Options{}).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Masters.Upserted != 3 {
		t.Errorf("master upserts: got %d, want 3", report.Masters.Upserted)
	}

	var name string
	if err := db.QueryRowContext(ctx,
		`SELECT jockey_name FROM jockeys WHERE jockey_code = '01088'`).Scan(&name); err != nil {
		t.Fatal(err)
	}
	if name != "NEW NAME" {
		t.Errorf("last write should win: got %q", name)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jockeys`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("jockeys duplicated: %d rows", count)
	}
}

func TestSkipStages(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	setupTables(t, db)

	insertRaw(t, db, "RACE", makeKS("01088", "TAKANASHI KEITA"))
	insertRaw(t, db, "ODDS", makeO1(testRace, "03151030", oddsBlock{"03", "0015", "0021"}))

	report, err := newTestRunner(t, db, Options{SkipMasters: true, SkipOdds: true}).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Masters.Upserted != 0 || report.Odds.Upserted != 0 {
		t.Errorf("skipped stages wrote rows: %+v", report)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jockeys`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("jockeys written despite skip: %d", count)
	}
}

func TestStageFailureKeepsEarlierCommits(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	setupTables(t, db)

	// Replace place_odds with a shape the upsert cannot satisfy, so the
	// odds stage fails after entities and masters have committed.
	if _, err := db.ExecContext(ctx, `DROP TABLE place_odds`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE place_odds (
		race_key TEXT NOT NULL,
		horse_no TEXT NOT NULL,
		place_odds_min REAL,
		place_odds_max REAL,
		announced_at TEXT,
		updated_at TEXT NOT NULL,
		source_file TEXT NOT NULL,
		PRIMARY KEY (race_key, horse_no)
	)`); err != nil {
		t.Fatal(err)
	}

	insertRaw(t, db, "RACE",
		makeRA(testRace, "A", "HANSIN", "1600", "17"),
		makeSE(testRace, "03", "2019105234", "01"),
		makeKS("01088", "TAKANASHI KEITA"),
	)
	insertRaw(t, db, "ODDS", makeO1(testRace, "03151030", oddsBlock{"03", "0015", "0021"}))

	_, err := newTestRunner(t, db, Options{}).Run(ctx)
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != "odds" {
		t.Fatalf("want odds stage error, got %v", err)
	}

	// Earlier stages committed their own transactions before the failure.
	if got := len(allRaces(t, db)); got != 1 {
		t.Errorf("races after odds failure: %d", got)
	}
	if got := len(allEntries(t, db)); got != 1 {
		t.Errorf("entries after odds failure: %d", got)
	}
	var jockeys int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jockeys`).Scan(&jockeys); err != nil {
		t.Fatal(err)
	}
	if jockeys != 1 {
		t.Errorf("jockeys after odds failure: %d", jockeys)
	}
	if got := len(allOdds(t, db)); got != 0 {
		t.Errorf("failed odds stage left rows behind: %d", got)
	}
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func eqBoolPtr(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
