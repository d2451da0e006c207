package build

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"

	"github.com/asayao-fp/keiba/models"
)

var testDBSeq int64

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:buildtest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		t.Fatal(err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestRunner(t *testing.T, db *bun.DB, opts Options) *Runner {
	t.Helper()
	return NewRunner(db, zap.NewNop(), opts).
		WithNow(func() string { return "2024-03-15T12:00:00Z" })
}

// fixed builds a fixed-width payload: a space-filled buffer with
// fragments written at byte offsets.
func fixed(width int, at map[int]string) string {
	buf := []byte(strings.Repeat(" ", width))
	for offset, s := range at {
		copy(buf[offset:], s)
	}
	return string(buf)
}

type raKey struct {
	date, course, kai, day, raceNo string
}

func (k raKey) String() string {
	return k.date + k.course + k.kai + k.day + k.raceNo
}

func makeRA(k raKey, grade, name, distance, track string) string {
	return fixed(1272, map[int]string{
		0: "RA", 11: k.date, 19: k.course, 21: k.kai, 23: k.day, 25: k.raceNo,
		604: name, 614: grade, 696: distance, 700: track,
	})
}

func makeSE(k raKey, horseNo, horseID, finish string) string {
	return fixed(555, map[int]string{
		0: "SE", 11: k.date, 19: k.course, 21: k.kai, 23: k.day, 25: k.raceNo,
		28: horseNo, 30: horseID,
		100: "T0001", 112: "J0001", 118: "550", 308: "478",
		334: finish,
	})
}

func makeKS(code, name string) string {
	return fixed(80, map[int]string{0: "KS", 11: code, 41: name})
}

func makeCH(code, name string) string {
	return fixed(80, map[int]string{0: "CH", 11: code, 41: name})
}

type oddsBlock struct {
	horseNo, min, max string
}

func makeO1(k raKey, announced string, blocks ...oddsBlock) string {
	at := map[int]string{
		0: "O1", 11: k.date, 19: k.course, 21: k.kai, 23: k.day, 25: k.raceNo,
		27: announced,
	}
	for i, b := range blocks {
		base := 267 + i*12
		at[base] = b.horseNo + b.min + b.max
	}
	return fixed(603, at)
}

func insertRaw(t *testing.T, db *bun.DB, dataspec string, payloads ...string) {
	t.Helper()
	ctx := context.Background()
	for _, p := range payloads {
		rec := &models.RawRecord{
			DataSpec:    dataspec,
			BuffName:    "test",
			PayloadText: p,
			PayloadSize: len(p),
			FetchedAt:   "2024-03-15T00:00:00",
		}
		if _, err := db.NewInsert().Model(rec).Exec(ctx); err != nil {
			t.Fatal(err)
		}
	}
}

func allRaces(t *testing.T, db *bun.DB) []models.Race {
	t.Helper()
	var races []models.Race
	if err := db.NewSelect().Model(&races).OrderExpr("race_key ASC").Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	return races
}

func allEntries(t *testing.T, db *bun.DB) []models.Entry {
	t.Helper()
	var entries []models.Entry
	if err := db.NewSelect().Model(&entries).OrderExpr("entry_key ASC").Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	return entries
}

func allOdds(t *testing.T, db *bun.DB) []models.PlaceOdds {
	t.Helper()
	var odds []models.PlaceOdds
	if err := db.NewSelect().Model(&odds).OrderExpr("race_key ASC, horse_no ASC").Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	return odds
}
