package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	kdb "github.com/asayao-fp/keiba/db"
	"github.com/asayao-fp/keiba/models"
)

var testDBSeq int64

func newTestHandler(t *testing.T) (*Handler, *bun.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:handlertest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		t.Fatal(err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	if err := kdb.CreateTables(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	return New(db, []byte("test-key")), db
}

func seedRace(t *testing.T, db *bun.DB) models.Race {
	t.Helper()
	distance := 1600
	surface := "turf"
	race := models.Race{
		RaceKey:       "2024031505030711",
		YYYYMMDD:      "20240315",
		CourseCode:    "05",
		Kai:           "03",
		Day:           "07",
		RaceNo:        "11",
		GradeCode:     "A",
		RaceNameShort: "HANSIN",
		DistanceM:     &distance,
		Surface:       &surface,
		CreatedAt:     "2024-03-15T12:00:00Z",
	}
	if _, err := db.NewInsert().Model(&race).Exec(context.Background()); err != nil {
		t.Fatal(err)
	}
	return race
}

func TestRacesDateRange(t *testing.T) {
	h, db := newTestHandler(t)
	seedRace(t, db)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/races?from=20240301&to=20240331", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Races(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}

	var races []models.Race
	if err := json.Unmarshal(rec.Body.Bytes(), &races); err != nil {
		t.Fatal(err)
	}
	if len(races) != 1 || races[0].RaceKey != "2024031505030711" {
		t.Fatalf("races: %+v", races)
	}
}

func TestRacesOutsideRange(t *testing.T) {
	h, db := newTestHandler(t)
	seedRace(t, db)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/races?from=20250101", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Races(c); err != nil {
		t.Fatal(err)
	}
	var races []models.Race
	if err := json.Unmarshal(rec.Body.Bytes(), &races); err != nil {
		t.Fatal(err)
	}
	if len(races) != 0 {
		t.Fatalf("expected no races, got %+v", races)
	}
}

func TestGetRaceNotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("key")
	c.SetParamValues("nope")

	err := h.GetRace(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %v", err)
	}
}

func TestRaceNullFieldsSerialized(t *testing.T) {
	h, db := newTestHandler(t)
	race := seedRace(t, db) // TrackCode left nil

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("key")
	c.SetParamValues(race.RaceKey)

	if err := h.GetRace(c); err != nil {
		t.Fatal(err)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	// Unknown values come back as explicit null, never dropped keys.
	v, present := body["trackCode"]
	if !present || v != nil {
		t.Fatalf("trackCode: present=%v value=%v", present, v)
	}
	if body["distanceM"] != float64(1600) {
		t.Fatalf("distanceM: %v", body["distanceM"])
	}
}

func TestRaceEntriesJoin(t *testing.T) {
	h, db := newTestHandler(t)
	race := seedRace(t, db)
	ctx := context.Background()

	jockeyCode := "01088"
	jockeyName := "TAKANASHI KEITA"
	placed := true
	finish := 1
	entry := models.Entry{
		EntryKey:   race.RaceKey + "03",
		RaceKey:    race.RaceKey,
		HorseNo:    "03",
		HorseID:    "2019105234",
		FinishPos:  &finish,
		IsPlace:    &placed,
		JockeyCode: &jockeyCode,
	}
	if _, err := db.NewInsert().Model(&entry).Exec(ctx); err != nil {
		t.Fatal(err)
	}
	jockey := models.Jockey{JockeyCode: jockeyCode, JockeyName: &jockeyName, UpdatedAt: "2024-03-15T12:00:00Z"}
	if _, err := db.NewInsert().Model(&jockey).Exec(ctx); err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("key")
	c.SetParamValues(race.RaceKey)

	if err := h.RaceEntries(c); err != nil {
		t.Fatal(err)
	}

	var rows []entryData
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows: %+v", rows)
	}
	r := rows[0]
	if r.JockeyName == nil || *r.JockeyName != jockeyName {
		t.Errorf("jockey join: %v", r.JockeyName)
	}
	if r.IsPlace == nil || !*r.IsPlace {
		t.Errorf("is_place: %v", r.IsPlace)
	}
	// No trainer and no odds seeded: unknowns come back as null.
	if r.TrainerName != nil || r.PlaceOddsMin != nil {
		t.Errorf("absent values must be null: %+v", r)
	}
}
