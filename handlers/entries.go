package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// entryRow is a flat scan target for the entries join query.
type entryRow struct {
	EntryKey          string   `bun:"entry_key"`
	HorseNo           string   `bun:"horse_no"`
	HorseID           string   `bun:"horse_id"`
	FinishPos         *int     `bun:"finish_pos"`
	IsPlace           *bool    `bun:"is_place"`
	JockeyCode        *string  `bun:"jockey_code"`
	JockeyName        *string  `bun:"jockey_name"`
	TrainerCode       *string  `bun:"trainer_code"`
	TrainerName       *string  `bun:"trainer_name"`
	BodyWeight        *int     `bun:"body_weight"`
	HandicapWeightX10 *int     `bun:"handicap_weight_x10"`
	PlaceOddsMin      *float64 `bun:"place_odds_min"`
	PlaceOddsMax      *float64 `bun:"place_odds_max"`
}

const entriesJoinSQL = `
SELECT
	e.entry_key, e.horse_no, e.horse_id, e.finish_pos, e.is_place,
	e.jockey_code, j.jockey_name, e.trainer_code, t.trainer_name,
	e.body_weight, e.handicap_weight_x10,
	po.place_odds_min, po.place_odds_max
FROM entries e
LEFT JOIN jockeys j ON j.jockey_code = e.jockey_code
LEFT JOIN trainers t ON t.trainer_code = e.trainer_code
LEFT JOIN place_odds po ON po.race_key = e.race_key AND po.horse_no = e.horse_no
WHERE e.race_key = ?
ORDER BY e.horse_no ASC`

type entryData struct {
	EntryKey          string   `json:"entryKey"`
	HorseNo           string   `json:"horseNo"`
	HorseID           string   `json:"horseID"`
	FinishPos         *int     `json:"finishPos"`
	IsPlace           *bool    `json:"isPlace"`
	JockeyCode        *string  `json:"jockeyCode"`
	JockeyName        *string  `json:"jockeyName"`
	TrainerCode       *string  `json:"trainerCode"`
	TrainerName       *string  `json:"trainerName"`
	BodyWeight        *int     `json:"bodyWeight"`
	HandicapWeightX10 *int     `json:"handicapWeightX10"`
	PlaceOddsMin      *float64 `json:"placeOddsMin"`
	PlaceOddsMax      *float64 `json:"placeOddsMax"`
}

// RaceEntries returns the runners of one race with jockey/trainer names
// and the latest place odds joined in. Nullable fields come through as
// JSON null: an unknown value is absent, never zero or "".
func (h *Handler) RaceEntries(c echo.Context) error {
	key := c.Param("key")

	var rows []entryRow
	err := h.db.NewRaw(entriesJoinSQL, key).Scan(c.Request().Context(), &rows)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	result := make([]entryData, len(rows))
	for i, r := range rows {
		result[i] = entryData{
			EntryKey:          r.EntryKey,
			HorseNo:           r.HorseNo,
			HorseID:           r.HorseID,
			FinishPos:         r.FinishPos,
			IsPlace:           r.IsPlace,
			JockeyCode:        r.JockeyCode,
			JockeyName:        r.JockeyName,
			TrainerCode:       r.TrainerCode,
			TrainerName:       r.TrainerName,
			BodyWeight:        r.BodyWeight,
			HandicapWeightX10: r.HandicapWeightX10,
			PlaceOddsMin:      r.PlaceOddsMin,
			PlaceOddsMax:      r.PlaceOddsMax,
		}
	}

	return c.JSON(http.StatusOK, result)
}
