package models

import "github.com/uptrace/bun"

// Entry is one runner in one race, decoded from an SE record.
// FinishPos and IsPlace stay null for scratches and undecodable finish
// codes; IsPlace is true iff the runner finished in the top three.
type Entry struct {
	bun.BaseModel `bun:"table:entries,alias:e"`

	EntryKey  string `bun:"entry_key,pk" json:"entryKey"`
	RaceKey   string `bun:"race_key,notnull" json:"raceKey"`
	HorseNo   string `bun:"horse_no,notnull" json:"horseNo"`
	HorseID   string `bun:"horse_id,notnull" json:"horseID"`
	FinishPos *int   `bun:"finish_pos" json:"finishPos"`
	IsPlace   *bool  `bun:"is_place" json:"isPlace"`

	JockeyCode        *string `bun:"jockey_code" json:"jockeyCode"`
	TrainerCode       *string `bun:"trainer_code" json:"trainerCode"`
	BodyWeight        *int    `bun:"body_weight" json:"bodyWeight"`
	HandicapWeightX10 *int    `bun:"handicap_weight_x10" json:"handicapWeightX10"`

	Race *Race `bun:"rel:belongs-to,join:race_key=race_key" json:"-"`
}
