package models

import "github.com/uptrace/bun"

// PlaceOdds holds the latest place-odds quote for a runner, decoded from
// the repeating blocks of an O1 record. Odds come off the wire as 4-digit
// integers over ten. AnnouncedAt is yyyymmddHHMM; a quote with an older
// announcement must never replace a newer one.
type PlaceOdds struct {
	bun.BaseModel `bun:"table:place_odds,alias:po"`

	RaceKey      string   `bun:"race_key,pk" json:"raceKey"`
	HorseNo      string   `bun:"horse_no,pk" json:"horseNo"`
	PlaceOddsMin *float64 `bun:"place_odds_min" json:"placeOddsMin"`
	PlaceOddsMax *float64 `bun:"place_odds_max" json:"placeOddsMax"`
	AnnouncedAt  *string  `bun:"announced_at" json:"announcedAt"`
	UpdatedAt    string   `bun:"updated_at,notnull" json:"updatedAt"`
}
