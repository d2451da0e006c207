package models

import "github.com/uptrace/bun"

// Race is one race decoded from an RA record. The key is the concatenation
// of date, course, meeting (kai), day and race number codes, so re-decoding
// the same record always lands on the same row.
type Race struct {
	bun.BaseModel `bun:"table:races,alias:rc"`

	RaceKey       string `bun:"race_key,pk" json:"raceKey"`
	YYYYMMDD      string `bun:"yyyymmdd,notnull" json:"yyyymmdd"`
	CourseCode    string `bun:"course_code,notnull" json:"courseCode"`
	Kai           string `bun:"kai,notnull" json:"kai"`
	Day           string `bun:"day,notnull" json:"day"`
	RaceNo        string `bun:"race_no,notnull" json:"raceNo"`
	GradeCode     string `bun:"grade_code,notnull" json:"gradeCode"`
	RaceNameShort string `bun:"race_name_short,notnull" json:"raceNameShort"`

	// Added by later decode revisions; null on rows built before the
	// columns existed.
	DistanceM *int    `bun:"distance_m" json:"distanceM"`
	TrackCode *string `bun:"track_code" json:"trackCode"`
	Surface   *string `bun:"surface" json:"surface"`

	CreatedAt string `bun:"created_at,notnull" json:"createdAt"`
}
