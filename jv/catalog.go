package jv

// Surface category per JRA track code. Codes outside the table decode to
// SurfaceUnknown rather than failing; the feed has introduced new codes
// before.
const (
	SurfaceTurf     = "turf"
	SurfaceDirt     = "dirt"
	SurfaceObstacle = "obstacle"
	SurfaceUnknown  = "unknown"
)

var trackSurfaces = map[string]string{
	"10": SurfaceTurf, "11": SurfaceTurf, "12": SurfaceTurf,
	"13": SurfaceTurf, "14": SurfaceTurf, "15": SurfaceTurf,
	"16": SurfaceTurf, "17": SurfaceTurf, "18": SurfaceTurf,
	"19": SurfaceTurf, "20": SurfaceTurf, "21": SurfaceTurf,
	"22": SurfaceTurf,
	"23": SurfaceDirt, "24": SurfaceDirt, "25": SurfaceDirt,
	"26": SurfaceDirt, "27": SurfaceDirt, "28": SurfaceDirt,
	"29": SurfaceDirt,
	"51": SurfaceObstacle, "52": SurfaceObstacle, "53": SurfaceObstacle,
	"54": SurfaceObstacle, "55": SurfaceObstacle, "56": SurfaceObstacle,
	"57": SurfaceObstacle, "58": SurfaceObstacle, "59": SurfaceObstacle,
}

// raceKeyFields is the identification block shared by RA, SE and O1
// records: date, course, meeting, day and race number at fixed positions.
var raceKeyFields = []Field{
	{Name: "year", Offset: 11, Length: 4, Transform: TransformRaw},
	{Name: "monthday", Offset: 15, Length: 4, Transform: TransformRaw},
	{Name: "course_code", Offset: 19, Length: 2, Transform: TransformRaw},
	{Name: "kai", Offset: 21, Length: 2, Transform: TransformRaw},
	{Name: "day", Offset: 23, Length: 2, Transform: TransformRaw},
	{Name: "race_no", Offset: 25, Length: 2, Transform: TransformRaw},
}

// DefaultCatalog returns the layouts currently trusted for the JV feed.
// Offsets are zero-based byte positions verified by sampling hit rates
// against the archive (inspect_raw_layouts workflow).
func DefaultCatalog() *Catalog {
	ra := Layout{
		Prefix:    "RA",
		MinLength: 615,
		Fields: append(append([]Field{}, raceKeyFields...),
			Field{Name: "race_name_short", Offset: 604, Length: 6, Transform: TransformTrim},
			Field{Name: "grade_code", Offset: 614, Length: 1, Transform: TransformRaw},
			Field{Name: "distance_m", Offset: 696, Length: 4, Transform: TransformInt},
			Field{Name: "track_code", Offset: 700, Length: 2, Transform: TransformTrim},
			Field{Name: "surface", Offset: 700, Length: 2, Transform: TransformCode,
				Codes: trackSurfaces, Fallback: SurfaceUnknown},
		),
	}

	se := Layout{
		Prefix:    "SE",
		MinLength: 336,
		Fields: append(append([]Field{}, raceKeyFields...),
			Field{Name: "horse_no", Offset: 28, Length: 2, Transform: TransformRaw},
			Field{Name: "horse_id", Offset: 30, Length: 10, Transform: TransformTrim},
			Field{Name: "trainer_code", Offset: 100, Length: 5, Transform: TransformTrim},
			Field{Name: "jockey_code", Offset: 112, Length: 5, Transform: TransformTrim},
			Field{Name: "handicap_weight_x10", Offset: 118, Length: 3, Transform: TransformInt},
			Field{Name: "body_weight", Offset: 308, Length: 3, Transform: TransformInt},
			Field{Name: "finish_pos", Offset: 334, Length: 2, Transform: TransformInt},
		),
	}

	ks := Layout{
		Prefix:    "KS",
		MinLength: 75,
		Fields: []Field{
			{Name: "jockey_code", Offset: 11, Length: 5, Transform: TransformTrim},
			{Name: "jockey_name", Offset: 41, Length: 34, Transform: TransformTrim},
		},
	}

	ch := Layout{
		Prefix:    "CH",
		MinLength: 75,
		Fields: []Field{
			{Name: "trainer_code", Offset: 11, Length: 5, Transform: TransformTrim},
			{Name: "trainer_name", Offset: 41, Length: 34, Transform: TransformTrim},
		},
	}

	// O1: place-odds block per horse, 28 groups of 12 bytes from offset 267.
	o1 := Layout{
		Prefix:    "O1",
		MinLength: 603,
		Fields: append(append([]Field{}, raceKeyFields...),
			Field{Name: "announced", Offset: 27, Length: 8, Transform: TransformTrim},
		),
		Block: &Block{
			Offset: 267,
			Length: 12,
			Count:  28,
			Fields: []Field{
				{Name: "horse_no", Offset: 0, Length: 2, Transform: TransformTrim},
				{Name: "place_odds_min", Offset: 2, Length: 4, Transform: TransformFixed, Scale: 10},
				{Name: "place_odds_max", Offset: 6, Length: 4, Transform: TransformFixed, Scale: 10},
			},
		},
	}

	return NewCatalog(ra, se, ks, ch, o1)
}
