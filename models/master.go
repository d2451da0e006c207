package models

import "github.com/uptrace/bun"

// Jockey is a roster row decoded from a KS master record.
// A later decode with the same code overwrites name and timestamp.
type Jockey struct {
	bun.BaseModel `bun:"table:jockeys,alias:j"`

	JockeyCode string  `bun:"jockey_code,pk" json:"jockeyCode"`
	JockeyName *string `bun:"jockey_name" json:"jockeyName"`
	UpdatedAt  string  `bun:"updated_at,notnull" json:"updatedAt"`
}

// Trainer is a roster row decoded from a CH master record.
type Trainer struct {
	bun.BaseModel `bun:"table:trainers,alias:t"`

	TrainerCode string  `bun:"trainer_code,pk" json:"trainerCode"`
	TrainerName *string `bun:"trainer_name" json:"trainerName"`
	UpdatedAt   string  `bun:"updated_at,notnull" json:"updatedAt"`
}
