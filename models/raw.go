package models

import "github.com/uptrace/bun"

// RawRecord is one fixed-width record as delivered by the JV-Link feed.
// Rows are appended by the ingestion tooling and never mutated; every
// normalized table is rebuilt from this archive.
type RawRecord struct {
	bun.BaseModel `bun:"table:raw_jv_records,alias:raw"`

	ID          int64  `bun:"id,pk,autoincrement" json:"id"`
	DataSpec    string `bun:"dataspec,notnull" json:"dataspec"`
	BuffName    string `bun:"buffname,notnull" json:"buffname"`
	PayloadText string `bun:"payload_text,notnull" json:"payloadText"`
	PayloadSize int    `bun:"payload_size,notnull" json:"payloadSize"`
	FetchedAt   string `bun:"fetched_at,notnull" json:"fetchedAt"`
}
