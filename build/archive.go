package build

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/asayao-fp/keiba/models"
)

const defaultBatchSize = 1000

// Cursor streams raw_jv_records in id order without ever materializing
// the archive: rows are pulled in fixed-size windows via keyset
// pagination, so peak memory stays flat no matter how large the archive
// grows. A fresh cursor always starts from the beginning; rebuilds carry
// no state between invocations.
type Cursor struct {
	db       bun.IDB
	dataspec string
	prefix   string
	batch    int

	lastID int64
	buf    []models.RawRecord
	pos    int
	done   bool
}

// CursorOption narrows or tunes a Cursor.
type CursorOption func(*Cursor)

// WithDataSpec restricts the scan to one feed category.
func WithDataSpec(dataspec string) CursorOption {
	return func(c *Cursor) { c.dataspec = dataspec }
}

// WithPrefix restricts the scan to payloads with the given leading
// characters, pushed into SQL so uninteresting rows never leave the
// storage engine.
func WithPrefix(prefix string) CursorOption {
	return func(c *Cursor) { c.prefix = prefix }
}

// WithBatchSize overrides the window size.
func WithBatchSize(n int) CursorOption {
	return func(c *Cursor) {
		if n > 0 {
			c.batch = n
		}
	}
}

// NewCursor builds a cursor over the archive within the given handle
// (connection or transaction).
func NewCursor(db bun.IDB, opts ...CursorOption) *Cursor {
	c := &Cursor{db: db, batch: defaultBatchSize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Next returns the next record, or (nil, nil) at end of archive.
func (c *Cursor) Next(ctx context.Context) (*models.RawRecord, error) {
	if c.pos >= len(c.buf) {
		if c.done {
			return nil, nil
		}
		if err := c.fill(ctx); err != nil {
			return nil, err
		}
		if len(c.buf) == 0 {
			return nil, nil
		}
	}
	rec := &c.buf[c.pos]
	c.pos++
	return rec, nil
}

func (c *Cursor) fill(ctx context.Context) error {
	c.buf = c.buf[:0]
	c.pos = 0

	q := c.db.NewSelect().
		Model(&c.buf).
		Where("id > ?", c.lastID).
		Order("id ASC").
		Limit(c.batch)
	if c.dataspec != "" {
		q = q.Where("dataspec = ?", c.dataspec)
	}
	if c.prefix != "" {
		q = q.Where("SUBSTR(payload_text, 1, ?) = ?", len(c.prefix), c.prefix)
	}

	if err := q.Scan(ctx); err != nil {
		return err
	}
	if len(c.buf) > 0 {
		c.lastID = c.buf[len(c.buf)-1].ID
	}
	if len(c.buf) < c.batch {
		c.done = true
	}
	return nil
}
