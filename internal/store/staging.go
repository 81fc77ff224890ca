package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bdcsubs/internal/aggregate"
	apperrors "bdcsubs/internal/errors"
)

var stagingColumns = []string{"tract", "technology", "download", "upload", "total", "residential"}

// StagingTable holds the accepted rows of one pre-aggregated run
type StagingTable struct {
	store  *Store
	schema string
	name   string
}

// Staging returns the staging table of isp
func (s *Store) Staging(isp string) *StagingTable {
	return &StagingTable{store: s, schema: s.cfg.SubscriberSchema, name: "subs_" + isp + "_staging"}
}

// Name returns the sanitized qualified table name
func (t *StagingTable) Name() string {
	return qualified(t.schema, t.name)
}

func (t *StagingTable) createSQL() string {
	return fmt.Sprintf(`CREATE UNLOGGED TABLE %s (
	tract text NOT NULL,
	technology integer NOT NULL,
	download numeric NOT NULL,
	upload numeric NOT NULL,
	total integer NOT NULL,
	residential integer NOT NULL
)`, t.Name())
}

// Create replaces any leftover staging table with an empty one
func (t *StagingTable) Create(ctx context.Context) error {
	if err := t.Drop(ctx); err != nil {
		return err
	}
	if _, err := t.store.db.Exec(ctx, t.createSQL()); err != nil {
		return apperrors.NewPersistenceError("failed to create staging table", err)
	}
	return nil
}

// Insert bulk-loads accepted aggregate rows
func (t *StagingTable) Insert(ctx context.Context, records []aggregate.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	src := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		r := records[i]
		return []any{r.Tract, r.Technology, r.Download, r.Upload, r.Total, r.Residential}, nil
	})
	n, err := t.store.db.CopyFrom(ctx, pgx.Identifier{t.schema, t.name}, stagingColumns, src)
	if err != nil {
		return 0, apperrors.NewPersistenceError("failed to insert staging rows", err)
	}
	return n, nil
}

// Drop removes the staging table if it exists
func (t *StagingTable) Drop(ctx context.Context) error {
	if _, err := t.store.db.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, t.Name())); err != nil {
		return apperrors.NewPersistenceError("failed to drop staging table", err)
	}
	return nil
}
