package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "bdcsubs/internal/errors"
	"bdcsubs/internal/subscriber"
)

// ActiveType marks rows loaded from the current subscriber file
const ActiveType = "Active"

// subscriberColumns is the column order of the per-ISP table
var subscriberColumns = []string{
	"customer", "lat", "lon", "address", "address2", "city", "state", "zip",
	"download", "upload", "voip_lines_quantity", "business_customer",
	"technology", "tech", "tract", "match", "bdc_id", "type", "date", "notes",
}

const subscriberTableDDL = `(
	customer text,
	lat numeric,
	lon numeric,
	address text,
	address2 text,
	city text,
	state text,
	zip text,
	download numeric,
	upload numeric,
	voip_lines_quantity integer,
	business_customer numeric,
	technology integer,
	tech text,
	tract text,
	match boolean,
	bdc_id integer,
	type text,
	date timestamp without time zone,
	notes text
)`

// SubscriberTable is the per-ISP subscriber table, recreated on every run.
// Rows that are not Active (leads and manual entries) can be carried across
// the recreation through a companion _temp table.
type SubscriberTable struct {
	store  *Store
	schema string
	name   string
}

// SubscriberTable returns the table of isp
func (s *Store) SubscriberTable(isp string) *SubscriberTable {
	return &SubscriberTable{store: s, schema: s.cfg.SubscriberSchema, name: "subs_" + isp}
}

// Name returns the sanitized qualified table name
func (t *SubscriberTable) Name() string {
	return qualified(t.schema, t.name)
}

func (t *SubscriberTable) tempName() string {
	return qualified(t.schema, t.name+"_temp")
}

func (t *SubscriberTable) existsSQL() string {
	return `SELECT to_regclass($1) IS NOT NULL`
}

func (t *SubscriberTable) preserveSQL() string {
	return fmt.Sprintf(`CREATE TABLE %s AS SELECT * FROM %s WHERE type <> '%s'`, t.tempName(), t.Name(), ActiveType)
}

func (t *SubscriberTable) createSQL() string {
	return fmt.Sprintf(`CREATE TABLE %s %s`, t.Name(), subscriberTableDDL)
}

func (t *SubscriberTable) restoreSQL() string {
	return fmt.Sprintf(`INSERT INTO %s SELECT * FROM %s`, t.Name(), t.tempName())
}

func (t *SubscriberTable) indexSQL() string {
	index := pgx.Identifier{t.name + "_customer_index"}.Sanitize()
	return fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (customer)`, index, t.Name())
}

// Recreate drops and creates the table in one transaction. With preserve set
// and an existing table, its non-Active rows are first copied to the _temp
// table. It returns the number of rows preserved.
func (t *SubscriberTable) Recreate(ctx context.Context, preserve bool) (int64, error) {
	s := t.store
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, apperrors.NewPersistenceError("failed to begin transaction", err)
	}
	defer s.rollback(ctx, tx)

	var preserved int64
	if preserve {
		var exists bool
		if err := tx.QueryRow(ctx, t.existsSQL(), t.schema+"."+t.name).Scan(&exists); err != nil {
			return 0, apperrors.NewPersistenceError("failed to check subscriber table", err)
		}
		if exists {
			if _, err := tx.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, t.tempName())); err != nil {
				return 0, apperrors.NewPersistenceError("failed to drop stale preserve table", err)
			}
			tag, err := tx.Exec(ctx, t.preserveSQL())
			if err != nil {
				return 0, apperrors.NewPersistenceError("failed to preserve non-active rows", err)
			}
			preserved = tag.RowsAffected()
		}
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, t.Name())); err != nil {
		return 0, apperrors.NewPersistenceError("failed to drop subscriber table", err)
	}
	if _, err := tx.Exec(ctx, t.createSQL()); err != nil {
		return 0, apperrors.NewPersistenceError("failed to create subscriber table", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, apperrors.NewPersistenceError("failed to commit table recreation", err)
	}

	s.logger.InfoContext(ctx, "subscriber table recreated",
		slog.String("table", t.Name()),
		slog.Int64("preserved_rows", preserved))
	return preserved, nil
}

// Insert bulk-loads accepted records as Active rows stamped with at
func (t *SubscriberTable) Insert(ctx context.Context, records []subscriber.Record, at time.Time) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	stamp := at.Truncate(time.Second)
	src := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		r := records[i]
		return []any{
			r.Customer, r.Lat, r.Lon, r.Address, nullable(r.Address2), r.City, r.State, r.Zip,
			r.Download, r.Upload, r.VoiceLines, r.BusinessCount(),
			r.Technology, r.TechLabel, r.Tract, r.Geocoded, nil, ActiveType, stamp, nil,
		}, nil
	})

	n, err := t.store.db.CopyFrom(ctx, pgx.Identifier{t.schema, t.name}, subscriberColumns, src)
	if err != nil {
		return 0, apperrors.NewPersistenceError("failed to insert subscribers", err)
	}
	return n, nil
}

// RestorePreserved moves the rows saved by Recreate back and drops _temp.
// It is a no-op when nothing was preserved.
func (t *SubscriberTable) RestorePreserved(ctx context.Context) (int64, error) {
	s := t.store
	var exists bool
	if err := s.db.QueryRow(ctx, t.existsSQL(), t.schema+"."+t.name+"_temp").Scan(&exists); err != nil {
		return 0, apperrors.NewPersistenceError("failed to check preserve table", err)
	}
	if !exists {
		return 0, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, apperrors.NewPersistenceError("failed to begin transaction", err)
	}
	defer s.rollback(ctx, tx)

	tag, err := tx.Exec(ctx, t.restoreSQL())
	if err != nil {
		return 0, apperrors.NewPersistenceError("failed to restore preserved rows", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, t.tempName())); err != nil {
		return 0, apperrors.NewPersistenceError("failed to drop preserve table", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, apperrors.NewPersistenceError("failed to commit restore", err)
	}
	return tag.RowsAffected(), nil
}

// CreateCustomerIndex indexes the table by customer id
func (t *SubscriberTable) CreateCustomerIndex(ctx context.Context) error {
	if _, err := t.store.db.Exec(ctx, t.indexSQL()); err != nil {
		return apperrors.NewPersistenceError("failed to create customer index", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
