package datasource

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"inspection-platform/internal/calls"
	"inspection-platform/pkg/utils"
)

const (
	selectOffices = `SELECT id, code, name, location FROM regional_offices ORDER BY code`

	selectCalls = `SELECT id, call_number, product, stage, status, rio, submission_count,
       return_reason, flagged_fields, details, version, created_at, updated_at
FROM calls ORDER BY created_at, call_number`

	selectHistory = `SELECT id, call_number, ts, action, actor, remarks
FROM call_history ORDER BY call_number, seq`

	updateCall = `UPDATE calls
SET status = $1, rio = $2, submission_count = $3, return_reason = $4,
    flagged_fields = $5, version = $6, updated_at = $7
WHERE id = $8 AND version = $9`

	insertHistory = `INSERT INTO call_history (id, call_number, ts, action, actor, remarks)
VALUES ($1, $2, $3, $4, $5, $6)`

	upsertOffice = `INSERT INTO regional_offices (id, code, name, location)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name, location = EXCLUDED.location`

	upsertCall = `INSERT INTO calls (id, call_number, product, stage, status, rio, submission_count,
    return_reason, flagged_fields, details, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO NOTHING`

	insertHistoryIfMissing = `INSERT INTO call_history (id, call_number, ts, action, actor, remarks)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`
)

// Postgres is both the Source and the Store when DATA_SOURCE=postgres.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) FetchAll(ctx context.Context) (Snapshot, error) {
	if p.db == nil {
		return Snapshot{}, ErrNotConfigured
	}
	var snap Snapshot
	err := utils.WithTx(ctx, p.db, utils.SnapshotRead, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		if snap.Offices, err = fetchOffices(ctx, tx); err != nil {
			return err
		}
		all, err := fetchCalls(ctx, tx)
		if err != nil {
			return err
		}
		for _, c := range all {
			if err := snap.Add(c); err != nil {
				return err
			}
		}
		snap.History, err = fetchHistory(ctx, tx)
		return err
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func fetchOffices(ctx context.Context, tx *sql.Tx) ([]calls.RegionalOffice, error) {
	rows, err := tx.QueryContext(ctx, selectOffices)
	if err != nil {
		return nil, fmt.Errorf("select offices: %w", err)
	}
	defer rows.Close()
	var out []calls.RegionalOffice
	for rows.Next() {
		var o calls.RegionalOffice
		if err := rows.Scan(&o.ID, &o.Code, &o.Name, &o.Location); err != nil {
			return nil, fmt.Errorf("scan office: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func fetchCalls(ctx context.Context, tx *sql.Tx) ([]calls.Call, error) {
	rows, err := tx.QueryContext(ctx, selectCalls)
	if err != nil {
		return nil, fmt.Errorf("select calls: %w", err)
	}
	defer rows.Close()
	var out []calls.Call
	for rows.Next() {
		var (
			c                calls.Call
			flagged, details []byte
		)
		if err := rows.Scan(&c.ID, &c.CallNumber, &c.Product, &c.Stage, &c.Status, &c.RIO, &c.SubmissionCount,
			&c.ReturnReason, &flagged, &details, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		if len(flagged) > 0 {
			if err := json.Unmarshal(flagged, &c.FlaggedFields); err != nil {
				return nil, fmt.Errorf("call %s flagged_fields: %w", c.CallNumber, err)
			}
			if len(c.FlaggedFields) == 0 {
				c.FlaggedFields = nil
			}
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &c.Details); err != nil {
				return nil, fmt.Errorf("call %s details: %w", c.CallNumber, err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func fetchHistory(ctx context.Context, tx *sql.Tx) ([]calls.HistoryEntry, error) {
	rows, err := tx.QueryContext(ctx, selectHistory)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()
	var out []calls.HistoryEntry
	for rows.Next() {
		var e calls.HistoryEntry
		if err := rows.Scan(&e.ID, &e.CallNumber, &e.Timestamp, &e.Action, &e.Actor, &e.Remarks); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveTransition writes the call row and its history entry in one transaction.
// A row whose version moved on yields ErrVersionMismatch and nothing is written.
func (p *Postgres) SaveTransition(ctx context.Context, ch Change) error {
	if p.db == nil {
		return ErrNotConfigured
	}
	flagged, err := marshalFlagged(ch.Call.FlaggedFields)
	if err != nil {
		return err
	}
	c := ch.Call
	return utils.WithTx(ctx, p.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, updateCall,
			string(c.Status), c.RIO, c.SubmissionCount, c.ReturnReason,
			flagged, c.Version, c.UpdatedAt, c.ID, ch.ExpectedVersion)
		if err != nil {
			return fmt.Errorf("update call %s: %w", c.CallNumber, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update call %s: %w", c.CallNumber, err)
		}
		if n == 0 {
			return ErrVersionMismatch
		}
		e := ch.Entry
		if _, err := tx.ExecContext(ctx, insertHistory, e.ID, e.CallNumber, e.Timestamp, e.Action, e.Actor, e.Remarks); err != nil {
			return fmt.Errorf("insert history %s: %w", e.CallNumber, err)
		}
		return nil
	})
}

// Seed loads a snapshot into empty or partially filled tables. Existing calls
// and history rows are left alone; offices are upserted.
func (p *Postgres) Seed(ctx context.Context, s Snapshot) (int, error) {
	if p.db == nil {
		return 0, ErrNotConfigured
	}
	inserted := 0
	err := utils.WithTx(ctx, p.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		for _, o := range s.Offices {
			if _, err := tx.ExecContext(ctx, upsertOffice, o.ID, o.Code, o.Name, o.Location); err != nil {
				return fmt.Errorf("seed office %s: %w", o.Code, err)
			}
		}
		now := time.Now().UTC()
		for _, group := range [][]calls.Call{s.Pending, s.Verified, s.Disposed} {
			for _, c := range group {
				flagged, err := marshalFlagged(c.FlaggedFields)
				if err != nil {
					return err
				}
				details, err := json.Marshal(c.Details)
				if err != nil {
					return fmt.Errorf("call %s details: %w", c.CallNumber, err)
				}
				created, updated := c.CreatedAt, c.UpdatedAt
				if created.IsZero() {
					created = now
				}
				if updated.IsZero() {
					updated = created
				}
				res, err := tx.ExecContext(ctx, upsertCall,
					c.ID, c.CallNumber, string(c.Product), string(c.Stage), string(c.Status), c.RIO, c.SubmissionCount,
					c.ReturnReason, flagged, details, c.Version, created, updated)
				if err != nil {
					return fmt.Errorf("seed call %s: %w", c.CallNumber, err)
				}
				if n, _ := res.RowsAffected(); n > 0 {
					inserted++
				}
			}
		}
		for _, e := range s.History {
			if _, err := tx.ExecContext(ctx, insertHistoryIfMissing, e.ID, e.CallNumber, e.Timestamp, e.Action, e.Actor, e.Remarks); err != nil {
				return fmt.Errorf("seed history %s: %w", e.CallNumber, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func marshalFlagged(fields []calls.FlaggedField) ([]byte, error) {
	if fields == nil {
		fields = []calls.FlaggedField{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("flagged fields: %w", err)
	}
	return b, nil
}
