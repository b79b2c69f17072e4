package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- transaction plumbing ----

type txKey struct{}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the transaction carried by ctx when inside WithRoomLock,
// otherwise the bare pool.
func (r *Repo) q(ctx context.Context) execer {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.db
}

// WithRoomLock runs fn inside a transaction that holds the room's lock row
// FOR UPDATE. Everything fn does through this repo joins that transaction,
// so the availability re-check and the insert commit or roll back together.
func (r *Repo) WithRoomLock(ctx context.Context, roomID string, fn func(ctx context.Context) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin room tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, ensureRoomLockSQL, roomID); err != nil {
		return fmt.Errorf("ensure room lock row: %w", err)
	}
	var locked string
	if err := tx.QueryRowContext(ctx, takeRoomLockSQL, roomID).Scan(&locked); err != nil {
		return fmt.Errorf("take room lock: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

// ---- write paths ----

func (r *Repo) Insert(ctx context.Context, e domain.LedgerEntry) error {
	beds, _ := json.Marshal(e.Beds)
	platform, externalID := externalCols(e.External)
	pricing, err := pricingCol(e.Pricing)
	if err != nil {
		return err
	}
	_, err = r.q(ctx).ExecContext(ctx, insertEntrySQL,
		e.ID, e.RoomID, string(beds),
		e.Stay.CheckIn, e.Stay.CheckOut,
		string(e.Origin), string(e.Status), e.FemaleOnly,
		e.GuestLabel, e.GuestCount,
		platform, externalID,
		nullTime(e.ExpiresAt), pricing,
		e.CreatedAt, e.UpdatedAt,
	)
	return err
}

func (r *Repo) Update(ctx context.Context, e domain.LedgerEntry) error {
	beds, _ := json.Marshal(e.Beds)
	platform, externalID := externalCols(e.External)
	res, err := r.q(ctx).ExecContext(ctx, updateEntrySQL,
		string(beds),
		e.Stay.CheckIn, e.Stay.CheckOut,
		string(e.Status), e.FemaleOnly,
		e.GuestLabel, e.GuestCount,
		platform, externalID,
		nullTime(e.ExpiresAt), e.UpdatedAt,
		e.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is 0 for both "missing" and "unchanged"; only the
		// missing case is an error.
		var one int
		if scanErr := r.q(ctx).QueryRowContext(ctx, `SELECT 1 FROM ledger_entries WHERE id = ?`, e.ID).Scan(&one); scanErr == sql.ErrNoRows {
			return domain.ErrNotFound
		}
	}
	return nil
}

func (r *Repo) UpdateStatusIf(ctx context.Context, id string, from, to domain.EntryStatus, now time.Time) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if from == domain.StatusHold {
		res, err = r.q(ctx).ExecContext(ctx, updateHoldStatusSQL, string(to), now, id, string(from), now)
	} else {
		res, err = r.q(ctx).ExecContext(ctx, updateStatusSQL, string(to), now, id, string(from))
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q(ctx).ExecContext(ctx, expireDueSQL, now, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---- read paths ----

func (r *Repo) Get(ctx context.Context, id string) (domain.LedgerEntry, error) {
	row := r.q(ctx).QueryRowContext(ctx, getEntrySQL, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return domain.LedgerEntry{}, domain.ErrNotFound
	}
	return e, err
}

func (r *Repo) ListOverlapping(ctx context.Context, roomID string, stay domain.StayInterval) ([]domain.LedgerEntry, error) {
	rows, err := r.q(ctx).QueryContext(ctx, listOverlappingSQL, roomID, stay.CheckOut, stay.CheckIn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) FindByExternalRef(ctx context.Context, roomID string, ref domain.ExternalRef) (*domain.LedgerEntry, error) {
	row := r.q(ctx).QueryRowContext(ctx, findByExternalSQL, roomID, ref.Platform, ref.BookingID)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ---- scanning helpers ----

type rowScanner interface{ Scan(dest ...any) error }

func scanEntry(row rowScanner) (domain.LedgerEntry, error) {
	var (
		e          domain.LedgerEntry
		beds       []byte
		origin     string
		status     string
		platform   sql.NullString
		externalID sql.NullString
		expiresAt  sql.NullTime
		pricing    []byte
	)
	if err := row.Scan(
		&e.ID, &e.RoomID, &beds,
		&e.Stay.CheckIn, &e.Stay.CheckOut,
		&origin, &status, &e.FemaleOnly,
		&e.GuestLabel, &e.GuestCount,
		&platform, &externalID,
		&expiresAt, &pricing,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return domain.LedgerEntry{}, err
	}
	e.Origin = domain.EntryOrigin(origin)
	e.Status = domain.EntryStatus(status)
	_ = json.Unmarshal(beds, &e.Beds)
	if platform.Valid && externalID.Valid {
		e.External = &domain.ExternalRef{Platform: platform.String, BookingID: externalID.String}
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		e.ExpiresAt = &t
	}
	if len(pricing) > 0 {
		var snap domain.PriceSnapshot
		if err := json.Unmarshal(pricing, &snap); err == nil {
			e.Pricing = &snap
		}
	}
	return e, nil
}

func externalCols(ref *domain.ExternalRef) (any, any) {
	if ref == nil {
		return nil, nil
	}
	return ref.Platform, ref.BookingID
}

func pricingCol(snap *domain.PriceSnapshot) (any, error) {
	if snap == nil {
		return nil, nil
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal pricing snapshot: %w", err)
	}
	return string(b), nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
