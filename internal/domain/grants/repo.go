package grants

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ db *pgxpool.Pool }

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

const grantColumns = `session_id, event_id, user_id, amount, currency, invite_link, notified,
	status, attempts, last_error, created_at, updated_at`

func scanGrant(row pgx.Row) (*Grant, error) {
	var g Grant
	if err := row.Scan(
		&g.SessionID,
		&g.EventID,
		&g.UserID,
		&g.Amount,
		&g.Currency,
		&g.InviteLink,
		&g.Notified,
		&g.Status,
		&g.Attempts,
		&g.LastError,
		&g.CreatedAt,
		&g.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *Repo) Enqueue(ctx context.Context, g Grant) (bool, error) {
	if g.Status == "" {
		g.Status = StatusPending
	}
	const q = `
INSERT INTO grants (session_id, event_id, user_id, amount, currency, status)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (session_id) DO NOTHING`
	tag, err := r.db.Exec(ctx, q, g.SessionID, g.EventID, g.UserID, g.Amount, g.Currency, string(g.Status))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repo) Get(ctx context.Context, sessionID string) (*Grant, error) {
	row := r.db.QueryRow(ctx, `SELECT `+grantColumns+` FROM grants WHERE session_id = $1`, sessionID)
	g, err := scanGrant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *Repo) Save(ctx context.Context, g Grant) error {
	const q = `
UPDATE grants
SET invite_link = $2,
    notified    = $3,
    status      = $4,
    attempts    = $5,
    last_error  = $6,
    updated_at  = now()
WHERE session_id = $1`
	tag, err := r.db.Exec(ctx, q, g.SessionID, g.InviteLink, g.Notified, string(g.Status), g.Attempts, g.LastError)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) ListByStatus(ctx context.Context, status Status) ([]Grant, error) {
	return r.query(ctx, `SELECT `+grantColumns+` FROM grants WHERE status = $1 ORDER BY created_at`, string(status))
}

func (r *Repo) List(ctx context.Context) ([]Grant, error) {
	return r.query(ctx, `SELECT `+grantColumns+` FROM grants ORDER BY created_at`)
}

func (r *Repo) query(ctx context.Context, q string, args ...any) ([]Grant, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}
