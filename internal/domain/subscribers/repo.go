package subscribers

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ db *pgxpool.Pool }

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

func (r *Repo) Append(ctx context.Context, s Subscriber) (bool, error) {
	const q = `
INSERT INTO subscribers (user_id, session_id, granted_at)
VALUES ($1, $2, $3)
ON CONFLICT (session_id) DO NOTHING`
	tag, err := r.db.Exec(ctx, q, s.UserID, s.SessionID, s.GrantedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repo) List(ctx context.Context) ([]Subscriber, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id, session_id, granted_at FROM subscribers ORDER BY granted_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscriber
	for rows.Next() {
		var s Subscriber
		if err := rows.Scan(&s.UserID, &s.SessionID, &s.GrantedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
