package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const listClubPositions = `-- name: ListClubPositions :many
SELECT club_id,
       x,
       y,
       manual,
       updated_at
FROM club_positions
ORDER BY club_id ASC
`

func (q *Queries) ListClubPositions(ctx context.Context) ([]ClubPosition, error) {
	rows, err := q.db.Query(ctx, listClubPositions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ClubPosition
	for rows.Next() {
		var i ClubPosition
		if err := rows.Scan(&i.ClubID, &i.X, &i.Y, &i.Manual, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getClubPosition = `-- name: GetClubPosition :one
SELECT club_id,
       x,
       y,
       manual,
       updated_at
FROM club_positions
WHERE club_id = $1
`

func (q *Queries) GetClubPosition(ctx context.Context, clubID string) (ClubPosition, error) {
	row := q.db.QueryRow(ctx, getClubPosition, clubID)
	var i ClubPosition
	err := row.Scan(&i.ClubID, &i.X, &i.Y, &i.Manual, &i.UpdatedAt)
	return i, err
}

const insertClubPositionIfMissing = `-- name: InsertClubPositionIfMissing :execrows
INSERT INTO club_positions (club_id, x, y, manual)
VALUES ($1, $2, $3, false)
ON CONFLICT (club_id) DO NOTHING
`

type InsertClubPositionIfMissingParams struct {
	ClubID string
	X      float64
	Y      float64
}

func (q *Queries) InsertClubPositionIfMissing(ctx context.Context, arg InsertClubPositionIfMissingParams) (int64, error) {
	tag, err := q.db.Exec(ctx, insertClubPositionIfMissing, arg.ClubID, arg.X, arg.Y)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const upsertClubPosition = `-- name: UpsertClubPosition :exec
INSERT INTO club_positions (club_id, x, y, manual, updated_at)
VALUES ($1, $2, $3, true, now())
ON CONFLICT (club_id) DO UPDATE
SET x = EXCLUDED.x,
    y = EXCLUDED.y,
    manual = true,
    updated_at = now()
`

type UpsertClubPositionParams struct {
	ClubID string
	X      float64
	Y      float64
}

func (q *Queries) UpsertClubPosition(ctx context.Context, arg UpsertClubPositionParams) error {
	_, err := q.db.Exec(ctx, upsertClubPosition, arg.ClubID, arg.X, arg.Y)
	return err
}
