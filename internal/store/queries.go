package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lzjever/escn/internal/core"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate")
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const issuedCardColumns = `issue_id, escn, student_id, prefix, pic, card_type, idempotency_key, request_hash, created_at`

const insertIssuedCard = `
INSERT INTO escn.issued_cards (issue_id, escn, student_id, prefix, pic, card_type, idempotency_key, request_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + issuedCardColumns

// InsertIssuedCard records an issued card. A second card for the same
// student and idempotency key, or a reused ESCN, fails with ErrDuplicate.
func (q *Queries) InsertIssuedCard(ctx context.Context, c core.IssuedCard) (core.IssuedCard, error) {
	row := q.db.QueryRow(ctx, insertIssuedCard,
		c.IssueID, c.ESCN, c.StudentID, c.Prefix, c.PIC, c.CardType, c.IdempotencyKey, c.RequestHash)
	out, err := scanIssuedCard(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return core.IssuedCard{}, ErrDuplicate
		}
		return core.IssuedCard{}, err
	}
	return out, nil
}

const getIssuedCardByIdempotencyKey = `
SELECT ` + issuedCardColumns + `
FROM escn.issued_cards
WHERE student_id = $1 AND idempotency_key = $2`

func (q *Queries) GetIssuedCardByIdempotencyKey(ctx context.Context, studentID, key string) (core.IssuedCard, error) {
	return scanIssuedCard(q.db.QueryRow(ctx, getIssuedCardByIdempotencyKey, studentID, key))
}

const getIssuedCard = `
SELECT ` + issuedCardColumns + `
FROM escn.issued_cards
WHERE escn = $1`

func (q *Queries) GetIssuedCard(ctx context.Context, escn string) (core.IssuedCard, error) {
	return scanIssuedCard(q.db.QueryRow(ctx, getIssuedCard, escn))
}

const listIssuedCards = `
SELECT ` + issuedCardColumns + `
FROM escn.issued_cards
WHERE student_id = $1
  AND ($2::timestamptz IS NULL OR (created_at, escn) < ($2, $3::text))
ORDER BY created_at DESC, escn DESC
LIMIT $4`

// ListIssuedCardsParams pages by (created_at, escn) of the last row seen.
type ListIssuedCardsParams struct {
	StudentID  string
	Cursor     pgtype.Timestamptz
	CursorESCN string
	Limit      int32
}

// ListIssuedCards returns a student's cards, newest first, ties broken by
// ESCN. Cursor, when valid, keeps only rows ordered after
// (Cursor, CursorESCN).
func (q *Queries) ListIssuedCards(ctx context.Context, arg ListIssuedCardsParams) ([]core.IssuedCard, error) {
	rows, err := q.db.Query(ctx, listIssuedCards, arg.StudentID, arg.Cursor, arg.CursorESCN, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []core.IssuedCard
	for rows.Next() {
		c, err := scanIssuedCard(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func scanIssuedCard(row pgx.Row) (core.IssuedCard, error) {
	var c core.IssuedCard
	err := row.Scan(
		&c.IssueID,
		&c.ESCN,
		&c.StudentID,
		&c.Prefix,
		&c.PIC,
		&c.CardType,
		&c.IdempotencyKey,
		&c.RequestHash,
		&c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.IssuedCard{}, ErrNotFound
	}
	return c, err
}
