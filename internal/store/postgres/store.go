package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cropCircle/internal/model"
	"cropCircle/internal/store"
)

// Store provides Postgres persistence for game state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(store.Reader) error) error {
	return fn(&reader{db: s.pool})
}

func (s *Store) Update(ctx context.Context, fn func(store.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&txn{reader: reader{db: tx}, tx: tx})
	})
}

// db is satisfied by both the pool and an open transaction.
type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type reader struct {
	db db
}

const eventColumns = `id, creator, start_time, duration_seconds, end_time, uri, active, winning_meme_id, token_ref`

func scanEvent(row pgx.Row) (model.Event, error) {
	var (
		event    model.Event
		duration int64
	)
	if err := row.Scan(
		&event.ID,
		&event.Creator,
		&event.StartTime,
		&duration,
		&event.EndTime,
		&event.URI,
		&event.Active,
		&event.WinningMemeID,
		&event.TokenRef,
	); err != nil {
		return model.Event{}, err
	}
	event.Duration = time.Duration(duration) * time.Second
	return event, nil
}

func (r *reader) Event(ctx context.Context, id string) (model.Event, bool, error) {
	event, err := scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Event{}, false, nil
		}
		return model.Event{}, false, fmt.Errorf("load event %s: %w", id, err)
	}
	return event, true, nil
}

func (r *reader) Events(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *reader) Memes(ctx context.Context, eventID string) ([]model.Meme, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, content_ref, description, creator, created_at, upvotes, downvotes
		FROM memes WHERE event_id=$1 ORDER BY id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list memes: %w", err)
	}
	defer rows.Close()

	var memes []model.Meme
	for rows.Next() {
		m := model.Meme{EventID: eventID, Exists: true}
		if err := rows.Scan(&m.ID, &m.Name, &m.ContentRef, &m.Description, &m.Creator, &m.CreatedAt, &m.Upvotes, &m.Downvotes); err != nil {
			return nil, fmt.Errorf("scan meme: %w", err)
		}
		memes = append(memes, m)
	}
	return memes, rows.Err()
}

func (r *reader) Balance(ctx context.Context, user, eventID string) (int64, bool, error) {
	var amount int64
	row := r.db.QueryRow(ctx, `SELECT amount FROM balances WHERE event_id=$1 AND user_id=$2`, eventID, user)
	if err := row.Scan(&amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("load balance: %w", err)
	}
	return amount, true, nil
}

func (r *reader) Vote(ctx context.Context, eventID string, memeID uint64, voter string) (model.Direction, bool, error) {
	var raw string
	row := r.db.QueryRow(ctx, `SELECT direction FROM votes WHERE event_id=$1 AND meme_id=$2 AND voter=$3`, eventID, int64(memeID), voter)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("load vote: %w", err)
	}
	dir, err := model.ParseDirection(raw)
	if err != nil {
		return "", false, err
	}
	return dir, true, nil
}

func (r *reader) Votes(ctx context.Context, eventID string, memeID uint64) ([]model.Vote, error) {
	rows, err := r.db.Query(ctx, `
		SELECT voter, direction FROM votes WHERE event_id=$1 AND meme_id=$2 ORDER BY voter
	`, eventID, int64(memeID))
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	var votes []model.Vote
	for rows.Next() {
		var voter, raw string
		if err := rows.Scan(&voter, &raw); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		dir, err := model.ParseDirection(raw)
		if err != nil {
			return nil, err
		}
		votes = append(votes, model.Vote{EventID: eventID, MemeID: memeID, Voter: voter, Direction: dir})
	}
	return votes, rows.Err()
}

type txn struct {
	reader
	tx pgx.Tx
}

// LockEvent takes a transaction-scoped advisory lock keyed by the event id.
func (t *txn) LockEvent(ctx context.Context, id string) error {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, id); err != nil {
		return fmt.Errorf("lock event %s: %w", id, err)
	}
	return nil
}

func (t *txn) PutEvent(ctx context.Context, event model.Event) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO events (
			id, creator, start_time, duration_seconds, end_time, uri, active, winning_meme_id, token_ref, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
		ON CONFLICT (id)
		DO UPDATE SET
			active = EXCLUDED.active,
			winning_meme_id = EXCLUDED.winning_meme_id,
			token_ref = EXCLUDED.token_ref,
			updated_at = now()
	`,
		event.ID,
		event.Creator,
		event.StartTime,
		int64(event.Duration/time.Second),
		event.EndTime,
		event.URI,
		event.Active,
		int64(event.WinningMemeID),
		event.TokenRef,
	)
	if err != nil {
		return fmt.Errorf("upsert event %s: %w", event.ID, err)
	}
	return nil
}

func (t *txn) PutMeme(ctx context.Context, meme model.Meme) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO memes (
			event_id, id, name, content_ref, description, creator, created_at, upvotes, downvotes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (event_id, id)
		DO UPDATE SET
			upvotes = EXCLUDED.upvotes,
			downvotes = EXCLUDED.downvotes
	`,
		meme.EventID,
		int64(meme.ID),
		meme.Name,
		meme.ContentRef,
		meme.Description,
		meme.Creator,
		meme.CreatedAt,
		int64(meme.Upvotes),
		int64(meme.Downvotes),
	)
	if err != nil {
		return fmt.Errorf("upsert meme %d: %w", meme.ID, err)
	}
	return nil
}

func (t *txn) PutBalance(ctx context.Context, user, eventID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("negative balance for %s", user)
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO balances (event_id, user_id, amount, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (event_id, user_id) DO UPDATE
		SET amount = EXCLUDED.amount, updated_at = now()
	`, eventID, user, amount)
	if err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}

func (t *txn) PutVote(ctx context.Context, vote model.Vote) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO votes (event_id, meme_id, voter, direction, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (event_id, meme_id, voter) DO UPDATE
		SET direction = EXCLUDED.direction, updated_at = now()
	`, vote.EventID, int64(vote.MemeID), vote.Voter, string(vote.Direction))
	if err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}
	return nil
}
