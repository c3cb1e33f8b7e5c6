// Package store keeps finished games in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lorenzotomasdiez/roulette-duel/internal/game"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrNotFound is returned when no game has the requested id.
var ErrNotFound = errors.New("store: game not found")

// Store persists game records and their event logs.
type Store struct {
	db *sql.DB
}

// Summary is one row of the game history.
type Summary struct {
	ID        string
	Seed      int64
	Chambers  int
	Players   [2]string
	Outcome   game.Outcome
	Turns     int
	CreatedAt time.Time
}

// EventRow is the indexed form of a stored event.
type EventRow struct {
	Seq    int
	Turn   int
	Round  int
	Kind   game.EventKind
	Actor  string
	Detail string
}

// Open opens or creates the database at path and applies pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store: database path is required")
	}
	path = filepath.Clean(path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database. It is safe on a nil Store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	const create = `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("store: create schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("store: read schema_migrations: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("store: scan migration: %w", err)
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("store: iterate migrations: %w", err)
	}
	rows.Close()

	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("store: glob migrations: %w", err)
	}
	sort.Strings(files)
	for _, file := range files {
		name := filepath.Base(file)
		if applied[name] {
			continue
		}
		body, err := migrationFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("store: read migration %s: %w", name, err)
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("store: begin migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: apply migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)", name, time.Now().Unix()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("store: record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: commit migration %s: %w", name, err)
		}
	}
	return nil
}

// SaveGame stores a finished game. Saving the same id again replaces it.
func (s *Store) SaveGame(ctx context.Context, rec *game.Record) error {
	if rec == nil || rec.GameID == "" {
		return errors.New("store: record has no game id")
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: encode record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM games WHERE id = ?", rec.GameID); err != nil {
		return fmt.Errorf("store: replace game: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO games
		(id, seed, chambers, player_one, player_two, outcome, loser, reason, turns, record, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.GameID,
		rec.Setup.Seed,
		rec.Setup.Chambers,
		rec.Setup.Players[0].Name,
		rec.Setup.Players[1].Name,
		rec.Outcome.Kind.String(),
		rec.Outcome.Loser,
		rec.Outcome.Reason,
		rec.Turns,
		string(body),
		time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("store: insert game: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events
		(game_id, seq, turn, round, kind, actor, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare events: %w", err)
	}
	defer stmt.Close()
	for _, ev := range rec.Events {
		if _, err := stmt.ExecContext(ctx, rec.GameID, ev.Seq, ev.Turn, ev.Round, string(ev.Kind), ev.Actor, ev.Detail); err != nil {
			return fmt.Errorf("store: insert event %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// LoadGame returns the full record of a stored game.
func (s *Store) LoadGame(ctx context.Context, id string) (*game.Record, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT record FROM games WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load game: %w", err)
	}
	var rec game.Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("store: decode record %s: %w", id, err)
	}
	return &rec, nil
}

// ListGames returns the most recent games first. A limit <= 0 returns all.
func (s *Store) ListGames(ctx context.Context, limit int) ([]Summary, error) {
	q := `SELECT id, seed, chambers, player_one, player_two, outcome, loser, reason, turns, created_at
		FROM games ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list games: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			outcome string
			created int64
		)
		if err := rows.Scan(&sum.ID, &sum.Seed, &sum.Chambers, &sum.Players[0], &sum.Players[1],
			&outcome, &sum.Outcome.Loser, &sum.Outcome.Reason, &sum.Turns, &created); err != nil {
			return nil, fmt.Errorf("store: scan game: %w", err)
		}
		if err := sum.Outcome.Kind.UnmarshalText([]byte(outcome)); err != nil {
			return nil, fmt.Errorf("store: game %s: %w", sum.ID, err)
		}
		sum.CreatedAt = time.Unix(0, created)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate games: %w", err)
	}
	return out, nil
}

// Events returns a game's events in order, optionally filtered by kind.
func (s *Store) Events(ctx context.Context, id string, kinds ...game.EventKind) ([]EventRow, error) {
	q := "SELECT seq, turn, round, kind, actor, detail FROM events WHERE game_id = ?"
	args := []any{id}
	if len(kinds) > 0 {
		marks := make([]string, len(kinds))
		for i, k := range kinds {
			marks[i] = "?"
			args = append(args, string(k))
		}
		q += " AND kind IN (" + strings.Join(marks, ", ") + ")"
	}
	q += " ORDER BY seq"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: events: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var (
			r    EventRow
			kind string
		)
		if err := rows.Scan(&r.Seq, &r.Turn, &r.Round, &kind, &r.Actor, &r.Detail); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		r.Kind = game.EventKind(kind)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate events: %w", err)
	}
	return out, nil
}
