package storage

// sqlite.go: cache de rondas resueltas y journal de transacciones, en memoria.
//
// Estrategia:
//   - `rounds`: una fila por ronda resuelta. Una ronda resuelta no cambia nunca,
//     así que un INSERT OR IGNORE basta y no hay invalidación.
//   - `txs`: una fila por instrucción enviada durante la vida del proceso.
//   - La base vive en `:memory:` con una sola conexión: desaparece al salir.
//   - Set en memoria de ids ya guardados: evita writes repetidos en cada resync.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/roundbet/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS rounds (
    id           INTEGER PRIMARY KEY,
    start_time   INTEGER,
    end_time     INTEGER,
    start_price  REAL,
    end_price    REAL,
    bets_up      REAL    NOT NULL DEFAULT 0,
    bets_down    REAL    NOT NULL DEFAULT 0,
    total_pool   REAL    NOT NULL DEFAULT 0,
    winning_pool REAL    NOT NULL DEFAULT 0,
    outcome      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS txs (
    id           TEXT PRIMARY KEY,
    kind         TEXT    NOT NULL,
    round_id     INTEGER NOT NULL,
    signature    TEXT    NOT NULL DEFAULT '',
    direction    INTEGER,
    lamports     INTEGER NOT NULL DEFAULT 0,
    status       TEXT    NOT NULL,
    error        TEXT    NOT NULL DEFAULT '',
    submitted_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_txs_submitted ON txs(submitted_at DESC);
`

// SQLiteStorage implementa ports.RoundCache y ports.TxJournal sobre SQLite en
// memoria (pure Go, sin CGo).
type SQLiteStorage struct {
	db    *sql.DB
	known map[uint64]struct{} // rondas ya escritas
	mu    sync.Mutex
}

// NewSQLiteStorage abre una base en memoria y aplica el schema.
func NewSQLiteStorage() (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open: %w", err)
	}
	// una sola conexión: cada conexión nueva a :memory: es una base vacía
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db, known: make(map[uint64]struct{})}, nil
}

// GetRound devuelve una ronda resuelta, o domain.ErrNotFound.
func (s *SQLiteStorage) GetRound(ctx context.Context, id uint64) (domain.Round, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, start_time, end_time, start_price, end_price,
		       bets_up, bets_down, total_pool, winning_pool, outcome
		FROM rounds WHERE id = ?`, int64(id))

	var (
		r                    domain.Round
		rid                  int64
		startTime, endTime   sql.NullInt64
		startPrice, endPrice sql.NullFloat64
		outcome              uint8
	)
	err := row.Scan(&rid, &startTime, &endTime, &startPrice, &endPrice,
		&r.TotalBetsUp, &r.TotalBetsDown, &r.TotalPool, &r.WinningPool, &outcome)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Round{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Round{}, fmt.Errorf("storage.GetRound %d: %w", id, err)
	}

	r.ID = uint64(rid)
	r.StartTime = timeFromNull(startTime)
	r.EndTime = timeFromNull(endTime)
	r.StartPrice = floatFromNull(startPrice)
	r.EndPrice = floatFromNull(endPrice)
	d := domain.Direction(outcome)
	r.Outcome = &d
	return r, nil
}

// PutRound guarda una ronda resuelta. Las rondas sin resolver se ignoran.
func (s *SQLiteStorage) PutRound(ctx context.Context, r domain.Round) error {
	if !r.Resolved() {
		return nil
	}
	s.mu.Lock()
	_, seen := s.known[r.ID]
	s.mu.Unlock()
	if seen {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO rounds
			(id, start_time, end_time, start_price, end_price,
			 bets_up, bets_down, total_pool, winning_pool, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(r.ID),
		nullFromTime(r.StartTime),
		nullFromTime(r.EndTime),
		nullFromFloat(r.StartPrice),
		nullFromFloat(r.EndPrice),
		r.TotalBetsUp, r.TotalBetsDown, r.TotalPool, r.WinningPool,
		uint8(*r.Outcome),
	); err != nil {
		return fmt.Errorf("storage.PutRound %d: %w", r.ID, err)
	}

	s.mu.Lock()
	s.known[r.ID] = struct{}{}
	s.mu.Unlock()
	return nil
}

// SaveTx hace upsert de un registro del journal.
func (s *SQLiteStorage) SaveTx(ctx context.Context, rec domain.TxRecord) error {
	var dir sql.NullInt64
	if rec.Direction != nil {
		dir = sql.NullInt64{Int64: int64(*rec.Direction), Valid: true}
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO txs
			(id, kind, round_id, signature, direction, lamports, status, error, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			signature = excluded.signature,
			status    = excluded.status,
			error     = excluded.error`,
		rec.ID.String(),
		string(rec.Kind),
		int64(rec.RoundID),
		rec.Signature,
		dir,
		int64(rec.Lamports),
		string(rec.Status),
		rec.Error,
		rec.SubmittedAt.UTC().UnixNano(),
	); err != nil {
		return fmt.Errorf("storage.SaveTx %s: %w", rec.ID, err)
	}
	return nil
}

// RecentTxs devuelve los últimos limit registros, más nuevos primero.
func (s *SQLiteStorage) RecentTxs(ctx context.Context, limit int) ([]domain.TxRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, round_id, signature, direction, lamports, status, error, submitted_at
		FROM txs
		ORDER BY submitted_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentTxs: query: %w", err)
	}
	defer rows.Close()

	var recs []domain.TxRecord
	for rows.Next() {
		var (
			rec            domain.TxRecord
			id, kind, st   string
			roundID, nanos int64
			lamports       int64
			dir            sql.NullInt64
		)
		if err := rows.Scan(&id, &kind, &roundID, &rec.Signature, &dir, &lamports, &st, &rec.Error, &nanos); err != nil {
			return nil, fmt.Errorf("storage.RecentTxs: scan row: %w", err)
		}
		rec.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("storage.RecentTxs: bad id %q: %w", id, err)
		}
		rec.Kind = domain.TxKind(kind)
		rec.RoundID = uint64(roundID)
		rec.Lamports = uint64(lamports)
		rec.Status = domain.TxStatus(st)
		rec.SubmittedAt = time.Unix(0, nanos).UTC()
		if dir.Valid {
			d := domain.Direction(dir.Int64)
			rec.Direction = &d
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func nullFromTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func timeFromNull(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func nullFromFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatFromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
