package session

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/adalundhe/voiceguard/core/conversation"
	coreerrors "github.com/adalundhe/voiceguard/core/errors"
)

// =============================================================================
// Session Store - Tiered Conversation Persistence
// =============================================================================
//
// Store keeps training sessions in two tiers:
// - Hot: a Ristretto cache of recently used sessions
// - Cold: SQLite, the source of truth, migrated with goose
//
// Writes go to SQLite first and then refresh the cache, so a cache miss
// never loses data.

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	DefaultCacheMaxCost = 64
	defaultBufferItems  = 64
)

var ErrAmbiguousID = errors.New("session id prefix matches more than one session")

// Record is one stored session. State is nil in List results.
type Record struct {
	ID        string
	Topic     string
	Phase     conversation.Phase
	TurnCount int
	State     *conversation.State
	CreatedAt time.Time
	UpdatedAt time.Time
}

type StoreConfig struct {
	DBPath string

	// CacheMaxCost is the number of sessions held in memory.
	CacheMaxCost int64
	Logger       *slog.Logger
}

// Stats reports hot-tier effectiveness.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// Store is safe for concurrent use.
type Store struct {
	db     *sql.DB
	cache  *ristretto.Cache
	logger *slog.Logger
}

// OpenStore opens (creating if needed) the database at cfg.DBPath and
// applies pending migrations.
func OpenStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("session store: db path is required")
	}
	if cfg.CacheMaxCost <= 0 {
		cfg.CacheMaxCost = DefaultCacheMaxCost
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	db, err := openDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.CacheMaxCost * 10,
		MaxCost:     cfg.CacheMaxCost,
		BufferItems: defaultBufferItems,
		Metrics:     true,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize session cache: %w", err)
	}

	return &Store{
		db:     db,
		cache:  cache,
		logger: cfg.Logger.With("component", "session_store"),
	}, nil
}

func openDB(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations)
	if err != nil {
		return fmt.Errorf("failed to load session migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run session migrations: %w", err)
	}
	return nil
}

// =============================================================================
// Operations
// =============================================================================

// Create stores st under a new id.
func (s *Store) Create(ctx context.Context, st *conversation.State) (*Record, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}

	now := time.Now().UTC()
	rec := &Record{
		ID:        uuid.NewString(),
		Topic:     st.Topic(),
		Phase:     st.Phase(),
		TurnCount: st.TurnCount(),
		State:     st.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, topic, phase, turn_count, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Topic, string(rec.Phase), rec.TurnCount, data, now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	s.remember(rec)
	s.logger.Debug("session created", "session", rec.ID, "topic", rec.Topic)
	return copyRecord(rec), nil
}

// Save replaces the stored state of session id.
func (s *Store) Save(ctx context.Context, id string, st *conversation.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET topic = ?, phase = ?, turn_count = ?, state = ?, updated_at = ?
		WHERE id = ?`,
		st.Topic(), string(st.Phase()), st.TurnCount(), data, now.UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("updating session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.cache.Del(id)
		return fmt.Errorf("%w: %s", coreerrors.ErrSessionNotFound, id)
	}

	// Stale entries must not survive a failed refresh.
	s.cache.Del(id)
	if rec, err := s.load(ctx, id); err == nil {
		s.remember(rec)
	}
	return nil
}

// Get returns the session with the exact id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	if v, ok := s.cache.Get(id); ok {
		if rec, ok := v.(*Record); ok {
			return copyRecord(rec), nil
		}
	}

	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.remember(rec)
	return copyRecord(rec), nil
}

// Find resolves an id or a unique id prefix.
func (s *Store) Find(ctx context.Context, prefix string) (*Record, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("%w: empty id", coreerrors.ErrSessionNotFound)
	}
	if rec, err := s.Get(ctx, prefix); err == nil {
		return rec, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM sessions WHERE id LIKE ? ESCAPE '\' LIMIT 2`,
		escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("finding session: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(ids) {
	case 0:
		return nil, fmt.Errorf("%w: %s", coreerrors.ErrSessionNotFound, prefix)
	case 1:
		return s.Get(ctx, ids[0])
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, prefix)
	}
}

// List returns up to limit sessions, most recently updated first, without
// their state. A non-positive limit lists everything.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT id, topic, phase, turn_count, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC, id`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var phase string
		var created, updated int64
		if err := rows.Scan(&rec.ID, &rec.Topic, &phase, &rec.TurnCount, &created, &updated); err != nil {
			return nil, err
		}
		rec.Phase = conversation.Phase(phase)
		rec.CreatedAt, rec.UpdatedAt = fromNanos(created), fromNanos(updated)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes session id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.cache.Del(id)
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", coreerrors.ErrSessionNotFound, id)
	}
	return nil
}

func (s *Store) Stats() Stats {
	m := s.cache.Metrics
	if m == nil {
		return Stats{}
	}
	return Stats{Hits: m.Hits(), Misses: m.Misses()}
}

func (s *Store) Close() error {
	s.cache.Close()
	return s.db.Close()
}

// =============================================================================
// Internals
// =============================================================================

func (s *Store) load(ctx context.Context, id string) (*Record, error) {
	var rec Record
	var phase string
	var data []byte
	var created, updated int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, topic, phase, turn_count, state, created_at, updated_at
		FROM sessions WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Topic, &phase, &rec.TurnCount, &data, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", coreerrors.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	rec.Phase = conversation.Phase(phase)
	rec.CreatedAt, rec.UpdatedAt = fromNanos(created), fromNanos(updated)

	var st conversation.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: session %s: %v", coreerrors.ErrInvalidState, id, err)
	}
	rec.State = &st
	return &rec, nil
}

func (s *Store) remember(rec *Record) {
	s.cache.Set(rec.ID, copyRecord(rec), 1)
	s.cache.Wait()
}

func copyRecord(rec *Record) *Record {
	c := *rec
	if rec.State != nil {
		c.State = rec.State.Clone()
	}
	return &c
}

// Timestamps are stored as Unix nanoseconds so they sort numerically.
func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
