package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/sahhacare/sahha/pkg/memory"
)

// Store is the PostgreSQL-backed implementation of [memory.Store].
// All operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

var _ memory.Store = (*Store)(nil)

// NewStore establishes a connection pool to the database at dsn, registers
// pgvector types on every connection, and runs [Migrate].
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity. Used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// StartSession implements [memory.Store].
func (s *Store) StartSession(ctx context.Context, sessionID, patientID string) error {
	const q = `
		INSERT INTO sessions (id, patient_id)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`

	if _, err := s.pool.Exec(ctx, q, sessionID, patientID); err != nil {
		return fmt.Errorf("postgres store: start session: %w", err)
	}
	return nil
}

// AppendTurn implements [memory.Store].
func (s *Store) AppendTurn(ctx context.Context, turn memory.TurnRecord) error {
	const q = `
		INSERT INTO conversation_turns (id, session_id, role, text, language, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, q,
		turn.ID,
		turn.SessionID,
		turn.Role,
		turn.Text,
		turn.Language,
		turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres store: append turn: %w", err)
	}
	return nil
}

// RecentTurns implements [memory.Store]. The newest limit turns are selected
// and returned in chronological order (oldest first).
func (s *Store) RecentTurns(ctx context.Context, sessionID string, limit int) ([]memory.TurnRecord, error) {
	const q = `
		SELECT id, session_id, role, text, language, created_at
		FROM   (
		    SELECT id, session_id, role, text, language, created_at
		    FROM   conversation_turns
		    WHERE  session_id = $1
		    ORDER  BY created_at DESC
		    LIMIT  $2
		) latest
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, q, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: recent turns: %w", err)
	}

	turns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.TurnRecord, error) {
		var t memory.TurnRecord
		err := row.Scan(&t.ID, &t.SessionID, &t.Role, &t.Text, &t.Language, &t.CreatedAt)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan turns: %w", err)
	}
	return turns, nil
}

// UpsertFact implements [memory.Store].
func (s *Store) UpsertFact(ctx context.Context, fact memory.Fact) error {
	const q = `
		INSERT INTO patient_facts (id, patient_id, content, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content`

	_, err := s.pool.Exec(ctx, q, fact.ID, fact.PatientID, fact.Content, fact.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres store: upsert fact: %w", err)
	}
	return nil
}

// RecentFacts implements [memory.Store].
func (s *Store) RecentFacts(ctx context.Context, patientID string, limit int) ([]memory.Fact, error) {
	const q = `
		SELECT id, patient_id, content, created_at
		FROM   patient_facts
		WHERE  patient_id = $1
		ORDER  BY created_at DESC
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: recent facts: %w", err)
	}

	facts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.Fact, error) {
		var f memory.Fact
		err := row.Scan(&f.ID, &f.PatientID, &f.Content, &f.CreatedAt)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan facts: %w", err)
	}
	return facts, nil
}

// SearchKnowledge implements [memory.Store] using cosine distance over the
// pgvector HNSW index.
func (s *Store) SearchKnowledge(ctx context.Context, embedding []float32, limit int) ([]memory.KnowledgeEntry, error) {
	const q = `
		SELECT id, content, language, embedding <=> $1 AS distance
		FROM   medical_knowledge
		ORDER  BY embedding <=> $1
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: search knowledge: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.KnowledgeEntry, error) {
		var e memory.KnowledgeEntry
		err := row.Scan(&e.ID, &e.Content, &e.Language, &e.Distance)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan knowledge: %w", err)
	}
	return entries, nil
}

// IndexKnowledge implements [memory.Store].
func (s *Store) IndexKnowledge(ctx context.Context, entry memory.KnowledgeEntry, embedding []float32) error {
	const q = `
		INSERT INTO medical_knowledge (id, content, language, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
		    content   = EXCLUDED.content,
		    language  = EXCLUDED.language,
		    embedding = EXCLUDED.embedding`

	_, err := s.pool.Exec(ctx, q, entry.ID, entry.Content, entry.Language, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("postgres store: index knowledge: %w", err)
	}
	return nil
}
