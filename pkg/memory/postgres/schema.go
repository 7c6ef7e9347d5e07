// Package postgres provides a PostgreSQL-backed implementation of
// [memory.Store]. Conversation turns and patient facts live in plain
// relational tables; the medical knowledge base uses a pgvector column for
// embedding similarity search.
//
// The pgvector extension must be available in the target database; [Migrate]
// installs it via CREATE EXTENSION IF NOT EXISTS.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id          TEXT         PRIMARY KEY,
    patient_id  TEXT         NOT NULL,
    started_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sessions_patient_id
    ON sessions (patient_id);
`

const ddlConversationTurns = `
CREATE TABLE IF NOT EXISTS conversation_turns (
    id          TEXT         PRIMARY KEY,
    session_id  TEXT         NOT NULL,
    role        TEXT         NOT NULL,
    text        TEXT         NOT NULL,
    language    TEXT         NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversation_turns_session_created
    ON conversation_turns (session_id, created_at);
`

const ddlPatientFacts = `
CREATE TABLE IF NOT EXISTS patient_facts (
    id          TEXT         PRIMARY KEY,
    patient_id  TEXT         NOT NULL,
    content     TEXT         NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_patient_facts_patient_created
    ON patient_facts (patient_id, created_at);
`

const ddlKnowledgeTemplate = `
CREATE TABLE IF NOT EXISTS medical_knowledge (
    id          TEXT         PRIMARY KEY,
    content     TEXT         NOT NULL,
    language    TEXT         NOT NULL DEFAULT '',
    embedding   vector(%d)   NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_medical_knowledge_embedding
    ON medical_knowledge USING hnsw (embedding vector_cosine_ops);
`

// Migrate creates the pgvector extension and all tables required by the
// store. It is idempotent and safe to run on every startup.
//
// embeddingDimensions must match the output dimension of the embedding model
// used to index knowledge passages. Changing it after the first migration
// requires a manual schema change.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if embeddingDimensions <= 0 {
		return fmt.Errorf("postgres migrate: embedding dimensions must be positive, got %d", embeddingDimensions)
	}

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		ddlSessions,
		ddlConversationTurns,
		ddlPatientFacts,
		fmt.Sprintf(ddlKnowledgeTemplate, embeddingDimensions),
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
