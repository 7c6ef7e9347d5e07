// Package memory defines persistent storage for conversation history,
// long-lived patient facts, and the medical knowledge base used to ground
// assistant answers.
//
// Storage is strictly supporting infrastructure for the conversation loop:
// the session controller mirrors its in-memory history into the store and
// never blocks a turn on a write. Implementations must be safe for
// concurrent use.
package memory

import (
	"context"
	"time"
)

// TurnRecord is one persisted conversation turn.
type TurnRecord struct {
	// ID is the unique identifier for this turn (a UUID).
	ID string

	// SessionID is the conversation session this turn belongs to.
	SessionID string

	// Role is "user" or "assistant".
	Role string

	// Text is the finalized content of the turn.
	Text string

	// Language is the BCP 47 tag active when the turn was produced.
	Language string

	// CreatedAt is when the turn was committed.
	CreatedAt time.Time
}

// Fact is a long-lived piece of patient context, such as a stated allergy
// or a recurring complaint, carried across sessions.
type Fact struct {
	// ID is the unique identifier for this fact (a UUID).
	ID string

	// PatientID identifies whose fact this is.
	PatientID string

	// Content is the fact as plain text.
	Content string

	// CreatedAt is when the fact was first recorded.
	CreatedAt time.Time
}

// KnowledgeEntry is one retrieved medical knowledge passage.
type KnowledgeEntry struct {
	// ID is the unique identifier of the passage.
	ID string

	// Content is the passage text, prompt-ready.
	Content string

	// Language is the BCP 47 tag of the passage.
	Language string

	// Distance is the vector-space distance to the query embedding.
	// Lower values indicate higher similarity.
	Distance float64
}

// Store persists sessions, turns, patient facts, and serves semantic search
// over the medical knowledge base.
type Store interface {
	// StartSession registers a new conversation session for a patient.
	StartSession(ctx context.Context, sessionID, patientID string) error

	// AppendTurn persists one committed turn.
	AppendTurn(ctx context.Context, turn TurnRecord) error

	// RecentTurns returns up to limit turns of the session, ordered
	// chronologically (oldest first).
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error)

	// UpsertFact records or refreshes a patient fact.
	UpsertFact(ctx context.Context, fact Fact) error

	// RecentFacts returns up to limit facts for the patient, newest first.
	RecentFacts(ctx context.Context, patientID string, limit int) ([]Fact, error)

	// SearchKnowledge returns the passages nearest to embedding,
	// closest first.
	SearchKnowledge(ctx context.Context, embedding []float32, limit int) ([]KnowledgeEntry, error)

	// IndexKnowledge inserts or replaces a knowledge passage together with
	// its pre-computed embedding.
	IndexKnowledge(ctx context.Context, entry KnowledgeEntry, embedding []float32) error
}
