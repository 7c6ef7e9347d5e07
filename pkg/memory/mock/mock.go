// Package mock provides an in-memory [memory.Store] for tests.
package mock

import (
	"context"
	"sync"

	"github.com/sahhacare/sahha/pkg/memory"
)

// Store is a configurable in-memory mock for memory.Store. The zero value is
// ready to use. Error fields, when set, are returned by the corresponding
// method; otherwise data is kept in plain slices guarded by a mutex.
type Store struct {
	mu sync.Mutex

	StartSessionErr    error
	AppendTurnErr      error
	RecentTurnsErr     error
	UpsertFactErr      error
	RecentFactsErr     error
	SearchKnowledgeErr error
	IndexKnowledgeErr  error

	// SearchKnowledgeResult is returned verbatim by SearchKnowledge.
	SearchKnowledgeResult []memory.KnowledgeEntry

	// Sessions maps session ID to patient ID for every StartSession call.
	Sessions map[string]string
	// Turns records every appended turn in order.
	Turns []memory.TurnRecord
	// Facts records every upserted fact in order.
	Facts []memory.Fact
	// SearchKnowledgeCalls records the embeddings passed to SearchKnowledge.
	SearchKnowledgeCalls [][]float32
	// Indexed records every indexed knowledge entry in order.
	Indexed []memory.KnowledgeEntry
	// IndexedEmbeddings records the embedding of each IndexKnowledge call.
	IndexedEmbeddings [][]float32
}

var _ memory.Store = (*Store)(nil)

// StartSession implements memory.Store.
func (s *Store) StartSession(_ context.Context, sessionID, patientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StartSessionErr != nil {
		return s.StartSessionErr
	}
	if s.Sessions == nil {
		s.Sessions = make(map[string]string)
	}
	s.Sessions[sessionID] = patientID
	return nil
}

// AppendTurn implements memory.Store.
func (s *Store) AppendTurn(_ context.Context, turn memory.TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AppendTurnErr != nil {
		return s.AppendTurnErr
	}
	s.Turns = append(s.Turns, turn)
	return nil
}

// RecentTurns implements memory.Store.
func (s *Store) RecentTurns(_ context.Context, sessionID string, limit int) ([]memory.TurnRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RecentTurnsErr != nil {
		return nil, s.RecentTurnsErr
	}
	var out []memory.TurnRecord
	for _, t := range s.Turns {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// UpsertFact implements memory.Store.
func (s *Store) UpsertFact(_ context.Context, fact memory.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpsertFactErr != nil {
		return s.UpsertFactErr
	}
	for i, f := range s.Facts {
		if f.ID == fact.ID {
			s.Facts[i] = fact
			return nil
		}
	}
	s.Facts = append(s.Facts, fact)
	return nil
}

// RecentFacts implements memory.Store.
func (s *Store) RecentFacts(_ context.Context, patientID string, limit int) ([]memory.Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RecentFactsErr != nil {
		return nil, s.RecentFactsErr
	}
	var out []memory.Fact
	for i := len(s.Facts) - 1; i >= 0; i-- {
		if s.Facts[i].PatientID == patientID {
			out = append(out, s.Facts[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// SearchKnowledge implements memory.Store.
func (s *Store) SearchKnowledge(_ context.Context, embedding []float32, limit int) ([]memory.KnowledgeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SearchKnowledgeCalls = append(s.SearchKnowledgeCalls, embedding)
	if s.SearchKnowledgeErr != nil {
		return nil, s.SearchKnowledgeErr
	}
	out := s.SearchKnowledgeResult
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// IndexKnowledge implements memory.Store.
func (s *Store) IndexKnowledge(_ context.Context, entry memory.KnowledgeEntry, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.IndexKnowledgeErr != nil {
		return s.IndexKnowledgeErr
	}
	s.Indexed = append(s.Indexed, entry)
	s.IndexedEmbeddings = append(s.IndexedEmbeddings, embedding)
	return nil
}
