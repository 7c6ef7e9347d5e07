package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/sahhacare/sahha/pkg/memory"
	"github.com/sahhacare/sahha/pkg/provider/embeddings"
)

// knowledgePassage is one line of the JSONL ingestion format.
type knowledgePassage struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

// indexKnowledge reads JSONL passages from r, embeds each one, and writes it
// into the knowledge base. Blank lines are skipped; a passage without an ID
// gets a generated one. Returns the number of passages indexed.
func indexKnowledge(ctx context.Context, r io.Reader, embed embeddings.Provider, store memory.Store) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	indexed := 0
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var p knowledgePassage
		if err := json.Unmarshal([]byte(text), &p); err != nil {
			return indexed, fmt.Errorf("line %d: %w", line, err)
		}
		if strings.TrimSpace(p.Content) == "" {
			return indexed, fmt.Errorf("line %d: passage has no content", line)
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}

		vec, err := embed.Embed(ctx, p.Content)
		if err != nil {
			return indexed, fmt.Errorf("line %d: embed: %w", line, err)
		}
		if err := store.IndexKnowledge(ctx, memory.KnowledgeEntry{
			ID:       p.ID,
			Content:  p.Content,
			Language: p.Language,
		}, vec); err != nil {
			return indexed, fmt.Errorf("line %d: index: %w", line, err)
		}
		indexed++
	}
	if err := scanner.Err(); err != nil {
		return indexed, err
	}
	return indexed, nil
}
