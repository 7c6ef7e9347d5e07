package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	memorymock "github.com/sahhacare/sahha/pkg/memory/mock"
	embedmock "github.com/sahhacare/sahha/pkg/provider/embeddings/mock"
)

func TestIndexKnowledge(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		`{"id":"k1","content":"Paracetamol eases mild fever.","language":"en"}`,
		``,
		`{"content":"شرب الماء مهم أثناء الحمى.","language":"ar"}`,
	}, "\n")

	embed := &embedmock.Provider{Dims: 4}
	store := &memorymock.Store{}

	n, err := indexKnowledge(context.Background(), strings.NewReader(input), embed, store)
	if err != nil {
		t.Fatalf("indexKnowledge: %v", err)
	}
	if n != 2 {
		t.Fatalf("indexed = %d, want 2", n)
	}
	if len(store.Indexed) != 2 {
		t.Fatalf("stored entries = %d, want 2", len(store.Indexed))
	}

	first := store.Indexed[0]
	if first.ID != "k1" || first.Content != "Paracetamol eases mild fever." || first.Language != "en" {
		t.Errorf("first entry = %+v", first)
	}
	// The second passage carries no ID; one must be generated.
	if store.Indexed[1].ID == "" {
		t.Error("missing ID was not generated")
	}
	if len(embed.EmbedCalls) != 2 || embed.EmbedCalls[0] != first.Content {
		t.Errorf("embed calls = %v", embed.EmbedCalls)
	}
	for i, vec := range store.IndexedEmbeddings {
		if len(vec) != 4 {
			t.Errorf("embedding %d has %d dimensions, want 4", i, len(vec))
		}
	}
}

func TestIndexKnowledge_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		embed *embedmock.Provider
		store *memorymock.Store
		want  string
	}{
		{
			name:  "malformed line",
			input: `{"content":"ok"}` + "\n" + `not json`,
			embed: &embedmock.Provider{Dims: 4},
			store: &memorymock.Store{},
			want:  "line 2",
		},
		{
			name:  "empty content",
			input: `{"id":"k1","content":"  "}`,
			embed: &embedmock.Provider{Dims: 4},
			store: &memorymock.Store{},
			want:  "no content",
		},
		{
			name:  "embedding failure",
			input: `{"content":"ok"}`,
			embed: &embedmock.Provider{EmbedErr: errors.New("quota exceeded")},
			store: &memorymock.Store{},
			want:  "embed",
		},
		{
			name:  "store failure",
			input: `{"content":"ok"}`,
			embed: &embedmock.Provider{Dims: 4},
			store: &memorymock.Store{IndexKnowledgeErr: errors.New("db down")},
			want:  "index",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := indexKnowledge(context.Background(), strings.NewReader(tt.input), tt.embed, tt.store)
			if err == nil {
				t.Fatal("want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
