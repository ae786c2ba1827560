package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-go-golems/wayfinder/pkg/embeddings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// MinSnippetLength is the shortest line kept as a snippet, in characters.
const MinSnippetLength = 20

// Searcher returns up to k snippets ranked by relevance to query. An empty
// result means no context, not an error.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// SplitSnippets returns the trimmed lines of text longer than
// MinSnippetLength characters.
func SplitSnippets(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) > MinSnippetLength {
			out = append(out, line)
		}
	}
	return out
}

// Index embeds snippets into a Store and searches them.
type Index struct {
	provider embeddings.Provider
	store    *Store
}

var _ Searcher = &Index{}

func NewIndex(provider embeddings.Provider) *Index {
	return &Index{provider: provider, store: NewStore()}
}

// Add embeds the snippets as one batch and stores them.
func (ix *Index) Add(ctx context.Context, snippets []string) error {
	if len(snippets) == 0 {
		return nil
	}
	vectors, err := ix.provider.GenerateBatchEmbeddings(ctx, snippets)
	if err != nil {
		return errors.Wrap(err, "could not embed snippets")
	}
	if len(vectors) != len(snippets) {
		return errors.Errorf("got %d embeddings for %d snippets", len(vectors), len(snippets))
	}

	offset := ix.store.Len()
	docs := make([]Document, len(snippets))
	for i, s := range snippets {
		docs[i] = Document{ID: fmt.Sprintf("doc_%d", offset+i), Text: s, Vector: vectors[i]}
	}
	if err := ix.store.Add(docs...); err != nil {
		return err
	}
	log.Debug().
		Int("added", len(docs)).
		Int("total", ix.store.Len()).
		Str("model", ix.provider.GetModel().Name).
		Msg("rag: indexed snippets")
	return nil
}

func (ix *Index) Len() int {
	return ix.store.Len()
}

func (ix *Index) Search(ctx context.Context, query string, k int) ([]string, error) {
	if ix.store.Len() == 0 {
		return nil, nil
	}
	vector, err := ix.provider.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "could not embed query")
	}
	matches := ix.store.Query(vector, k)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Text)
	}
	return out, nil
}
