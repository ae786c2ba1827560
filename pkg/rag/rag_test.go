package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-go-golems/wayfinder/pkg/embeddings"
	"github.com/go-go-golems/wayfinder/pkg/inference/planner"
	"github.com/go-go-golems/wayfinder/pkg/prompts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestSplitSnippets(t *testing.T) {
	text := "Title\n   Our Tokyo office is located in Shibuya.  \n\nshort line here\nexactly twenty chars"
	require.Equal(t, []string{"Our Tokyo office is located in Shibuya."}, SplitSnippets(text))
}

func TestStore_Query(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(
		Document{ID: "a", Text: "a", Vector: []float32{1, 0}},
		Document{ID: "b", Text: "b", Vector: []float32{0, 1}},
		Document{ID: "c", Text: "c", Vector: []float32{1, 1}},
	))
	require.Error(t, s.Add(Document{ID: "d", Vector: []float32{1, 2, 3}}))

	m := s.Query([]float32{1, 0.1}, 2)
	require.Len(t, m, 2)
	require.Equal(t, "a", m[0].ID)
	require.Equal(t, "c", m[1].ID)

	require.Nil(t, s.Query([]float32{1, 0}, 0))
	require.Nil(t, s.Query([]float32{1}, 1))
	require.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
}

func newIndex(t *testing.T) *Index {
	ix := NewIndex(embeddings.NewHashProvider(512))
	require.NoError(t, ix.Add(context.Background(), DefaultCorpus().Snippets()))
	return ix
}

func TestIndex_Search(t *testing.T) {
	ix := newIndex(t)
	require.Greater(t, ix.Len(), 10)

	res, err := ix.Search(context.Background(), "Where is the Tokyo office located in Shibuya?", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Contains(t, res[0], "Tokyo")

	empty := NewIndex(embeddings.NewHashProvider(8))
	res, err = empty.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	require.Empty(t, res)
}

func TestLoadCorpus(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("documents:\n  - title: x\n    text: |\n      The Berlin office is in Kreuzberg district.\n      tiny\n"), 0o644))
	c, err := LoadCorpus(yml)
	require.NoError(t, err)
	require.Equal(t, []string{"The Berlin office is in Kreuzberg district."}, c.Snippets())

	txt := filepath.Join(dir, "c.txt")
	require.NoError(t, os.WriteFile(txt, []byte("The Sydney office is in Barangaroo.\n"), 0o644))
	c, err = LoadCorpus(txt)
	require.NoError(t, err)
	require.Equal(t, []string{"The Sydney office is in Barangaroo."}, c.Snippets())

	_, err = LoadCorpus(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestExtractKnownCity(t *testing.T) {
	city, ok := ExtractKnownCity([]string{"nothing here", "The new york team and the LONDON team"})
	require.True(t, ok)
	require.Equal(t, "New York", city)

	_, ok = ExtractKnownCity([]string{"Paris office"})
	require.False(t, ok)
}

func TestCleanCity(t *testing.T) {
	require.Equal(t, "Paris", CleanCity("  Paris.\n"))
	require.Equal(t, "", CleanCity("NONE"))
	require.Equal(t, "", CleanCity("none"))
	require.Equal(t, "", CleanCity("LA"))
	require.Equal(t, "Rome", CleanCity("\"Rome\"\nThe city is Rome."))
}

func TestCityDetector_Fallback(t *testing.T) {
	var gotSystem string
	d := NewCityDetector(planner.CompleterFunc(func(_ context.Context, system, user string) (string, error) {
		gotSystem = system
		return "Paris", nil
	}))

	city, err := d.Detect(context.Background(), "office in Paris?", []string{"The Tokyo office is in Shibuya."})
	require.NoError(t, err)
	require.Equal(t, "Tokyo", city)
	require.Empty(t, gotSystem)

	city, err = d.Detect(context.Background(), "office in Paris?", nil)
	require.NoError(t, err)
	require.Equal(t, "Paris", city)
	require.Equal(t, prompts.CityFallbackSystem, gotSystem)
}

func TestPipeline(t *testing.T) {
	completer := planner.CompleterFunc(func(_ context.Context, system, user string) (string, error) {
		require.Equal(t, prompts.CityFactsSystem, system)
		require.Equal(t, "Tell me 3 interesting facts about Tokyo.", user)
		return "- fact one\n- fact two\n- fact three", nil
	})
	p := NewPipeline(newIndex(t), completer,
		WithTopK(2),
		WithDistance(func(_ context.Context, city string) (float64, bool, error) {
			return 6870.12, true, nil
		}))

	ans, err := p.Answer(context.Background(), "Tell me about the Tokyo office in Shibuya")
	require.NoError(t, err)
	require.True(t, ans.Found())
	require.Equal(t, "Tokyo", ans.City)
	require.NotEmpty(t, ans.OfficeFacts)
	require.Equal(t, "- fact one\n- fact two\n- fact three", ans.CityFacts)
	require.True(t, ans.HasDistance)
	require.Equal(t, 6870.12, ans.DistanceMiles)
}

func TestPipeline_NoCity(t *testing.T) {
	completer := planner.CompleterFunc(func(context.Context, string, string) (string, error) {
		return "NONE", nil
	})
	ans, err := NewPipeline(NewIndex(embeddings.NewHashProvider(8)), completer).Answer(context.Background(), "hello there")
	require.NoError(t, err)
	require.False(t, ans.Found())
}

func TestPipeline_DistanceErrorIsNotFatal(t *testing.T) {
	completer := planner.CompleterFunc(func(context.Context, string, string) (string, error) {
		return "- a", nil
	})
	p := NewPipeline(newIndex(t), completer, WithDistance(func(context.Context, string) (float64, bool, error) {
		return 0, false, errors.New("geocoder down")
	}))
	ans, err := p.Answer(context.Background(), "Berlin office Kreuzberg infrastructure team")
	require.NoError(t, err)
	require.Equal(t, "Berlin", ans.City)
	require.False(t, ans.HasDistance)
}

func TestTokenBudget(t *testing.T) {
	b, err := NewTokenBudget("", 0)
	require.NoError(t, err)
	n, err := b.Count("hello world")
	require.NoError(t, err)
	require.Greater(t, n, 0)

	snippets := []string{"one two three", "four five six", "seven eight nine"}
	all, err := b.Fit(snippets)
	require.NoError(t, err)
	require.Equal(t, snippets, all)

	first, err := b.Count(snippets[0])
	require.NoError(t, err)
	b.MaxTokens = first
	fit, err := b.Fit(snippets)
	require.NoError(t, err)
	require.Equal(t, snippets[:1], fit)

	_, err = NewTokenBudget("no-such-encoding", 10)
	require.Error(t, err)
}
