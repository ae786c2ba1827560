package present

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

const raw = `Here are some facts:
- Tokyo is the capital of Japan.
• It hosted the 2020 Olympics.
  - Shibuya crossing is famous.
The distance is about 6870 miles.`

func TestExtractFacts(t *testing.T) {
	require.Equal(t, []string{
		"Tokyo is the capital of Japan.",
		"It hosted the 2020 Olympics.",
		"Shibuya crossing is famous.",
	}, ExtractFacts(raw))
	require.Empty(t, ExtractFacts("no bullets here"))
}

func TestFactsList(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, FactsList("- a\n- b\nc"))
	require.Equal(t, []string{"one", "two", "three"}, FactsList("one\n\ntwo\nthree\nfour"))
}

func TestTravelAnswer(t *testing.T) {
	p := New("Raleigh, NC")
	out := p.TravelAnswer(raw, "Tokyo", 6870.12, true)
	require.Equal(t, "Facts about Tokyo:\n\n"+
		"• Tokyo is the capital of Japan.\n"+
		"• It hosted the 2020 Olympics.\n"+
		"• Shibuya crossing is famous.\n"+
		"\nDistance from Raleigh, NC: 6870.12 miles", out)

	require.Equal(t, raw, p.TravelAnswer(raw, "Tokyo", 0, false))
	require.Equal(t, "just text", p.TravelAnswer("just text", "Tokyo", 10, true))
}

func TestFacts(t *testing.T) {
	require.Equal(t, "Here are 3 facts for you:\n\n- a\n- b", New("").Facts("\n- a\n- b\n"))
}

func TestWeather(t *testing.T) {
	require.Equal(t, "Final: Overcast (59.0 °F)", New("").Weather("Overcast", 59))
}

func TestRAGAnswer(t *testing.T) {
	p := New("Raleigh, NC")
	out := p.RAGAnswer("Tokyo", nil, []string{"Big city"}, 0, false)
	require.Equal(t, "Facts about the Office in Tokyo:\n\n"+
		"• (No office information found)\n"+
		"\nFacts about Tokyo:\n\n"+
		"• Big city\n"+
		"\nDistance from Raleigh, NC: unknown miles", out)

	require.Contains(t, p.RAGAnswer("Tokyo", []string{"Shibuya"}, nil, 6870.5, true), "6870.5 miles")
	require.Equal(t, NoLocation, p.RAGAnswer("", nil, nil, 0, false))
}

func TestSnippets(t *testing.T) {
	p := New("")
	require.Equal(t, "RAG Search Query: q\nNo snippets retrieved from RAG.\n", p.Snippets("q", nil))
	require.Equal(t, "RAG Search Query: q\nRAG Retrieved Snippets:\n1. a\n2. b\n", p.Snippets("q", []string{"a", "b"}))
}

func TestShouldColor(t *testing.T) {
	require.False(t, ShouldColor(&bytes.Buffer{}))
	require.False(t, ForWriter(&bytes.Buffer{}, "x").color)
}
