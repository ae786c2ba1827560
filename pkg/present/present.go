// Package present formats assistant answers for the terminal.
package present

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

const (
	FinalHeader  = "Assistant Final Response:"
	FactsHeader  = "Here are 3 facts for you:"
	NoOfficeInfo = "(No office information found)"
	NoLocation   = "Sorry, I couldn't find a relevant location."
)

type Styles struct {
	Header  lipgloss.Style
	Title   lipgloss.Style
	Body    lipgloss.Style
	Tool    lipgloss.Style
	Snippet lipgloss.Style
	Error   lipgloss.Style
}

func DefaultStyles() Styles {
	blue := lipgloss.Color("12")
	return Styles{
		Header:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Title:   lipgloss.NewStyle().Bold(true).Foreground(blue),
		Body:    lipgloss.NewStyle().Foreground(blue),
		Tool:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Snippet: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Error:   lipgloss.NewStyle().Bold(true),
	}
}

// ShouldColor reports whether w is a terminal.
func ShouldColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Presenter renders answers, styled only when color is enabled.
type Presenter struct {
	styles Styles
	color  bool
	origin string
}

type Option func(*Presenter)

func WithColor(color bool) Option {
	return func(p *Presenter) { p.color = color }
}

func WithStyles(s Styles) Option {
	return func(p *Presenter) { p.styles = s }
}

// New returns a plain presenter measuring distances from origin.
func New(origin string, opts ...Option) *Presenter {
	p := &Presenter{styles: DefaultStyles(), origin: origin}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ForWriter enables color when w is a terminal.
func ForWriter(w io.Writer, origin string) *Presenter {
	return New(origin, WithColor(ShouldColor(w)))
}

func (p *Presenter) render(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

// ExtractFacts returns the lines starting with "-" or "•", markers stripped.
func ExtractFacts(text string) []string {
	var facts []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		switch {
		case strings.HasPrefix(l, "-"):
			facts = append(facts, strings.TrimSpace(strings.TrimPrefix(l, "-")))
		case strings.HasPrefix(l, "•"):
			facts = append(facts, strings.TrimSpace(strings.TrimPrefix(l, "•")))
		}
	}
	return facts
}

// FactsList is ExtractFacts, falling back to the first 3 non-empty lines
// when text has no bullets.
func FactsList(text string) []string {
	if facts := ExtractFacts(text); len(facts) > 0 {
		return facts
	}
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
		if len(lines) == 3 {
			break
		}
	}
	return lines
}

// FormatMiles prints a distance without trailing zeros.
func FormatMiles(miles float64) string {
	return strconv.FormatFloat(miles, 'f', -1, 64)
}

func (p *Presenter) Header() string {
	return p.render(p.styles.Header, FinalHeader)
}

func (p *Presenter) section(title string, facts []string) string {
	var b strings.Builder
	b.WriteString(p.render(p.styles.Title, title))
	b.WriteString("\n\n")
	for _, f := range facts {
		b.WriteString(p.render(p.styles.Body, "• "+strings.TrimSpace(f)))
		b.WriteString("\n")
	}
	return b.String()
}

func (p *Presenter) distanceLine(distance string) string {
	return p.render(p.styles.Title, fmt.Sprintf("Distance from %s:", p.origin)) +
		" " + p.render(p.styles.Body, distance+" miles")
}

// TravelAnswer lists the bullet facts of raw and the distance to
// destination. Without facts or a distance, raw is returned as is.
func (p *Presenter) TravelAnswer(raw string, destination string, miles float64, hasDistance bool) string {
	facts := ExtractFacts(raw)
	if len(facts) == 0 || !hasDistance {
		return raw
	}
	if destination == "" {
		destination = "Destination"
	}
	return p.section(fmt.Sprintf("Facts about %s:", destination), facts) +
		"\n" + p.distanceLine(FormatMiles(miles))
}

// Facts renders the answer of the facts only assistant.
func (p *Presenter) Facts(answer string) string {
	return p.render(p.styles.Header, FactsHeader) + "\n\n" +
		p.render(p.styles.Body, strings.TrimSpace(answer))
}

// Weather renders the final line of a weather episode.
func (p *Presenter) Weather(conditions string, tempF float64) string {
	return p.render(p.styles.Title, fmt.Sprintf("Final: %s (%.1f °F)", conditions, tempF))
}

// RAGAnswer combines office facts, city facts and the distance. An empty
// location renders the not-found message.
func (p *Presenter) RAGAnswer(location string, officeFacts []string, cityFacts []string, miles float64, hasDistance bool) string {
	if location == "" {
		return p.render(p.styles.Error, NoLocation)
	}
	if len(officeFacts) == 0 {
		officeFacts = []string{NoOfficeInfo}
	}
	distance := "unknown"
	if hasDistance {
		distance = FormatMiles(miles)
	}
	return p.section(fmt.Sprintf("Facts about the Office in %s:", location), officeFacts) +
		"\n" + p.section(fmt.Sprintf("Facts about %s:", location), cityFacts) +
		"\n" + p.distanceLine(distance)
}

// Snippets renders the retrieved search context.
func (p *Presenter) Snippets(query string, snippets []string) string {
	var b strings.Builder
	b.WriteString(p.render(p.styles.Snippet, "RAG Search Query:") + " " + query + "\n")
	if len(snippets) == 0 {
		b.WriteString(p.render(p.styles.Snippet, "No snippets retrieved from RAG."))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(p.render(p.styles.Snippet, "RAG Retrieved Snippets:") + "\n")
	for i, s := range snippets {
		b.WriteString(p.render(p.styles.Snippet, fmt.Sprintf("%d. %s", i+1, s)))
		b.WriteString("\n")
	}
	return b.String()
}

// ToolCall renders a tool invocation of the travel agent.
func (p *Presenter) ToolCall(name string, args string) string {
	return p.render(p.styles.Tool, fmt.Sprintf("Tool call: %s with args: %s", name, args))
}

func (p *Presenter) ToolResult(result string) string {
	return p.render(p.styles.Tool, "Tool call result: "+result)
}
