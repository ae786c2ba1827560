package rag

import (
	"context"

	"github.com/go-go-golems/wayfinder/pkg/inference/planner"
	"github.com/go-go-golems/wayfinder/pkg/prompts"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DistanceFunc returns the distance in miles to city, with ok false when the
// city could not be located.
type DistanceFunc func(ctx context.Context, city string) (miles float64, ok bool, err error)

// Answer is everything the office assistant found for one question.
type Answer struct {
	Question    string
	Snippets    []string
	City        string
	OfficeFacts []string
	// CityFacts is the raw model reply listing facts about the city.
	CityFacts     string
	DistanceMiles float64
	HasDistance   bool
}

// Found reports whether a city was detected.
func (a *Answer) Found() bool {
	return a.City != ""
}

// Pipeline answers office questions: vector search, city detection, city
// facts from the model, then the distance to the city.
type Pipeline struct {
	searcher  Searcher
	detector  *CityDetector
	completer planner.Completer
	distance  DistanceFunc
	budget    *TokenBudget
	k         int
}

type PipelineOption func(*Pipeline)

// WithTopK sets how many snippets are retrieved. The default is 1.
func WithTopK(k int) PipelineOption {
	return func(p *Pipeline) { p.k = k }
}

func WithTokenBudget(b *TokenBudget) PipelineOption {
	return func(p *Pipeline) { p.budget = b }
}

func WithDistance(fn DistanceFunc) PipelineOption {
	return func(p *Pipeline) { p.distance = fn }
}

func NewPipeline(searcher Searcher, completer planner.Completer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		searcher:  searcher,
		detector:  NewCityDetector(completer),
		completer: completer,
		k:         1,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Pipeline) Answer(ctx context.Context, question string) (*Answer, error) {
	snippets, err := p.searcher.Search(ctx, question, p.k)
	if err != nil {
		return nil, errors.Wrap(err, "vector search failed")
	}
	if p.budget != nil {
		if snippets, err = p.budget.Fit(snippets); err != nil {
			return nil, err
		}
	}
	ans := &Answer{Question: question, Snippets: snippets}

	city, err := p.detector.Detect(ctx, question, snippets)
	if err != nil {
		return nil, err
	}
	if city == "" {
		return ans, nil
	}
	ans.City = city
	ans.OfficeFacts = OfficeFacts(snippets, city)

	if p.completer != nil {
		facts, err := p.completer.Complete(ctx, prompts.CityFactsSystem, prompts.CityFactsUser(city))
		if err != nil {
			return nil, errors.Wrap(err, "city facts failed")
		}
		ans.CityFacts = facts
	}

	if p.distance != nil {
		miles, ok, err := p.distance(ctx, city)
		if err != nil {
			// the rest of the answer is still useful
			log.Warn().Err(err).Str("city", city).Msg("rag: distance lookup failed")
		} else if ok {
			ans.DistanceMiles = miles
			ans.HasDistance = true
		}
	}
	return ans, nil
}
