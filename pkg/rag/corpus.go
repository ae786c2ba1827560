package rag

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed offices.yaml
var defaultCorpus []byte

// CorpusDocument is one document of a YAML corpus.
type CorpusDocument struct {
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

type Corpus struct {
	Documents []CorpusDocument `yaml:"documents"`
}

// Snippets splits every document into indexable lines.
func (c *Corpus) Snippets() []string {
	var out []string
	for _, d := range c.Documents {
		out = append(out, SplitSnippets(d.Text)...)
	}
	return out
}

func ParseCorpus(data []byte) (*Corpus, error) {
	c := &Corpus{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "could not parse corpus")
	}
	return c, nil
}

// DefaultCorpus is the bundled office directory.
func DefaultCorpus() *Corpus {
	c, err := ParseCorpus(defaultCorpus)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCorpus reads a .yaml/.yml corpus, or any other file as plain text
// holding a single document.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read corpus %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseCorpus(data)
	default:
		return &Corpus{Documents: []CorpusDocument{{Title: filepath.Base(path), Text: string(data)}}}, nil
	}
}
