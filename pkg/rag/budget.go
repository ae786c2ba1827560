package rag

import (
	"github.com/pkg/errors"
	"github.com/tiktoken-go/tokenizer"
)

// TokenBudget keeps the retrieved context within a token limit.
type TokenBudget struct {
	codec     tokenizer.Codec
	MaxTokens int
}

// NewTokenBudget uses the given tiktoken encoding, cl100k_base when empty.
func NewTokenBudget(encoding string, maxTokens int) (*TokenBudget, error) {
	if encoding == "" {
		encoding = string(tokenizer.Cl100kBase)
	}
	codec, err := tokenizer.Get(tokenizer.Encoding(encoding))
	if err != nil {
		return nil, errors.Wrapf(err, "unknown encoding %s", encoding)
	}
	return &TokenBudget{codec: codec, MaxTokens: maxTokens}, nil
}

func (b *TokenBudget) Count(text string) (int, error) {
	ids, _, err := b.codec.Encode(text)
	if err != nil {
		return 0, errors.Wrap(err, "could not tokenize")
	}
	return len(ids), nil
}

// Fit returns the longest prefix of snippets whose total token count stays
// within MaxTokens. A non-positive MaxTokens keeps everything.
func (b *TokenBudget) Fit(snippets []string) ([]string, error) {
	if b.MaxTokens <= 0 {
		return snippets, nil
	}
	total := 0
	for i, s := range snippets {
		n, err := b.Count(s)
		if err != nil {
			return nil, err
		}
		if total+n > b.MaxTokens {
			return snippets[:i], nil
		}
		total += n
	}
	return snippets, nil
}
