package planner

import (
	"context"
	"sync"

	"github.com/go-go-golems/wayfinder/pkg/conversation"
	"github.com/go-go-golems/wayfinder/pkg/inference/tools"
	"github.com/pkg/errors"
)

// ErrScriptExhausted is returned by a Scripted planner asked for more replies
// than it holds.
var ErrScriptExhausted = errors.New("scripted planner has no more replies")

// Scripted replays canned replies in order. It records the conversation it was
// shown at every step.
type Scripted struct {
	mu      sync.Mutex
	replies []Reply
	seen    []*conversation.Conversation
	repeat  bool
}

var _ Planner = (*Scripted)(nil)

func NewScripted(replies ...Reply) *Scripted {
	return &Scripted{replies: replies}
}

// NewScriptedText parses each text with the Thought/Action/Args parser.
func NewScriptedText(texts ...string) *Scripted {
	replies := make([]Reply, 0, len(texts))
	for _, t := range texts {
		r, _ := ParseText(t)
		replies = append(replies, r)
	}
	return NewScripted(replies...)
}

// Repeating makes the planner replay its last reply forever once the script
// has run out.
func (s *Scripted) Repeating() *Scripted {
	s.repeat = true
	return s
}

func (s *Scripted) Plan(ctx context.Context, conv *conversation.Conversation, _ []tools.ToolSpec) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := len(s.seen)
	s.seen = append(s.seen, conv.Clone())
	if idx >= len(s.replies) {
		if !s.repeat || len(s.replies) == 0 {
			return Reply{}, ErrScriptExhausted
		}
		idx = len(s.replies) - 1
	}
	return s.replies[idx], nil
}

// Calls is the number of Plan calls made so far.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Seen returns the conversation snapshot passed to the i-th Plan call.
func (s *Scripted) Seen(i int) *conversation.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.seen) {
		return nil
	}
	return s.seen[i]
}
