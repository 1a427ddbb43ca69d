package llm

import (
	"context"
	"fmt"
	"sync"
)

// Reply is one scripted response.
type Reply struct {
	Text string
	Err  error
}

// Call records a request made to a Scripted client.
type Call struct {
	Model  string
	Prompt Prompt
}

// Scripted replays a fixed sequence of replies. It is used for offline runs
// and tests.
type Scripted struct {
	mu      sync.Mutex
	replies []Reply
	calls   []Call
}

// NewScripted returns a client that answers with replies in order.
func NewScripted(replies ...Reply) *Scripted {
	return &Scripted{replies: replies}
}

// Complete returns the next scripted reply.
func (s *Scripted) Complete(ctx context.Context, model string, p Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Model: model, Prompt: p})
	if len(s.replies) == 0 {
		return "", fmt.Errorf("%w: script exhausted after %d calls", ErrUnavailable, len(s.calls)-1)
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.Text, r.Err
}

// Calls returns the requests received so far.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

var _ Client = (*Scripted)(nil)
