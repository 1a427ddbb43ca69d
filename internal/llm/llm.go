// Package llm is the text-generation boundary. The rest of the system talks
// to a Client and never to a vendor SDK directly.
package llm

import (
	"context"
	"errors"
)

// Prompt is a system instruction plus the user message.
type Prompt struct {
	System string
	User   string
}

// Client produces text for a prompt using the named model.
type Client interface {
	Complete(ctx context.Context, model string, p Prompt) (string, error)
}

// Failure kinds. Adapters wrap one of these so callers can use errors.Is.
var (
	ErrQuota             = errors.New("llm: quota or rate limit exceeded")
	ErrTimeout           = errors.New("llm: request timed out")
	ErrMalformedResponse = errors.New("llm: malformed response")
	ErrUnavailable       = errors.New("llm: service unavailable")
)
