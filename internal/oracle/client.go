package oracle

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// ErrUnavailable is returned when the oracle endpoint cannot produce a
// usable completion. Callers are expected to degrade, not abort.
var ErrUnavailable = errors.New("oracle unavailable")

// Request is a single completion request. JSONMode constrains the model
// to emit a valid JSON object.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// Client is the generative-model oracle contract. Implementations must
// honor ctx and return ErrUnavailable-wrapped errors on transport or
// decode failures.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

var codeFenceOpen = regexp.MustCompile("^```[a-zA-Z]*\n?")
var codeFenceClose = regexp.MustCompile("\n?```$")

// StripCodeFence removes a wrapping markdown code fence. Models asked
// for raw JSON still emit fenced blocks now and then.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = codeFenceOpen.ReplaceAllString(s, "")
	s = codeFenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
