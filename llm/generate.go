package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ByLCY/inkpost/logx"
	"github.com/ByLCY/inkpost/prompt"
)

// ErrAllAttemptsFailed is returned when every attempt of Generate failed.
var ErrAllAttemptsFailed = errors.New("llm: all attempts failed")

const (
	DefaultMaxAttempts = 10
	DefaultRetryDelay  = time.Second
)

// Generator renders prompts, calls the model and parses the reply, retrying
// on any failure.
type Generator struct {
	Completer   Completer
	MaxAttempts int
	RetryDelay  time.Duration
}

// NewGenerator returns a Generator with the default retry policy.
func NewGenerator(c Completer) *Generator {
	return &Generator{Completer: c, MaxAttempts: DefaultMaxAttempts, RetryDelay: DefaultRetryDelay}
}

// Generate fills instruction with vars plus "format_instructions" for kind and
// returns the parsed reply. Placeholders missing from vars are left in the prompt.
func (g *Generator) Generate(ctx context.Context, kind Kind, system, instruction string, vars map[string]any) (Output, error) {
	format, err := FormatInstructions(kind)
	if err != nil {
		return nil, err
	}
	data := make(map[string]any, len(vars)+1)
	for k, v := range vars {
		data[k] = v
	}
	data["format_instructions"] = format
	user, err := prompt.Format(instruction, data)
	if err != nil {
		return nil, err
	}

	attempts := g.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 1; i <= attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := g.once(ctx, kind, system, user)
		if err == nil {
			return out, nil
		}
		lastErr = err
		logx.L().Warn("llm attempt failed", "kind", kind, "attempt", i, "max", attempts, "err", err)
		if i == attempts || g.RetryDelay <= 0 {
			continue
		}
		timer := time.NewTimer(g.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrAllAttemptsFailed, attempts, lastErr)
}

func (g *Generator) once(ctx context.Context, kind Kind, system, user string) (Output, error) {
	reply, err := g.Completer.Complete(ctx, system, user)
	if err != nil {
		return nil, err
	}
	return Parse(kind, reply)
}
