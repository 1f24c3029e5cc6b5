package llm

import "context"

// StubClient is a scripted Client for tests. Each call pops the next
// response; Fn, when set, takes precedence.
type StubClient struct {
	// Responses are returned in order. The last one repeats.
	Responses []string

	// Errs maps call index (0-based) to an error returned instead.
	Errs map[int]error

	// Fn overrides scripted behavior entirely when non-nil.
	Fn func(ctx context.Context, model, prompt string) (string, error)

	// Calls records every prompt received.
	Calls []string

	// Models records the model named on each call.
	Models []string
}

func (s *StubClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	idx := len(s.Calls)
	s.Calls = append(s.Calls, prompt)
	s.Models = append(s.Models, model)

	if s.Fn != nil {
		return s.Fn(ctx, model, prompt)
	}
	if err, ok := s.Errs[idx]; ok {
		return "", err
	}
	if len(s.Responses) == 0 {
		return "", nil
	}
	if idx >= len(s.Responses) {
		return s.Responses[len(s.Responses)-1], nil
	}
	return s.Responses[idx], nil
}
