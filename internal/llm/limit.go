package llm

import "context"

var _ Client = (*limitedClient)(nil)

type limitedClient struct {
	inner Client
	sem   chan struct{}
}

// NewLimited caps the number of in-flight Generate calls. A waiting caller
// gives up when its context ends.
func NewLimited(inner Client, maxConcurrent int) Client {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedClient{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedClient) Generate(ctx context.Context, messages []Message, params Params) (Response, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, messages, params)
}
