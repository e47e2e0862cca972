package chat

import (
	"context"

	"groq-chatter/internal/storage"
)

// Observer receives audit events emitted by the pipeline. Implementations
// must not block for long; the pipeline calls them inline.
type Observer interface {
	Observe(ctx context.Context, ev storage.Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev storage.Event)

func (f ObserverFunc) Observe(ctx context.Context, ev storage.Event) { f(ctx, ev) }

// Observers fans an event out to every member.
type Observers []Observer

func (obs Observers) Observe(ctx context.Context, ev storage.Event) {
	for _, o := range obs {
		if o != nil {
			o.Observe(ctx, ev)
		}
	}
}

// TypingNotifier shows a "typing" indicator while the model works.
type TypingNotifier interface {
	Typing(ctx context.Context, chatID int64) error
}
