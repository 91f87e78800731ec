package activity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Event is one override or preset change. Domain is the override domain the
// change touched and is empty for preset events.
type Event struct {
	Verb       string
	ActorID    string
	TenantID   string
	Domain     string
	ObjectType string
	ObjectID   string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Normalized returns a trimmed copy with detached metadata and a timestamp.
func (e Event) Normalized() Event {
	out := Event{
		Verb:       strings.TrimSpace(e.Verb),
		ActorID:    strings.TrimSpace(e.ActorID),
		TenantID:   strings.TrimSpace(e.TenantID),
		Domain:     strings.TrimSpace(e.Domain),
		ObjectType: strings.TrimSpace(e.ObjectType),
		ObjectID:   strings.TrimSpace(e.ObjectID),
		Channel:    strings.TrimSpace(e.Channel),
		Metadata:   cloneMap(e.Metadata),
		OccurredAt: e.OccurredAt,
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now()
	}
	return out
}

// Routable reports whether the event names a verb and an object.
func (e Event) Routable() bool {
	return e.Verb != "" && e.ObjectType != "" && e.ObjectID != ""
}

// ActivityHook receives normalized events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks notifies every hook in order.
type Hooks []ActivityHook

func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify drops events that are not Routable. Every hook sees the event even
// when an earlier one fails; failures are joined.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	event = event.Normalized()
	if !event.Routable() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
