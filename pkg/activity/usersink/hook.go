// Package usersink forwards override activity to a go-users ActivitySink.
package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-overrides/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts activity events to a go-users ActivitySink. Actors in the
// override engine are usually free-form labels ("cli", "panel"); when the
// actor is not a UUID the label is kept in the record data and FallbackActor
// is used as the record's ActorID.
type Hook struct {
	Sink          usertypes.ActivitySink
	FallbackActor uuid.UUID
	Tenant        uuid.UUID
}

var _ activity.ActivityHook = Hook{}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	event = event.Normalized()
	if !event.Routable() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, h.record(event))
}

func (h Hook) record(event activity.Event) usertypes.ActivityRecord {
	data := event.Metadata
	if event.Domain != "" {
		data = ensure(data)
		data["domain"] = event.Domain
	}

	actor, ok := parseUUID(event.ActorID)
	if !ok {
		actor = h.FallbackActor
		if event.ActorID != "" {
			data = ensure(data)
			data["actor_label"] = event.ActorID
		}
	}
	tenant, ok := parseUUID(event.TenantID)
	if !ok {
		tenant = h.Tenant
	}

	return usertypes.ActivityRecord{
		ActorID:    actor,
		TenantID:   tenant,
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       data,
		OccurredAt: event.OccurredAt,
	}
}

func parseUUID(input string) (uuid.UUID, bool) {
	value := strings.TrimSpace(input)
	if value == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func ensure(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return data
}
