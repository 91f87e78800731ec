package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizedTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"value": true}
	evt := Event{
		Verb:       " override.forced ",
		ActorID:    " actor ",
		Domain:     " feature-flags ",
		ObjectType: " override ",
		ObjectID:   " feature-flags/dark-mode ",
		Channel:    " overrides ",
		Metadata:   meta,
	}

	got := evt.Normalized()

	if got.Verb != VerbOverrideForced || got.ObjectType != ObjectOverride || got.ObjectID != "feature-flags/dark-mode" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.Channel != "overrides" || got.Domain != "feature-flags" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	if !got.Routable() || (Event{Verb: "x", ObjectType: "y"}).Routable() {
		t.Fatalf("unexpected Routable result")
	}
	got.Metadata["value"] = false
	if evt.Metadata["value"] != true {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
}

func TestHooksNotifyDropsUnroutableEvents(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	if err := hooks.Notify(context.Background(), Event{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Snapshot()) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Snapshot()))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	capture := &CaptureHook{}
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, event Event) error {
			if ctx != nil {
				ctxSeen = true
			}
			return nil
		}),
		capture,
		HookFunc(func(_ context.Context, _ Event) error { return boom1 }),
		nil,
		HookFunc(func(_ context.Context, _ Event) error { return boom2 }),
	}

	//nolint:staticcheck // nil context is normalized by Notify.
	err := hooks.Notify(nil, Event{Verb: VerbOverrideCleared, ObjectType: ObjectOverride, ObjectID: "flags/beta"})
	if !errors.Is(err, boom1) || !errors.Is(err, boom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if len(capture.Snapshot()) != 1 {
		t.Fatalf("expected event to be captured once, got %d", len(capture.Snapshot()))
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}
	event := Event{Verb: VerbOverrideForced, ObjectType: ObjectOverride, ObjectID: "flags/beta"}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Snapshot()) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true})
	if !enabled.Enabled() {
		t.Fatalf("expected emitter to be enabled")
	}
	if err := enabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	events := capture.Snapshot()
	if len(events) != 1 {
		t.Fatalf("expected one event captured, got %d", len(events))
	}
	if events[0].Channel != DefaultChannel {
		t.Fatalf("expected default channel applied, got %q", events[0].Channel)
	}
}

func TestEmitterPreservesExplicitChannel(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "default"})
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := emitter.Emit(context.Background(), Event{
		Verb:       VerbPresetSaved,
		ObjectType: ObjectPreset,
		ObjectID:   "p-1",
		Channel:    "custom",
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	events := capture.Snapshot()
	if events[0].Channel != "custom" {
		t.Fatalf("expected explicit channel preserved, got %q", events[0].Channel)
	}
	if !events[0].OccurredAt.Equal(at) {
		t.Fatalf("expected occurred_at preserved, got %v", events[0].OccurredAt)
	}
}

func TestEmitterEmitAllJoinsErrors(t *testing.T) {
	boom := errors.New("sink down")
	capture := &CaptureHook{Err: boom}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true})

	err := emitter.EmitAll(context.Background(),
		Event{Verb: VerbOverrideForced, ObjectType: ObjectOverride, ObjectID: "a"},
		Event{Verb: VerbOverrideCleared, ObjectType: ObjectOverride, ObjectID: "b"},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if got := capture.Verbs(); len(got) != 2 || got[1] != VerbOverrideCleared {
		t.Fatalf("unexpected verbs %v", got)
	}
	capture.Reset()
	if len(capture.Snapshot()) != 0 {
		t.Fatalf("expected reset to drop events")
	}
}

func TestEmitterStampsTenantWhenMissing(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Tenant: " acme "})

	_ = emitter.EmitAll(context.Background(),
		Event{Verb: VerbOverrideForced, ObjectType: ObjectOverride, ObjectID: "a"},
		Event{Verb: VerbOverrideForced, ObjectType: ObjectOverride, ObjectID: "b", TenantID: "other"},
	)
	events := capture.Snapshot()
	if len(events) != 2 || events[0].TenantID != "acme" || events[1].TenantID != "other" {
		t.Fatalf("unexpected tenants %+v", events)
	}

	var nilEmitter *Emitter
	if nilEmitter.Enabled() || nilEmitter.Emit(context.Background(), events[0]) != nil {
		t.Fatalf("nil emitter must be a no-op")
	}
}
