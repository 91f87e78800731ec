package activity

import "testing"

func TestBuildOverrideForcedEventIdentifiesOption(t *testing.T) {
	value := true
	event := BuildOverrideForcedEvent(OverrideEventInput{
		ActorID:  " dev ",
		Domain:   "feature-flags",
		OptionID: "dark-mode",
		Value:    &value,
		Metadata: map[string]any{"source": "panel"},
	})

	if event.Verb != VerbOverrideForced || event.ObjectType != ObjectOverride {
		t.Fatalf("unexpected verb/type: %+v", event)
	}
	if event.ObjectID != "feature-flags/dark-mode" {
		t.Fatalf("expected domain scoped object id, got %q", event.ObjectID)
	}
	if event.ActorID != "dev" {
		t.Fatalf("expected trimmed actor, got %q", event.ActorID)
	}
	if event.Domain != "feature-flags" {
		t.Fatalf("expected domain on the event, got %q", event.Domain)
	}
	if event.Metadata["value"] != true || event.Metadata["source"] != "panel" {
		t.Fatalf("unexpected metadata %+v", event.Metadata)
	}
}

func TestBuildOverridesPrunedEventSortsRemovedIDs(t *testing.T) {
	removed := []string{"zeta", "alpha"}
	event := BuildOverridesPrunedEvent(OverrideEventInput{Domain: "permissions", Removed: removed, Count: 2})

	if event.ObjectType != ObjectDomain || event.ObjectID != "permissions" {
		t.Fatalf("unexpected object: %+v", event)
	}
	got, ok := event.Metadata["removed"].([]string)
	if !ok || len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
		t.Fatalf("expected sorted removed ids, got %v", event.Metadata["removed"])
	}
	if removed[0] != "zeta" {
		t.Fatalf("expected input slice untouched, got %v", removed)
	}
	if event.Metadata["count"] != 2 {
		t.Fatalf("expected count metadata, got %v", event.Metadata["count"])
	}
}

func TestBuildOverrideEventFallsBackToObjectType(t *testing.T) {
	event := BuildStateAppliedEvent(OverrideEventInput{})
	if event.ObjectID != ObjectDomain {
		t.Fatalf("expected object type fallback, got %q", event.ObjectID)
	}
	if event.Metadata != nil {
		t.Fatalf("expected nil metadata, got %+v", event.Metadata)
	}
}

func TestBuildPresetEvent(t *testing.T) {
	event := BuildPresetEvent(VerbPresetApplied, PresetEventInput{PresetID: " p-1 ", Name: " QA "})
	if event.Verb != VerbPresetApplied || event.ObjectType != ObjectPreset || event.ObjectID != "p-1" {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.Metadata["name"] != "QA" {
		t.Fatalf("expected name metadata, got %+v", event.Metadata)
	}

	anonymous := BuildPresetEvent(VerbPresetDeleted, PresetEventInput{})
	if anonymous.ObjectID != ObjectPreset {
		t.Fatalf("expected fallback object id, got %q", anonymous.ObjectID)
	}
}
