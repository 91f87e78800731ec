package activity

import (
	"sort"
	"strings"
	"time"
)

// Verbs emitted by the override engine and the preset orchestrator.
const (
	VerbOverrideForced    = "override.forced"
	VerbOverrideCleared   = "override.cleared"
	VerbStateApplied      = "override.state.applied"
	VerbOverridesPruned   = "override.pruned"
	VerbOverridesReset    = "override.reset"
	VerbOptionsRegistered = "options.registered"

	VerbPresetSaved    = "preset.saved"
	VerbPresetUpdated  = "preset.updated"
	VerbPresetApplied  = "preset.applied"
	VerbPresetDeleted  = "preset.deleted"
	VerbPresetImported = "preset.imported"
)

// Object types carried by emitted events.
const (
	ObjectOverride = "override"
	ObjectDomain   = "domain"
	ObjectPreset   = "preset"
)

// OverrideEventInput describes a change to one domain's override partition.
type OverrideEventInput struct {
	ActorID    string
	Channel    string
	Domain     string
	OptionID   string
	Value      *bool
	Removed    []string
	Count      int
	Metadata   map[string]any
	OccurredAt time.Time
}

// PresetEventInput describes a preset lifecycle change.
type PresetEventInput struct {
	ActorID    string
	Channel    string
	PresetID   string
	Name       string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildOverrideForcedEvent records a single forced option.
func BuildOverrideForcedEvent(input OverrideEventInput) Event {
	return buildOverrideEvent(VerbOverrideForced, ObjectOverride, input)
}

// BuildOverrideClearedEvent records a single option returning to its natural value.
func BuildOverrideClearedEvent(input OverrideEventInput) Event {
	return buildOverrideEvent(VerbOverrideCleared, ObjectOverride, input)
}

// BuildStateAppliedEvent records a bulk replacement of a partition.
func BuildStateAppliedEvent(input OverrideEventInput) Event {
	return buildOverrideEvent(VerbStateApplied, ObjectDomain, input)
}

// BuildOverridesPrunedEvent records stale ids removed after a registry change.
func BuildOverridesPrunedEvent(input OverrideEventInput) Event {
	return buildOverrideEvent(VerbOverridesPruned, ObjectDomain, input)
}

// BuildOverridesResetEvent records every override of a domain being dropped.
func BuildOverridesResetEvent(input OverrideEventInput) Event {
	return buildOverrideEvent(VerbOverridesReset, ObjectDomain, input)
}

// BuildOptionsRegisteredEvent records the host replacing a domain's options.
func BuildOptionsRegisteredEvent(input OverrideEventInput) Event {
	return buildOverrideEvent(VerbOptionsRegistered, ObjectDomain, input)
}

// BuildPresetEvent builds a preset lifecycle event for verb.
func BuildPresetEvent(verb string, input PresetEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if name := strings.TrimSpace(input.Name); name != "" {
		metadata = ensureMetadata(metadata)
		metadata["name"] = name
	}
	objectID := strings.TrimSpace(input.PresetID)
	if objectID == "" {
		objectID = ObjectPreset
	}
	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		ObjectType: ObjectPreset,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func buildOverrideEvent(verb, objectType string, input OverrideEventInput) Event {
	metadata := cloneMap(input.Metadata)
	domain := strings.TrimSpace(input.Domain)
	if input.Value != nil {
		metadata = ensureMetadata(metadata)
		metadata["value"] = *input.Value
	}
	if len(input.Removed) > 0 {
		removed := append([]string{}, input.Removed...)
		sort.Strings(removed)
		metadata = ensureMetadata(metadata)
		metadata["removed"] = removed
	}
	if input.Count > 0 {
		metadata = ensureMetadata(metadata)
		metadata["count"] = input.Count
	}

	objectID := domain
	if id := strings.TrimSpace(input.OptionID); id != "" && objectType == ObjectOverride {
		objectID = domain + "/" + id
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		Domain:     domain,
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
