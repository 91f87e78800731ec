package overrides

import (
	"encoding/json"
	"sort"
	"strings"
)

// ForcedState is a domain's override partition. An id appears in at most one
// of Enabled and Disabled; ids in neither are not forced.
type ForcedState struct {
	Enabled  []string `json:"enabled"`
	Disabled []string `json:"disabled"`
}

// Clone returns a detached copy with non-nil slices.
func (s ForcedState) Clone() ForcedState {
	return ForcedState{
		Enabled:  append([]string{}, s.Enabled...),
		Disabled: append([]string{}, s.Disabled...),
	}
}

// Lookup reports the forced value for id and whether it is forced at all.
func (s ForcedState) Lookup(id string) (value bool, forced bool) {
	if contains(s.Enabled, id) {
		return true, true
	}
	if contains(s.Disabled, id) {
		return false, true
	}
	return false, false
}

// Has reports whether id is forced either way.
func (s ForcedState) Has(id string) bool {
	_, forced := s.Lookup(id)
	return forced
}

// Without returns a copy with id removed from both sets.
func (s ForcedState) Without(id string) ForcedState {
	return ForcedState{
		Enabled:  remove(s.Enabled, id),
		Disabled: remove(s.Disabled, id),
	}
}

// With returns a copy with id moved into the set matching value.
func (s ForcedState) With(id string, value bool) ForcedState {
	next := s.Without(id)
	if value {
		next.Enabled = append(next.Enabled, id)
	} else {
		next.Disabled = append(next.Disabled, id)
	}
	return next
}

// Normalize trims ids, drops empties and duplicates, and enforces mutual
// exclusivity. An id listed in both sets stays enabled.
func (s ForcedState) Normalize() ForcedState {
	seen := map[string]struct{}{}
	out := ForcedState{Enabled: []string{}, Disabled: []string{}}
	for _, id := range s.Enabled {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out.Enabled = append(out.Enabled, id)
	}
	for _, id := range s.Disabled {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out.Disabled = append(out.Disabled, id)
	}
	return out
}

// Filter keeps only ids present in valid and returns the dropped ids in the
// order they were encountered.
func (s ForcedState) Filter(valid map[string]struct{}) (ForcedState, []string) {
	var dropped []string
	keep := func(ids []string) []string {
		out := []string{}
		for _, id := range ids {
			if _, ok := valid[id]; ok {
				out = append(out, id)
				continue
			}
			dropped = append(dropped, id)
		}
		return out
	}
	return ForcedState{Enabled: keep(s.Enabled), Disabled: keep(s.Disabled)}, dropped
}

// Restrict keeps only the listed ids. A nil list keeps everything.
func (s ForcedState) Restrict(ids []string) ForcedState {
	if ids == nil {
		return s.Clone()
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	restricted, _ := s.Filter(set)
	return restricted
}

// IDs returns every forced id, sorted.
func (s ForcedState) IDs() []string {
	out := make([]string, 0, len(s.Enabled)+len(s.Disabled))
	out = append(out, s.Enabled...)
	out = append(out, s.Disabled...)
	sort.Strings(out)
	return out
}

// Len returns the number of forced ids.
func (s ForcedState) Len() int {
	return len(s.Enabled) + len(s.Disabled)
}

// IsEmpty reports whether nothing is forced.
func (s ForcedState) IsEmpty() bool {
	return s.Len() == 0
}

// Equal compares both sets ignoring order.
func (s ForcedState) Equal(other ForcedState) bool {
	return sameSet(s.Enabled, other.Enabled) && sameSet(s.Disabled, other.Disabled)
}

// EncodePartition renders state using the domain's persisted field names.
func EncodePartition(kind Kind, state ForcedState) map[string][]string {
	enabled, disabled := kind.PartitionLabels()
	clone := state.Clone()
	return map[string][]string{enabled: clone.Enabled, disabled: clone.Disabled}
}

// DecodePartition parses a persisted partition. It reports false when the
// payload is not an object holding both string arrays. Permissions also
// accept granted/denied when enabled/disabled are absent.
func DecodePartition(kind Kind, payload []byte) (ForcedState, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return ForcedState{}, false
	}
	enabledLabel, disabledLabel := kind.PartitionLabels()
	if state, ok := decodeHalves(fields, enabledLabel, disabledLabel); ok {
		return state, true
	}
	_, hasEnabled := fields[enabledLabel]
	_, hasDisabled := fields[disabledLabel]
	aliasEnabled, aliasDisabled, ok := kind.aliasLabels()
	if !ok || hasEnabled || hasDisabled {
		return ForcedState{}, false
	}
	return decodeHalves(fields, aliasEnabled, aliasDisabled)
}

func decodeHalves(fields map[string]json.RawMessage, enabledLabel, disabledLabel string) (ForcedState, bool) {
	enabled, ok := decodeIDs(fields[enabledLabel])
	if !ok {
		return ForcedState{}, false
	}
	disabled, ok := decodeIDs(fields[disabledLabel])
	if !ok {
		return ForcedState{}, false
	}
	return ForcedState{Enabled: enabled, Disabled: disabled}.Normalize(), true
}

func decodeIDs(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil || ids == nil {
		return nil, false
	}
	return ids, true
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func remove(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, id := range a {
		set[id]++
	}
	for _, id := range b {
		if set[id] == 0 {
			return false
		}
		set[id]--
	}
	return true
}
