package overrides

import (
	"encoding/json"
	"testing"
)

func TestForcedStateWithKeepsSetsExclusive(t *testing.T) {
	state := ForcedState{}.With("dark-mode", true).With("beta", false).With("dark-mode", false)

	if contains(state.Enabled, "dark-mode") {
		t.Fatalf("expected dark-mode to leave enabled set: %+v", state)
	}
	if !contains(state.Disabled, "dark-mode") || !contains(state.Disabled, "beta") {
		t.Fatalf("expected both ids disabled: %+v", state)
	}
	assertExclusive(t, state)
}

func TestForcedStateNormalizePrefersEnabled(t *testing.T) {
	state := ForcedState{
		Enabled:  []string{" a ", "a", "", "b"},
		Disabled: []string{"a", "c", "c"},
	}.Normalize()

	if !sameSet(state.Enabled, []string{"a", "b"}) || !sameSet(state.Disabled, []string{"c"}) {
		t.Fatalf("unexpected normalized state %+v", state)
	}
	assertExclusive(t, state)
}

func TestForcedStateFilterReportsDropped(t *testing.T) {
	state := ForcedState{Enabled: []string{"a", "gone"}, Disabled: []string{"b", "old"}}
	filtered, dropped := state.Filter(map[string]struct{}{"a": {}, "b": {}})

	if !filtered.Equal(ForcedState{Enabled: []string{"a"}, Disabled: []string{"b"}}) {
		t.Fatalf("unexpected filtered state %+v", filtered)
	}
	if len(dropped) != 2 || dropped[0] != "gone" || dropped[1] != "old" {
		t.Fatalf("unexpected dropped ids %v", dropped)
	}
}

func TestForcedStateRestrict(t *testing.T) {
	state := ForcedState{Enabled: []string{"a", "b"}, Disabled: []string{"c"}}
	if got := state.Restrict(nil); !got.Equal(state) {
		t.Fatalf("nil restriction should keep everything, got %+v", got)
	}
	got := state.Restrict([]string{"b", "c"})
	if !got.Equal(ForcedState{Enabled: []string{"b"}, Disabled: []string{"c"}}) {
		t.Fatalf("unexpected restricted state %+v", got)
	}
	if empty := state.Restrict([]string{}); !empty.IsEmpty() {
		t.Fatalf("empty restriction should keep nothing, got %+v", empty)
	}
}

func TestForcedStateCloneIsDetached(t *testing.T) {
	state := ForcedState{Enabled: []string{"a"}}
	clone := state.Clone()
	clone.Enabled[0] = "mutated"
	if state.Enabled[0] != "a" {
		t.Fatalf("expected original untouched")
	}
	if clone.Disabled == nil {
		t.Fatalf("expected non-nil disabled slice")
	}
}

func TestPartitionEncodingUsesEnabledDisabledForEveryDomain(t *testing.T) {
	state := ForcedState{Enabled: []string{"admin"}, Disabled: []string{"billing"}}

	for _, kind := range []Kind{KindFeatureFlags, KindPermissions, KindAppFeatures} {
		payload, err := json.Marshal(EncodePartition(kind, state))
		if err != nil {
			t.Fatalf("%s: marshal: %v", kind, err)
		}
		var fields map[string][]string
		if err := json.Unmarshal(payload, &fields); err != nil {
			t.Fatalf("%s: unmarshal: %v", kind, err)
		}
		if len(fields) != 2 || fields["enabled"][0] != "admin" || fields["disabled"][0] != "billing" {
			t.Fatalf("%s: unexpected payload %s", kind, payload)
		}

		decoded, ok := DecodePartition(kind, payload)
		if !ok || !decoded.Equal(state) {
			t.Fatalf("%s: expected round trip, got %+v ok=%v", kind, decoded, ok)
		}
	}
}

func TestDecodePartitionAcceptsGrantedDeniedForPermissions(t *testing.T) {
	payload := []byte(`{"granted":["admin"],"denied":["billing"]}`)

	decoded, ok := DecodePartition(KindPermissions, payload)
	if !ok || !decoded.Has("admin") || !decoded.Has("billing") || decoded.Len() != 2 {
		t.Fatalf("expected granted/denied read as enabled/disabled, got %+v ok=%v", decoded, ok)
	}
	if _, ok := DecodePartition(KindFeatureFlags, payload); ok {
		t.Fatalf("granted/denied must only be read for permissions")
	}
	if _, ok := DecodePartition(KindPermissions, []byte(`{"enabled":["admin"],"granted":["x"],"denied":[]}`)); ok {
		t.Fatalf("a partial enabled/disabled record must not fall back to granted/denied")
	}
}

func TestDecodePartitionRejectsWrongShapes(t *testing.T) {
	cases := map[string]string{
		"not json":        `{`,
		"array":           `["a"]`,
		"null":            `null`,
		"missing half":    `{"enabled":["a"]}`,
		"wrong labels":    `{"granted":["a"],"denied":[]}`,
		"non string ids":  `{"enabled":[1],"disabled":[]}`,
		"null half":       `{"enabled":null,"disabled":[]}`,
		"object for list": `{"enabled":{},"disabled":[]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			if _, ok := DecodePartition(KindFeatureFlags, []byte(payload)); ok {
				t.Fatalf("expected %s to be rejected", payload)
			}
		})
	}
}

func assertExclusive(t *testing.T, state ForcedState) {
	t.Helper()
	for _, id := range state.Enabled {
		if contains(state.Disabled, id) {
			t.Fatalf("id %q present in both sets: %+v", id, state)
		}
	}
}
