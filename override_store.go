package overrides

import (
	"github.com/goliatone/go-overrides/pkg/logging"
	"github.com/goliatone/go-overrides/pkg/storage"
)

// OverrideStore owns one domain's forced partition and keeps the persisted
// copy in step with it. Every mutation writes through the adapter; a failed
// write is logged by the adapter and the in-memory state stays authoritative.
// OverrideStore is not safe for concurrent use on its own.
type OverrideStore struct {
	kind    Kind
	adapter *storage.Adapter
	logger  Logger
	state   ForcedState
}

// NewOverrideStore loads any persisted partition for kind. A missing or
// malformed record loads as an empty partition.
func NewOverrideStore(kind Kind, adapter *storage.Adapter, logger Logger) *OverrideStore {
	s := &OverrideStore{
		kind:    kind,
		adapter: adapter,
		logger:  logging.OrNop(logger),
		state:   ForcedState{Enabled: []string{}, Disabled: []string{}},
	}
	s.load()
	return s
}

func (s *OverrideStore) load() {
	if s.adapter == nil {
		return
	}
	raw, ok := s.adapter.ReadRaw(s.kind.StorageKey())
	if !ok {
		return
	}
	state, ok := DecodePartition(s.kind, raw)
	if !ok {
		s.logger.Warn("overrides: ignoring malformed stored state", "domain", string(s.kind))
		return
	}
	s.state = state
}

// Current returns a copy of the partition.
func (s *OverrideStore) Current() ForcedState {
	return s.state.Clone()
}

// Set forces id to value. It reports whether the partition changed.
func (s *OverrideStore) Set(id string, value bool) bool {
	if current, forced := s.state.Lookup(id); forced && current == value {
		return false
	}
	s.commit(s.state.With(id, value))
	return true
}

// Clear removes any override for id. It reports whether id was forced.
func (s *OverrideStore) Clear(id string) bool {
	if !s.state.Has(id) {
		return false
	}
	s.commit(s.state.Without(id))
	return true
}

// Replace swaps the whole partition for state restricted to valid ids. Every
// id that was filtered out is logged and returned.
func (s *OverrideStore) Replace(state ForcedState, valid map[string]struct{}) []string {
	filtered, dropped := state.Normalize().Filter(valid)
	if len(dropped) > 0 {
		s.logger.Warn("overrides: ignoring unknown ids in applied state",
			"domain", string(s.kind), "ids", dropped)
	}
	s.commit(filtered)
	return dropped
}

// Prune drops overrides whose id is not in valid. Stale ids are logged and
// returned; the cleaned partition is persisted only when something changed.
func (s *OverrideStore) Prune(valid map[string]struct{}) []string {
	cleaned, dropped := s.state.Filter(valid)
	if len(dropped) == 0 {
		return nil
	}
	s.logger.Warn("overrides: removed stale overrides",
		"domain", string(s.kind), "ids", dropped)
	s.commit(cleaned)
	return dropped
}

// Reset drops every override. It reports whether anything was forced.
func (s *OverrideStore) Reset() bool {
	if s.state.IsEmpty() {
		return false
	}
	s.commit(ForcedState{Enabled: []string{}, Disabled: []string{}})
	return true
}

func (s *OverrideStore) commit(next ForcedState) {
	s.state = next.Clone()
	if s.adapter == nil {
		return
	}
	_ = s.adapter.Write(s.kind.StorageKey(), EncodePartition(s.kind, s.state))
}
