// Package overrides implements a developer override engine for runtime
// configuration domains (feature flags, permissions, app features and the
// active language).
//
// Each domain is one explicitly constructed unit:
//
//	host app -> Registry (natural options) ─┐
//	                                        ├─> Merge -> AllValues / ForcedValues
//	developer -> OverrideStore (forced ids) ┘
//
// The OverrideStore persists its partition through a storage.Adapter after
// every mutation. Whenever the host registers a new option set, overrides whose
// ids are no longer registered are purged. A Gate can switch every override
// off without discarding the persisted partitions.
//
// Streams are hot and replay the latest value: a new subscriber immediately
// receives the current value and every later emission in order.
//
// Presets capturing all domains at once live in pkg/presets.
package overrides
